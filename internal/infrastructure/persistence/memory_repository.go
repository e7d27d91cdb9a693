package persistence

import (
	"context"
	"sync"

	"netif-recorder/internal/domain/entities"
)

// MemoryRepository는 프로세스 내부에만 기록 집합을 보관하는 RecordRepository 구현체입니다
type MemoryRepository struct {
	mu      sync.RWMutex
	records entities.RecordSet
}

// NewMemoryRepository는 초기 기록 집합을 가진 MemoryRepository를 생성합니다
func NewMemoryRepository(initial entities.RecordSet) *MemoryRepository {
	return &MemoryRepository{records: initial.Clone()}
}

func (r *MemoryRepository) Load(ctx context.Context) (entities.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records.Clone(), nil
}

func (r *MemoryRepository) Save(ctx context.Context, records entities.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records.Clone()
	return nil
}
