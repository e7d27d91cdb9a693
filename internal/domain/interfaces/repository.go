package interfaces

import (
	"context"
	"netif-recorder/internal/domain/entities"
)

// RecordRepository는 기록 집합 전체를 하나의 단위로 읽고 쓰는 저장소 인터페이스입니다
type RecordRepository interface {
	// Load는 저장된 기록 집합을 반환합니다. 저장된 상태가 없으면 빈 집합을 반환합니다
	Load(ctx context.Context) (entities.RecordSet, error)

	// Save는 기록 집합 전체를 원자적으로 덮어씁니다
	Save(ctx context.Context, records entities.RecordSet) error
}

// InterfaceTable은 이름을 키로 하는 행 단위 저장소 인터페이스입니다
type InterfaceTable interface {
	Insert(ctx context.Context, iface entities.NetworkInterface) error
	FetchAll(ctx context.Context) (entities.RecordSet, error)
	UpdateByOldName(ctx context.Context, oldName string, iface entities.NetworkInterface) error
	DeleteByName(ctx context.Context, name string) error
}

// ChangeNotifier는 기록 집합이 저장된 뒤 변경 사실을 전달받습니다
type ChangeNotifier interface {
	RecordsSaved(operation string, records entities.RecordSet)
}
