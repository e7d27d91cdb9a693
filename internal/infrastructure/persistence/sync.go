package persistence

import (
	"context"

	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// SyncFromDocument는 문서 저장소의 레코드 중 테이블에 아직 없는 이름만 순서대로 추가합니다.
// 이미 있는 행은 건드리지 않습니다. 추가된 행 수를 반환합니다.
func SyncFromDocument(
	ctx context.Context,
	document interfaces.RecordRepository,
	table interfaces.InterfaceTable,
	logger *logrus.Logger,
) (int, error) {
	records, err := document.Load(ctx)
	if err != nil {
		return 0, err
	}

	existing, err := table.FetchAll(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, iface := range records {
		if existing.IndexOf(iface.Name) >= 0 {
			continue
		}
		if err := table.Insert(ctx, iface); err != nil {
			return inserted, err
		}
		existing = append(existing, iface)
		inserted++
	}

	logger.WithFields(logrus.Fields{
		"document": len(records),
		"inserted": inserted,
	}).Info("기록 문서를 테이블에 동기화 완료")

	return inserted, nil
}
