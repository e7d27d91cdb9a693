package usecases

import (
	"context"

	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// SnapshotSource는 현재 호스트의 기록 집합을 만들어 냅니다
type SnapshotSource interface {
	Build(ctx context.Context) (entities.RecordSet, error)
}

// RefreshSnapshotInput은 스냅샷 갱신 유스케이스의 입력입니다
type RefreshSnapshotInput struct {
	// Reconcile이 true이면 새 스냅샷을 저장된 집합에 병합합니다
	Reconcile bool
}

// RefreshSnapshotOutput은 스냅샷 갱신 유스케이스의 출력입니다
type RefreshSnapshotOutput struct {
	Snapshot  entities.RecordSet
	Reconcile *ReconcileOutput
}

// RefreshSnapshotUseCase는 호스트 스냅샷을 만들고, 요청 시 저장소에 병합하는 유스케이스입니다
type RefreshSnapshotUseCase struct {
	source SnapshotSource
	store  *ReconciliationStore
	logger *logrus.Logger
}

// NewRefreshSnapshotUseCase는 새로운 RefreshSnapshotUseCase를 생성합니다
func NewRefreshSnapshotUseCase(source SnapshotSource, store *ReconciliationStore, logger *logrus.Logger) *RefreshSnapshotUseCase {
	return &RefreshSnapshotUseCase{
		source: source,
		store:  store,
		logger: logger,
	}
}

// Execute는 스냅샷을 생성합니다. 저장된 상태는 Reconcile이 요청된 경우에만 변경됩니다
func (uc *RefreshSnapshotUseCase) Execute(ctx context.Context, input RefreshSnapshotInput) (*RefreshSnapshotOutput, error) {
	snapshot, err := uc.source.Build(ctx)
	if err != nil {
		metrics.RecordSnapshotBuild(false)
		return nil, err
	}
	metrics.RecordSnapshotBuild(true)

	output := &RefreshSnapshotOutput{Snapshot: snapshot}
	if !input.Reconcile {
		return output, nil
	}

	result, err := uc.store.Reconcile(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	output.Reconcile = result

	if len(result.Filled) > 0 || len(result.Appended) > 0 {
		uc.logger.WithFields(logrus.Fields{
			"filled":   result.Filled,
			"appended": result.Appended,
		}).Info("스냅샷을 저장된 기록 집합에 병합")
	}

	return output, nil
}
