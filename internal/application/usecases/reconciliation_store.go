package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"
	"netif-recorder/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// 저장소 연산 이름 (메트릭/이벤트 라벨)
const (
	OperationLoad            = "load"
	OperationSave            = "save"
	OperationUpdateIPv4      = "update_ipv4"
	OperationClearIPv4       = "clear_ipv4"
	OperationFillIfUnset     = "fill_if_unset"
	OperationReplaceGateways = "replace_gateways"
	OperationMergeGateways   = "merge_gateways"
	OperationDeleteGateways  = "delete_gateways"
	OperationReconcile       = "reconcile"
	OperationIndexOf         = "index_of"
)

// FillRequest는 FillIfUnset의 입력입니다. nil 필드는 "제공되지 않음"을 의미하며,
// 비어 있지만 nil이 아닌 슬라이스는 빈 목록으로 채우라는 요청입니다.
type FillRequest struct {
	Gateway []entities.Gateway
	DNS     []string
	IPv4    *string
}

// FillResult는 실제로 교체된 필드를 나타냅니다
type FillResult struct {
	Gateway bool
	DNS     bool
	IPv4    bool
}

// Changed는 하나 이상의 필드가 교체되었는지 확인합니다
func (r FillResult) Changed() bool {
	return r.Gateway || r.DNS || r.IPv4
}

// ReconcileOutput은 Reconcile의 결과입니다
type ReconcileOutput struct {
	Filled    []string
	Appended  []string
	Unchanged []string
}

// ReconciliationStore는 영속화된 기록 집합에 대한 모든 갱신 연산을 담당합니다.
// 호출 사이에 메모리 캐시를 두지 않고, 매 호출마다 load → mutate → save를 수행합니다.
// 하나의 프로세스 안에서 동시에 들어온 호출은 mu로 직렬화되어 갱신 유실이 일어나지 않습니다.
// 변경 알림은 mu를 놓은 뒤 저장 순서대로 전달됩니다.
type ReconciliationStore struct {
	mu         sync.Mutex
	repository interfaces.RecordRepository
	notifier   interfaces.ChangeNotifier
	logger     *logrus.Logger

	// 알림 순번. nextTicket은 mu, turn은 notifyMu 아래에서 바뀝니다
	nextTicket uint64
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	turn       uint64
}

// NewReconciliationStore는 새로운 ReconciliationStore를 생성합니다
func NewReconciliationStore(repo interfaces.RecordRepository, logger *logrus.Logger) *ReconciliationStore {
	s := &ReconciliationStore{
		repository: repo,
		logger:     logger,
	}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	return s
}

// SetNotifier는 저장 후 변경 알림을 받을 대상을 등록합니다
func (s *ReconciliationStore) SetNotifier(notifier interfaces.ChangeNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifier = notifier
}

// Load는 저장된 기록 집합을 반환합니다. 저장된 상태가 없으면 빈 집합입니다
func (s *ReconciliationStore) Load(ctx context.Context) (entities.RecordSet, error) {
	start := time.Now()

	s.mu.Lock()
	records, err := s.load(ctx)
	s.mu.Unlock()

	s.observe(OperationLoad, start, err)
	if err != nil {
		return nil, err
	}
	metrics.SetRecordCount(len(records))
	return records, nil
}

// Save는 기록 집합 전체를 덮어씁니다
func (s *ReconciliationStore) Save(ctx context.Context, records entities.RecordSet) error {
	start := time.Now()

	err := validateRecordSet(records)
	if err == nil {
		saved := records.Clone()
		s.mu.Lock()
		if err = s.save(ctx, saved); err != nil {
			saved = nil
		}
		s.unlockAndNotify(OperationSave, saved)
	}

	s.observe(OperationSave, start, err)
	return err
}

// UpdateIPv4는 인터페이스의 IPv4 주소를 설정합니다. nil은 값을 제거합니다
func (s *ReconciliationStore) UpdateIPv4(ctx context.Context, index int, value *string) error {
	if value != nil && !entities.IsIPv4OrUnset(*value) {
		return s.reject(OperationUpdateIPv4, errors.NewValidationError(fmt.Sprintf("invalid ipv4 address: %q", *value), entities.ErrInvalidIPv4Address))
	}

	return s.mutate(ctx, OperationUpdateIPv4, index, func(iface *entities.NetworkInterface) (bool, error) {
		iface.IPv4Address = cloneString(value)
		return true, nil
	})
}

// ClearIPv4는 IPv4 주소를 표식 값으로 설정합니다. 필드를 제거하지 않습니다
func (s *ReconciliationStore) ClearIPv4(ctx context.Context, index int) error {
	return s.mutate(ctx, OperationClearIPv4, index, func(iface *entities.NetworkInterface) (bool, error) {
		iface.IPv4Address = entities.StringPtr(entities.Unset)
		return true, nil
	})
}

// FillIfUnset은 제공된 각 필드를, 현재 값이 표식 상태인 경우에만 교체합니다.
// 이미 실제 값을 가진 필드는 교체 값이 주어져도 그대로 둡니다.
func (s *ReconciliationStore) FillIfUnset(ctx context.Context, index int, req FillRequest) (FillResult, error) {
	if req.IPv4 != nil && !entities.IsIPv4OrUnset(*req.IPv4) {
		return FillResult{}, s.reject(OperationFillIfUnset, errors.NewValidationError(fmt.Sprintf("invalid ipv4 address: %q", *req.IPv4), entities.ErrInvalidIPv4Address))
	}

	var result FillResult
	err := s.mutate(ctx, OperationFillIfUnset, index, func(iface *entities.NetworkInterface) (bool, error) {
		result = fillIfUnset(iface, req)
		return result.Changed(), nil
	})
	if err != nil {
		return FillResult{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"index":   index,
		"gateway": result.Gateway,
		"dns":     result.DNS,
		"ipv4":    result.IPv4,
	}).Debug("표식 필드 채우기 완료")

	return result, nil
}

// ReplaceGateways는 인터페이스의 게이트웨이 목록을 무조건 교체합니다
func (s *ReconciliationStore) ReplaceGateways(ctx context.Context, index int, gateways []entities.Gateway) error {
	return s.mutate(ctx, OperationReplaceGateways, index, func(iface *entities.NetworkInterface) (bool, error) {
		iface.Gateway = append([]entities.Gateway{}, gateways...)
		return true, nil
	})
}

// MergeGateways는 들어온 게이트웨이마다 첫 번째 표식 항목을 제자리에서 덮어쓰고,
// 표식 항목이 없으면 뒤에 추가합니다.
func (s *ReconciliationStore) MergeGateways(ctx context.Context, index int, gateways []entities.Gateway) error {
	return s.mutate(ctx, OperationMergeGateways, index, func(iface *entities.NetworkInterface) (bool, error) {
		for _, gw := range gateways {
			if pos := firstUnsetGateway(iface.Gateway); pos >= 0 {
				iface.Gateway[pos] = gw
			} else {
				iface.Gateway = append(iface.Gateway, gw)
			}
		}
		return true, nil
	})
}

// DeleteGateways는 주어진 위치의 게이트웨이 항목들을 제거합니다.
// 모든 위치를 먼저 검증하므로 하나라도 범위를 벗어나면 아무것도 제거되지 않습니다.
// 제거는 내림차순으로 수행되어 앞선 제거가 뒤의 위치 의미를 바꾸지 않습니다.
func (s *ReconciliationStore) DeleteGateways(ctx context.Context, index int, positions []int) error {
	return s.mutate(ctx, OperationDeleteGateways, index, func(iface *entities.NetworkInterface) (bool, error) {
		ordered, err := descendingPositions(positions, len(iface.Gateway))
		if err != nil {
			return false, err
		}
		for _, pos := range ordered {
			iface.Gateway = append(iface.Gateway[:pos], iface.Gateway[pos+1:]...)
		}
		return true, nil
	})
}

// IndexOf는 이름으로 인터페이스의 현재 위치를 찾습니다
func (s *ReconciliationStore) IndexOf(ctx context.Context, name string) (int, error) {
	start := time.Now()

	s.mu.Lock()
	records, err := s.load(ctx)
	s.mu.Unlock()

	index := -1
	if err == nil {
		if index = records.IndexOf(name); index < 0 {
			err = errors.NewNotFoundError(fmt.Sprintf("interface not found: %s", name))
		}
	}

	s.observe(OperationIndexOf, start, err)
	return index, err
}

// Reconcile은 새로 관찰된 기록 집합을 저장된 집합에 병합합니다.
// 이름이 같은 인터페이스는 표식 필드만 채우고, 처음 보는 인터페이스는 뒤에 추가합니다.
func (s *ReconciliationStore) Reconcile(ctx context.Context, fresh entities.RecordSet) (*ReconcileOutput, error) {
	start := time.Now()
	output := &ReconcileOutput{
		Filled:    []string{},
		Appended:  []string{},
		Unchanged: []string{},
	}

	s.mu.Lock()
	saved, err := s.transact(ctx, func(records entities.RecordSet) (entities.RecordSet, bool, error) {
		for _, observed := range fresh {
			index := records.IndexOf(observed.Name)
			if index < 0 {
				records = append(records, observed.Clone())
				output.Appended = append(output.Appended, observed.Name)
				continue
			}

			if fillIfUnset(&records[index], fillRequestFrom(observed)).Changed() {
				output.Filled = append(output.Filled, observed.Name)
			} else {
				output.Unchanged = append(output.Unchanged, observed.Name)
			}
		}
		return records, len(output.Filled) > 0 || len(output.Appended) > 0, nil
	})
	s.unlockAndNotify(OperationReconcile, saved)

	s.observe(OperationReconcile, start, err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"filled":    len(output.Filled),
		"appended":  len(output.Appended),
		"unchanged": len(output.Unchanged),
	}).Info("기록 집합 병합 완료")

	return output, nil
}

// mutate는 index 위치의 레코드에 대해 load → fn → save를 수행합니다
func (s *ReconciliationStore) mutate(
	ctx context.Context,
	operation string,
	index int,
	fn func(iface *entities.NetworkInterface) (bool, error),
) error {
	start := time.Now()

	s.mu.Lock()
	saved, err := s.transact(ctx, func(records entities.RecordSet) (entities.RecordSet, bool, error) {
		if !records.InRange(index) {
			return nil, false, errors.NewIndexError(fmt.Sprintf("invalid interface index: %d (records: %d)", index, len(records)))
		}
		dirty, err := fn(&records[index])
		return records, dirty, err
	})
	s.unlockAndNotify(operation, saved)

	s.observe(operation, start, err)
	return err
}

// transact는 호출자가 mu를 잡은 상태에서 실행되어야 합니다.
// fn이 에러를 반환하거나 변경이 없으면 저장 매체에 쓰지 않고 nil 집합을 반환합니다.
func (s *ReconciliationStore) transact(
	ctx context.Context,
	fn func(records entities.RecordSet) (entities.RecordSet, bool, error),
) (entities.RecordSet, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	updated, dirty, err := fn(records)
	if err != nil || !dirty {
		return nil, err
	}

	if err := s.save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ReconciliationStore) load(ctx context.Context) (entities.RecordSet, error) {
	records, err := s.repository.Load(ctx)
	if err != nil {
		return nil, asPersistenceError("failed to load record set", err)
	}
	if records == nil {
		records = entities.RecordSet{}
	}
	return records, nil
}

func (s *ReconciliationStore) save(ctx context.Context, records entities.RecordSet) error {
	if err := s.repository.Save(ctx, records); err != nil {
		return asPersistenceError("failed to save record set", err)
	}

	metrics.SetRecordCount(len(records))
	return nil
}

// unlockAndNotify는 mu를 놓고 저장된 집합을 알립니다. saved가 nil이면 알리지 않습니다.
// 순번은 mu 아래에서 받으므로 알림은 저장 순서를 따르고, 순서를 기다리는 동안 mu는 잡지 않습니다.
func (s *ReconciliationStore) unlockAndNotify(operation string, saved entities.RecordSet) {
	notifier := s.notifier
	if saved == nil || notifier == nil {
		s.mu.Unlock()
		return
	}

	ticket := s.nextTicket
	s.nextTicket++
	s.mu.Unlock()

	s.notifyMu.Lock()
	for s.turn != ticket {
		s.notifyCond.Wait()
	}
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.turn++
		s.notifyCond.Broadcast()
		s.notifyMu.Unlock()
	}()

	notifier.RecordsSaved(operation, saved.Clone())
}

// reject는 저장 매체에 닿기 전에 거부된 요청을 기록합니다
func (s *ReconciliationStore) reject(operation string, err error) error {
	s.observe(operation, time.Now(), err)
	return err
}

func (s *ReconciliationStore) observe(operation string, start time.Time, err error) {
	metrics.RecordStoreOperation(operation, err == nil, time.Since(start).Seconds())

	if err == nil {
		metrics.SetStoreStatus(true)
		s.logger.WithField("operation", operation).Debug("저장소 연산 완료")
		return
	}

	errType, _ := errors.TypeOf(err)
	metrics.RecordError(strings.ToLower(string(errType)))
	if errors.IsPersistenceError(err) {
		metrics.SetStoreStatus(false)
	}

	s.logger.WithFields(logrus.Fields{
		"operation": operation,
		"error":     err,
	}).Warn("저장소 연산 실패")
}

// fillIfUnset은 표식 상태인 필드만 교체하고 교체된 필드를 반환합니다
func fillIfUnset(iface *entities.NetworkInterface, req FillRequest) FillResult {
	var result FillResult

	if req.Gateway != nil && iface.GatewayUnset() {
		iface.Gateway = append([]entities.Gateway{}, req.Gateway...)
		result.Gateway = true
	}
	if req.DNS != nil && iface.DNSUnset() {
		iface.DNS = append([]string{}, req.DNS...)
		result.DNS = true
	}
	if req.IPv4 != nil && iface.IPv4Unset() {
		iface.IPv4Address = cloneString(req.IPv4)
		result.IPv4 = true
	}

	return result
}

// fillRequestFrom은 관찰된 레코드에서 실제 값을 가진 필드만 골라 채우기 요청을 만듭니다
func fillRequestFrom(observed entities.NetworkInterface) FillRequest {
	var req FillRequest
	if len(observed.Gateway) > 0 && !observed.GatewayUnset() {
		req.Gateway = observed.Gateway
	}
	if len(observed.DNS) > 0 && !observed.DNSUnset() {
		req.DNS = observed.DNS
	}
	if observed.IPv4Address != nil && !observed.IPv4Unset() {
		req.IPv4 = observed.IPv4Address
	}
	return req
}

func firstUnsetGateway(gateways []entities.Gateway) int {
	for i, gw := range gateways {
		if gw.IsUnset() {
			return i
		}
	}
	return -1
}

// descendingPositions는 위치를 검증하고 중복을 제거한 뒤 내림차순으로 정렬합니다
func descendingPositions(positions []int, length int) ([]int, error) {
	seen := make(map[int]struct{}, len(positions))
	ordered := make([]int, 0, len(positions))
	for _, pos := range positions {
		if pos < 0 || pos >= length {
			return nil, errors.NewIndexError(fmt.Sprintf("invalid gateway index: %d (gateways: %d)", pos, length))
		}
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}
		ordered = append(ordered, pos)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))
	return ordered, nil
}

// validateRecordSet은 저장 전 기록 집합의 불변식을 확인합니다
func validateRecordSet(records entities.RecordSet) error {
	names := make(map[string]int, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return errors.NewValidationError(fmt.Sprintf("invalid record at index %d", i), err)
		}
		if prev, dup := names[records[i].Name]; dup {
			return errors.NewConflictError(fmt.Sprintf("duplicate interface name %q at index %d and %d", records[i].Name, prev, i))
		}
		names[records[i].Name] = i
	}
	return nil
}

func asPersistenceError(message string, err error) error {
	if _, ok := errors.TypeOf(err); ok {
		return err
	}
	return errors.NewPersistenceError(message, err)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
