package polling

import (
	"context"
	"math"
	"time"

	"netif-recorder/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// 전략 이름 (RECONCILE_STRATEGY)
const (
	StrategyFixed    = "fixed"
	StrategyBackoff  = "backoff"
	StrategyAdaptive = "adaptive"
)

// CycleResult는 주기 작업 한 번의 결과입니다
type CycleResult struct {
	// Changed는 이번 주기에 저장된 기록 집합이 바뀌었는지 나타냅니다
	Changed bool
	Err     error
}

// Strategy는 폴링 전략 인터페이스입니다
type Strategy interface {
	// NextInterval은 직전 주기 결과를 보고 다음 주기까지의 대기 시간을 반환합니다
	NextInterval(result CycleResult) time.Duration
	// Reset은 폴링 전략을 초기 상태로 리셋합니다
	Reset()
}

// FixedIntervalStrategy는 결과와 무관하게 같은 간격을 유지합니다
type FixedIntervalStrategy struct {
	interval time.Duration
}

// NewFixedIntervalStrategy는 고정 간격 전략을 생성합니다
func NewFixedIntervalStrategy(interval time.Duration) *FixedIntervalStrategy {
	return &FixedIntervalStrategy{interval: interval}
}

func (s *FixedIntervalStrategy) NextInterval(CycleResult) time.Duration { return s.interval }

func (s *FixedIntervalStrategy) Reset() {}

// ExponentialBackoffStrategy는 실패가 이어질 때 간격을 지수적으로 늘립니다
type ExponentialBackoffStrategy struct {
	baseInterval   time.Duration
	maxInterval    time.Duration
	multiplier     float64
	currentBackoff int
	logger         *logrus.Logger
}

// NewExponentialBackoffStrategy는 새로운 지수 백오프 전략을 생성합니다
func NewExponentialBackoffStrategy(
	baseInterval time.Duration,
	maxInterval time.Duration,
	multiplier float64,
	logger *logrus.Logger,
) *ExponentialBackoffStrategy {
	if multiplier <= 1 {
		multiplier = 2.0
	}
	if maxInterval < baseInterval {
		maxInterval = baseInterval
	}

	return &ExponentialBackoffStrategy{
		baseInterval: baseInterval,
		maxInterval:  maxInterval,
		multiplier:   multiplier,
		logger:       logger,
	}
}

// NextInterval은 실패 횟수에 따라 다음 대기 시간을 계산합니다. 성공하면 기본 간격으로 돌아갑니다
func (s *ExponentialBackoffStrategy) NextInterval(result CycleResult) time.Duration {
	if result.Err == nil {
		if s.currentBackoff > 0 {
			s.logger.Debug("Resetting backoff after successful reconcile")
			s.currentBackoff = 0
			metrics.SetBackoffLevel(0)
		}
		return s.baseInterval
	}

	s.currentBackoff++
	metrics.SetBackoffLevel(float64(s.currentBackoff))

	backoffDuration := float64(s.baseInterval) * math.Pow(s.multiplier, float64(s.currentBackoff-1))
	nextInterval := time.Duration(backoffDuration)
	if nextInterval > s.maxInterval || nextInterval <= 0 {
		nextInterval = s.maxInterval
	}

	s.logger.WithFields(logrus.Fields{
		"backoff_count": s.currentBackoff,
		"next_interval": nextInterval,
		"max_interval":  s.maxInterval,
	}).Debug("Exponential backoff calculated")

	return nextInterval
}

// Reset은 백오프 카운터를 리셋합니다
func (s *ExponentialBackoffStrategy) Reset() {
	s.currentBackoff = 0
	metrics.SetBackoffLevel(0)
}

// AdaptiveStrategy는 병합으로 기록이 바뀌는 빈도에 따라 간격을 조정합니다.
// 바뀌는 주기가 이어지면 최소 간격으로, 조용한 주기가 이어지면 점차 느려지다 idle 간격에 머뭅니다.
type AdaptiveStrategy struct {
	minInterval      time.Duration
	maxInterval      time.Duration
	idleInterval     time.Duration
	changedCount     int
	quietCount       int
	thresholdForSlow int
	thresholdForFast int
	currentInterval  time.Duration
	logger           *logrus.Logger
}

// NewAdaptiveStrategy는 새로운 적응형 폴링 전략을 생성합니다
func NewAdaptiveStrategy(
	minInterval time.Duration,
	maxInterval time.Duration,
	idleInterval time.Duration,
	logger *logrus.Logger,
) *AdaptiveStrategy {
	return &AdaptiveStrategy{
		minInterval:      minInterval,
		maxInterval:      maxInterval,
		idleInterval:     idleInterval,
		thresholdForSlow: 5,
		thresholdForFast: 2,
		currentInterval:  minInterval,
		logger:           logger,
	}
}

// NextInterval은 변경 여부에 따라 다음 폴링 간격을 결정합니다. 실패한 주기는 조용한 주기로 셉니다
func (s *AdaptiveStrategy) NextInterval(result CycleResult) time.Duration {
	if result.Err == nil && result.Changed {
		s.changedCount++
		s.quietCount = 0

		if s.changedCount >= s.thresholdForFast {
			s.currentInterval = s.minInterval
			s.logger.WithField("interval", s.currentInterval).Debug("Reconcile frequency increased")
		}
		return s.currentInterval
	}

	s.quietCount++
	s.changedCount = 0

	if s.quietCount >= s.thresholdForSlow {
		if s.currentInterval < s.maxInterval {
			s.currentInterval = time.Duration(float64(s.currentInterval) * 1.5)
			if s.currentInterval > s.maxInterval {
				s.currentInterval = s.maxInterval
			}
		}

		if s.quietCount >= s.thresholdForSlow*3 {
			s.currentInterval = s.idleInterval
		}

		s.logger.WithFields(logrus.Fields{
			"interval":    s.currentInterval,
			"quiet_count": s.quietCount,
		}).Debug("Reconcile frequency decreased")
	}

	return s.currentInterval
}

// Reset은 전략을 초기 상태로 리셋합니다
func (s *AdaptiveStrategy) Reset() {
	s.changedCount = 0
	s.quietCount = 0
	s.currentInterval = s.minInterval
}

// Task는 주기마다 실행되는 작업입니다
type Task func(ctx context.Context) (CycleResult, error)

// PollingController는 주기 작업의 실행 간격을 관리합니다
type PollingController struct {
	strategy Strategy
	logger   *logrus.Logger
}

// NewPollingController는 새로운 폴링 컨트롤러를 생성합니다
func NewPollingController(strategy Strategy, logger *logrus.Logger) *PollingController {
	return &PollingController{
		strategy: strategy,
		logger:   logger,
	}
}

// Start는 ctx가 취소될 때까지 task를 반복 실행합니다. 첫 실행은 첫 간격이 지난 뒤입니다
func (c *PollingController) Start(ctx context.Context, task Task) error {
	timer := time.NewTimer(c.strategy.NextInterval(CycleResult{}))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			start := time.Now()
			result, err := task(ctx)
			result.Err = err
			metrics.RecordPollingCycle(time.Since(start).Seconds())

			if err != nil {
				c.logger.WithError(err).Error("Reconcile cycle failed")
			}

			timer.Reset(c.strategy.NextInterval(result))
		}
	}
}
