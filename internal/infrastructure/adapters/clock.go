package adapters

import (
	"netif-recorder/internal/domain/interfaces"
	"time"
)

// RealClock은 시스템 시간을 UTC로 제공하는 Clock 구현체입니다.
// 백업 파일 이름과 헬스 응답의 시각이 호스트 시간대에 따라 달라지지 않습니다.
type RealClock struct{}

// NewRealClock은 새로운 RealClock을 생성합니다
func NewRealClock() interfaces.Clock {
	return RealClock{}
}

// Now는 현재 UTC 시각을 반환합니다
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
