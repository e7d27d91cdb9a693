package interfaces

import (
	"context"
	"net"
)

// ObservedLink는 호스트에서 관찰된 인터페이스 하나입니다
type ObservedLink struct {
	Name         string
	Up           bool
	Loopback     bool
	HardwareAddr net.HardwareAddr
	Addrs        []net.IP
}

// LinkLister는 호스트의 네트워크 인터페이스를 나열하는 인터페이스입니다
type LinkLister interface {
	// ListLinks는 현재 관찰 가능한 인터페이스 목록을 반환합니다
	ListLinks(ctx context.Context) ([]ObservedLink, error)
}

// RouteQuerier는 라우팅 테이블을 조회하는 인터페이스입니다
type RouteQuerier interface {
	// DefaultGateways는 인터페이스에 묶인 기본 경로의 게이트웨이 IP 목록을 반환합니다
	DefaultGateways(ctx context.Context, interfaceName string) ([]string, error)
}

// ResolverQuerier는 리졸버 설정을 조회하는 인터페이스입니다
type ResolverQuerier interface {
	// Nameservers는 설정된 네임서버 목록을 반환합니다
	Nameservers(ctx context.Context) ([]string, error)
}
