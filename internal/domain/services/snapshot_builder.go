package services

import (
	"context"
	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// 외부 조회 이름 (메트릭 라벨로도 사용됩니다)
const (
	QueryRoute    = "route"
	QueryResolver = "resolver"
)

// DegradeHook은 외부 조회 실패가 표식 값으로 대체될 때 호출됩니다
type DegradeHook func(query string, err error)

// SnapshotBuilder는 관찰된 인터페이스와 라우팅/리졸버 정보로 기록 집합을 만드는 도메인 서비스입니다
type SnapshotBuilder struct {
	links     interfaces.LinkLister
	routes    interfaces.RouteQuerier
	resolver  interfaces.ResolverQuerier
	onDegrade DegradeHook
	logger    *logrus.Logger
}

// NewSnapshotBuilder는 새로운 SnapshotBuilder를 생성합니다
func NewSnapshotBuilder(
	links interfaces.LinkLister,
	routes interfaces.RouteQuerier,
	resolver interfaces.ResolverQuerier,
	logger *logrus.Logger,
) *SnapshotBuilder {
	return &SnapshotBuilder{
		links:    links,
		routes:   routes,
		resolver: resolver,
		logger:   logger,
	}
}

// OnDegrade는 조회 실패 훅을 등록합니다
func (b *SnapshotBuilder) OnDegrade(hook DegradeHook) {
	b.onDegrade = hook
}

// Build는 현재 호스트의 인터페이스 스냅샷을 생성합니다.
// 라우팅/리졸버 조회 실패는 표식 값으로 대체되며, 인터페이스 나열 실패만 에러로 반환됩니다.
func (b *SnapshotBuilder) Build(ctx context.Context) (entities.RecordSet, error) {
	links, err := b.links.ListLinks(ctx)
	if err != nil {
		return nil, errors.NewSystemError("인터페이스 나열 실패", err)
	}

	// DNS는 호스트 전역 설정이므로 한 번만 조회합니다
	dns := b.nameservers(ctx)

	records := make(entities.RecordSet, 0, len(links))
	for _, link := range links {
		records = append(records, entities.NetworkInterface{
			Name:          link.Name,
			InterfaceType: classify(link),
			Status:        status(link),
			MacAddress:    macAddress(link),
			IPv4Address:   firstIPv4(link),
			Gateway:       b.gateways(ctx, link.Name),
			DNS:           append([]string(nil), dns...),
		})
	}

	b.logger.WithField("interfaces", len(records)).Debug("인터페이스 스냅샷 생성 완료")

	return records, nil
}

// gateways는 인터페이스의 기본 경로 게이트웨이를 조회합니다
func (b *SnapshotBuilder) gateways(ctx context.Context, name string) []entities.Gateway {
	ips, err := b.routes.DefaultGateways(ctx, name)
	if err != nil {
		b.degrade(QueryRoute, errors.NewExternalQueryError("기본 경로 조회 실패: "+name, err))
		return []entities.Gateway{entities.UnsetGateway()}
	}

	gateways := make([]entities.Gateway, 0, len(ips))
	for _, ip := range ips {
		gateways = append(gateways, entities.NewDefaultGateway(ip))
	}
	if len(gateways) == 0 {
		return []entities.Gateway{entities.UnsetGateway()}
	}
	return gateways
}

// nameservers는 리졸버 설정의 네임서버 목록을 조회합니다
func (b *SnapshotBuilder) nameservers(ctx context.Context) []string {
	servers, err := b.resolver.Nameservers(ctx)
	if err != nil {
		b.degrade(QueryResolver, errors.NewExternalQueryError("리졸버 설정 조회 실패", err))
		return []string{entities.Unset}
	}
	if len(servers) == 0 {
		return []string{entities.Unset}
	}
	return servers
}

func (b *SnapshotBuilder) degrade(query string, err error) {
	b.logger.WithFields(logrus.Fields{
		"query": query,
		"error": err,
	}).Warn("외부 조회 실패, 표식 값으로 대체")

	if b.onDegrade != nil {
		b.onDegrade(query, err)
	}
}

// classify는 인터페이스 종류를 결정합니다. up 상태의 loopback은 기존 기록 파일과 같이 Wi-Fi로 표기합니다
func classify(link interfaces.ObservedLink) entities.InterfaceType {
	switch {
	case link.Up && link.Loopback:
		return entities.InterfaceTypeWiFi
	case link.Up:
		return entities.InterfaceTypeEthernet
	default:
		return entities.InterfaceTypeUnknown
	}
}

func status(link interfaces.ObservedLink) entities.InterfaceStatus {
	if link.Up {
		return entities.StatusActive
	}
	return entities.StatusInactive
}

func macAddress(link interfaces.ObservedLink) *string {
	if len(link.HardwareAddr) == 0 {
		return nil
	}
	return entities.StringPtr(link.HardwareAddr.String())
}

func firstIPv4(link interfaces.ObservedLink) *string {
	for _, ip := range link.Addrs {
		if v4 := ip.To4(); v4 != nil {
			return entities.StringPtr(v4.String())
		}
	}
	return nil
}
