package entities

import (
	"errors"
	"net"
	"regexp"
)

// Unset은 값이 아직 알려지지 않았음을 나타내는 저장 포맷상의 표식입니다
const Unset = "N/A"

// DefaultGatewayName은 라우팅 테이블에서 발견된 게이트웨이에 붙는 이름입니다
const DefaultGatewayName = "Default"

// DefaultSubnetMask는 발견된 게이트웨이에 기록되는 고정 서브넷 마스크입니다
const DefaultSubnetMask = "255.255.255.0"

// InterfaceType은 인터페이스 종류를 나타냅니다
type InterfaceType string

const (
	InterfaceTypeEthernet InterfaceType = "Ethernet"
	// InterfaceTypeWiFi is what up loopback links are labelled with. Existing
	// record files carry this label, so the mapping is kept for compatibility.
	InterfaceTypeWiFi    InterfaceType = "Wi-Fi"
	InterfaceTypeUnknown InterfaceType = "Unknown"
)

// InterfaceStatus는 인터페이스의 관리 상태를 나타냅니다
type InterfaceStatus string

const (
	StatusActive   InterfaceStatus = "Active"
	StatusInactive InterfaceStatus = "Inactive"
)

var (
	ErrInvalidInterfaceName = errors.New("유효하지 않은 인터페이스 이름")
	ErrInvalidIPv4Address   = errors.New("유효하지 않은 IPv4 주소")
	ErrInvalidMacAddress    = errors.New("유효하지 않은 MAC 주소 형식")
)

// Gateway는 인터페이스의 기본 경로 항목 하나입니다
type Gateway struct {
	Name       string `json:"name" yaml:"name"`
	IP         string `json:"ip" yaml:"ip"`
	SubnetMask string `json:"subnet_mask" yaml:"subnet_mask"`
}

// UnsetGateway는 게이트웨이가 알려지지 않았음을 나타내는 항목을 반환합니다
func UnsetGateway() Gateway {
	return Gateway{Name: Unset, IP: Unset, SubnetMask: Unset}
}

// NewDefaultGateway는 라우팅 테이블에서 발견된 게이트웨이 항목을 생성합니다
func NewDefaultGateway(ip string) Gateway {
	return Gateway{Name: DefaultGatewayName, IP: ip, SubnetMask: DefaultSubnetMask}
}

// IsUnset은 이름 필드만으로 표식 여부를 판단합니다
func (g Gateway) IsUnset() bool {
	return g.Name == Unset
}

// NetworkInterface는 기록 집합의 레코드 하나입니다
type NetworkInterface struct {
	Name          string          `json:"name" yaml:"name"`
	InterfaceType InterfaceType   `json:"interface_type" yaml:"interface_type"`
	Status        InterfaceStatus `json:"status" yaml:"status"`
	MacAddress    *string         `json:"mac_address" yaml:"mac_address"`
	IPv4Address   *string         `json:"ipv4_address" yaml:"ipv4_address"`
	Gateway       []Gateway       `json:"gateway" yaml:"gateway"`
	DNS           []string        `json:"dns" yaml:"dns"`
}

// GatewayUnset은 게이트웨이 목록에 표식 항목이 하나라도 있는지 확인합니다
func (ni *NetworkInterface) GatewayUnset() bool {
	for _, gw := range ni.Gateway {
		if gw.IsUnset() {
			return true
		}
	}
	return false
}

// DNSUnset은 DNS 목록에 표식 문자열이 있는지 확인합니다
func (ni *NetworkInterface) DNSUnset() bool {
	for _, server := range ni.DNS {
		if server == Unset {
			return true
		}
	}
	return false
}

// IPv4Unset은 IPv4 주소가 표식 값인지 확인합니다. 값이 없는 경우는 해당하지 않습니다
func (ni *NetworkInterface) IPv4Unset() bool {
	return ni.IPv4Address != nil && *ni.IPv4Address == Unset
}

// Validate는 레코드의 유효성을 검증합니다
func (ni *NetworkInterface) Validate() error {
	if !isValidInterfaceName(ni.Name) {
		return ErrInvalidInterfaceName
	}
	if ni.IPv4Address != nil && !IsIPv4OrUnset(*ni.IPv4Address) {
		return ErrInvalidIPv4Address
	}
	if ni.MacAddress != nil && *ni.MacAddress != "" && *ni.MacAddress != Unset && !isValidMacAddress(*ni.MacAddress) {
		return ErrInvalidMacAddress
	}
	return nil
}

// Clone은 레코드의 깊은 복사본을 반환합니다
func (ni NetworkInterface) Clone() NetworkInterface {
	out := ni
	out.MacAddress = cloneString(ni.MacAddress)
	out.IPv4Address = cloneString(ni.IPv4Address)
	if ni.Gateway != nil {
		out.Gateway = make([]Gateway, len(ni.Gateway))
		copy(out.Gateway, ni.Gateway)
	}
	if ni.DNS != nil {
		out.DNS = make([]string, len(ni.DNS))
		copy(out.DNS, ni.DNS)
	}
	return out
}

// RecordSet은 하나의 단위로 저장되는 순서 있는 인터페이스 레코드 목록입니다
type RecordSet []NetworkInterface

// Clone은 기록 집합의 깊은 복사본을 반환합니다
func (rs RecordSet) Clone() RecordSet {
	out := make(RecordSet, 0, len(rs))
	for _, ni := range rs {
		out = append(out, ni.Clone())
	}
	return out
}

// IndexOf는 이름으로 레코드 위치를 찾습니다. 없으면 -1을 반환합니다
func (rs RecordSet) IndexOf(name string) int {
	for i := range rs {
		if rs[i].Name == name {
			return i
		}
	}
	return -1
}

// InRange는 인덱스가 기록 집합 범위 안에 있는지 확인합니다
func (rs RecordSet) InRange(index int) bool {
	return index >= 0 && index < len(rs)
}

// IsIPv4OrUnset은 값이 IPv4 리터럴이거나 표식 값인지 확인합니다
func IsIPv4OrUnset(value string) bool {
	if value == Unset {
		return true
	}
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() != nil
}

// StringPtr은 문자열 포인터를 반환합니다
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// isValidMacAddress는 MAC 주소의 유효성을 검증합니다
func isValidMacAddress(mac string) bool {
	_, err := net.ParseMAC(mac)
	return err == nil
}

// isValidInterfaceName은 OS가 부여하는 인터페이스 이름 형식인지 확인합니다
func isValidInterfaceName(name string) bool {
	return interfaceNameRegex.MatchString(name)
}

var interfaceNameRegex = regexp.MustCompile(`^\S[^\x00-\x1f]{0,254}$`)
