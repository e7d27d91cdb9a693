package utils

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
)

// "N/A"는 아직 알려지지 않은 값을 나타내는 저장 포맷 표식
const unsetMarker = "N/A"

var (
	// OS가 부여하는 인터페이스 이름: 공백으로 시작하지 않고 제어 문자가 없음 (Windows 이름 포함)
	interfacePattern = regexp.MustCompile(`^\S[^\x00-\x1f]{0,254}$`)

	// 호스트네임 패턴
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-\.]*[a-zA-Z0-9]$`)
)

// ValidateInterfaceName은 인터페이스 이름이 유효한지 검증
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("인터페이스 이름이 비어있음")
	}

	if !interfacePattern.MatchString(name) {
		return fmt.Errorf("잘못된 인터페이스 이름 형식: %q", name)
	}

	return nil
}

// ValidateIPv4Address는 값이 IPv4 리터럴이거나 "N/A" 표식인지 검증
func ValidateIPv4Address(value string) error {
	if value == unsetMarker {
		return nil
	}

	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("잘못된 IPv4 주소: %q", value)
	}

	return nil
}

// ValidateHostname은 호스트네임이 유효한지 검증
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("호스트네임이 비어있음")
	}

	if len(hostname) > 253 {
		return fmt.Errorf("호스트네임이 너무 김: %d자 (최대 253자)", len(hostname))
	}

	if !hostnamePattern.MatchString(hostname) {
		return fmt.Errorf("잘못된 호스트네임 형식: %s", hostname)
	}

	return nil
}

// ValidateDatabaseConfig은 데이터베이스 설정이 유효한지 검증. 패스워드는 비어 있을 수 있음
func ValidateDatabaseConfig(host, port, user, database string) error {
	if host == "" {
		return fmt.Errorf("데이터베이스 호스트가 비어있음")
	}

	if port == "" {
		return fmt.Errorf("데이터베이스 포트가 비어있음")
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("잘못된 데이터베이스 포트: %s", port)
	}

	if user == "" {
		return fmt.Errorf("데이터베이스 사용자가 비어있음")
	}

	if database == "" {
		return fmt.Errorf("데이터베이스 이름이 비어있음")
	}

	return nil
}
