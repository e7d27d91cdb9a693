package errors

import (
	"errors"
	"fmt"
)

// ErrorType은 에러의 종류를 나타냅니다
type ErrorType string

const (
	// ErrorTypeValidation은 유효성 검증 실패를 나타냅니다
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound는 리소스를 찾을 수 없음을 나타냅니다
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeConflict는 충돌이 발생했음을 나타냅니다
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeSystem은 시스템 레벨 에러를 나타냅니다
	ErrorTypeSystem ErrorType = "SYSTEM"

	// ErrorTypeNetwork는 네트워크 관련 에러를 나타냅니다
	ErrorTypeNetwork ErrorType = "NETWORK"

	// ErrorTypeTimeout은 타임아웃 에러를 나타냅니다
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// ErrorTypeIndex는 인터페이스 또는 게이트웨이 위치가 범위를 벗어났음을 나타냅니다
	ErrorTypeIndex ErrorType = "INDEX"

	// ErrorTypePersistence는 저장 매체의 읽기/쓰기/직렬화 실패를 나타냅니다
	ErrorTypePersistence ErrorType = "PERSISTENCE"

	// ErrorTypeExternalQuery는 라우팅 테이블/리졸버 조회 실패를 나타냅니다
	ErrorTypeExternalQuery ErrorType = "EXTERNAL_QUERY"
)

// DomainError는 도메인 레벨의 에러를 나타냅니다
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error는 error 인터페이스를 구현합니다
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap은 내부 에러를 반환합니다
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is는 에러 비교를 위한 메서드입니다
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// 생성자 함수들

// NewValidationError는 유효성 검증 에러를 생성합니다
func NewValidationError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError는 리소스를 찾을 수 없는 에러를 생성합니다
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflictError는 충돌 에러를 생성합니다
func NewConflictError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewSystemError는 시스템 에러를 생성합니다
func NewSystemError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeSystem,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError는 네트워크 관련 에러를 생성합니다
func NewNetworkError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeNetwork,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError는 타임아웃 에러를 생성합니다
func NewTimeoutError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeTimeout,
		Message: message,
	}
}

// NewIndexError는 범위를 벗어난 인덱스 에러를 생성합니다
func NewIndexError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeIndex,
		Message: message,
	}
}

// NewPersistenceError는 저장 매체 에러를 생성합니다
func NewPersistenceError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypePersistence,
		Message: message,
		Cause:   cause,
	}
}

// NewExternalQueryError는 호스트 조회 실패 에러를 생성합니다
func NewExternalQueryError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeExternalQuery,
		Message: message,
		Cause:   cause,
	}
}

// 에러 타입 확인 헬퍼 함수들

// TypeOf는 에러 체인에서 DomainError의 타입을 찾아 반환합니다
func TypeOf(err error) (ErrorType, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type, true
	}
	return "", false
}

func hasType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsValidationError는 유효성 검증 에러인지 확인합니다
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError는 리소스를 찾을 수 없는 에러인지 확인합니다
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsConflictError는 충돌 에러인지 확인합니다
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsSystemError는 시스템 에러인지 확인합니다
func IsSystemError(err error) bool {
	return hasType(err, ErrorTypeSystem)
}

// IsNetworkError는 네트워크 에러인지 확인합니다
func IsNetworkError(err error) bool {
	return hasType(err, ErrorTypeNetwork)
}

// IsTimeoutError는 타임아웃 에러인지 확인합니다
func IsTimeoutError(err error) bool {
	return hasType(err, ErrorTypeTimeout)
}

// IsIndexError는 인덱스 범위 에러인지 확인합니다
func IsIndexError(err error) bool {
	return hasType(err, ErrorTypeIndex)
}

// IsPersistenceError는 저장 매체 에러인지 확인합니다
func IsPersistenceError(err error) bool {
	return hasType(err, ErrorTypePersistence)
}

// IsExternalQueryError는 호스트 조회 에러인지 확인합니다
func IsExternalQueryError(err error) bool {
	return hasType(err, ErrorTypeExternalQuery)
}
