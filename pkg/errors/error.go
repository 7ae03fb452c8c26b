package errors

import (
	"errors"
	"fmt"
)

// 표준 라이브러리 함수 재노출
var (
	Is = errors.Is
	As = errors.As
)

// Error 는 코드를 가진 에러입니다.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError 는 Error 의 기본 구현체입니다.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string { return e.code }

// Message 는 내부 에러를 제외한 메시지만 반환합니다.
func (e *AppError) Message() string { return e.message }

func (e *AppError) Unwrap() error { return e.err }

// NewAppError 는 새 애플리케이션 에러를 생성합니다.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// CodeOf 는 에러 체인에서 처음 발견되는 코드를 반환합니다. 없으면 ErrInternal.
func CodeOf(err error) string {
	var coded Error
	if As(err, &coded) {
		return coded.Code()
	}
	return ErrInternal
}
