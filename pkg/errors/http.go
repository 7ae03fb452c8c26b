package errors

// ToHTTPStatus 는 에러 코드를 HTTP 상태 코드로 변환합니다.
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}
