package errors

// CodePair 는 에러 코드별 HTTP/gRPC 코드 쌍입니다.
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

var codeMapping = map[string]CodePair{
	ErrInternal:        {500, 13}, // INTERNAL
	ErrNotFound:        {404, 5},  // NOT_FOUND
	ErrInvalidArgument: {400, 3},  // INVALID_ARGUMENT
	ErrUnauthenticated: {401, 16}, // UNAUTHENTICATED
	ErrUnauthorized:    {403, 7},  // PERMISSION_DENIED
	ErrConflict:        {409, 6},  // ALREADY_EXISTS
	ErrTimeout:         {504, 4},  // DEADLINE_EXCEEDED
	ErrNotImplemented:  {501, 12}, // UNIMPLEMENTED
	ErrBadGateway:      {502, 14}, // UNAVAILABLE
	ErrUnavailable:     {503, 14}, // UNAVAILABLE
}

// GetCodeMapping 은 에러 코드에 대응하는 HTTP 상태와 gRPC 코드를 반환합니다.
// 모르는 코드는 500/INTERNAL 입니다.
func GetCodeMapping(code string) (int, int) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13
}
