package market

import "fmt"

var (
	ErrInvalidSymbol        = &Error{Code: "invalid_symbol", Message: "Invalid or empty symbol"}
	ErrUnsupportedPeriod    = &Error{Code: "unsupported_period", Message: "Provider does not support the requested kline period"}
	ErrUnsupportedOperation = &Error{Code: "unsupported_operation", Message: "Provider does not support this operation"}
	ErrUpstreamUnavailable  = &Error{Code: "upstream_unavailable", Message: "Upstream provider unavailable"}
	ErrMalformedResponse    = &Error{Code: "malformed_response", Message: "Upstream returned a malformed response"}
	ErrAllProvidersFailed   = &Error{Code: "all_providers_failed", Message: "All data providers failed"}
)

// Error 数据源错误，Code 用于分类判定，Cause 保留底层错误
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 同 Code 即视为同类错误，便于 errors.Is 判定包装后的实例
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WrapErr 以给定分类包装底层错误
func WrapErr(kind *Error, cause error) *Error {
	return &Error{Code: kind.Code, Message: kind.Message, Cause: cause}
}

// WrapErrf 以给定分类生成带格式化说明的错误
func WrapErrf(kind *Error, format string, args ...interface{}) *Error {
	return &Error{Code: kind.Code, Message: kind.Message, Cause: fmt.Errorf(format, args...)}
}
