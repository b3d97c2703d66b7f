package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType API 错误类型
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error" // 400
	ErrorTypeAuthentication ErrorType = "authentication_error"  // 401
	ErrorTypePermission     ErrorType = "permission_error"      // 403
	ErrorTypeNotFound       ErrorType = "not_found_error"       // 404
	ErrorTypeRateLimit      ErrorType = "rate_limit_error"      // 429
	ErrorTypeAPI            ErrorType = "api_error"             // 5xx
	ErrorTypeTransport      ErrorType = "transport_error"       // 连接 / 读写失败
	ErrorTypeDecode         ErrorType = "decode_error"          // 响应或流数据无法解析
)

// retriableStatus 可重试的 HTTP 状态码
var retriableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetriableStatus 判断 HTTP 状态码是否可重试
func IsRetriableStatus(code int) bool {
	return retriableStatus[code]
}

// ProviderError Provider 错误
type ProviderError struct {
	Type       ErrorType // 错误类型
	Provider   string    // Provider 名称
	StatusCode int       // HTTP 状态码（传输层错误为 0）
	Message    string    // 错误消息
	RetryAfter string    // 服务端返回的 Retry-After 原值
	Err        error     // 原始错误
}

func (e *ProviderError) Error() string {
	status := ""
	if e.StatusCode != 0 {
		status = fmt.Sprintf("[%d]", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s]%s %s: %v", e.Provider, e.Type, status, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s]%s %s", e.Provider, e.Type, status, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否可重试
func (e *ProviderError) IsRetryable() bool {
	if e.Type == ErrorTypeTransport {
		return true
	}
	return IsRetriableStatus(e.StatusCode)
}

// NewProviderError 创建 Provider 错误
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Type:     ErrorTypeAPI,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewTransportError 创建传输层错误（可重试）
func NewTransportError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Type:     ErrorTypeTransport,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewStatusError 根据 HTTP 响应创建错误
func NewStatusError(provider string, statusCode int, body, retryAfter string) *ProviderError {
	return &ProviderError{
		Type:       errorTypeFromStatus(statusCode),
		Provider:   provider,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("API error: %s", body),
		RetryAfter: retryAfter,
	}
}

func errorTypeFromStatus(code int) ErrorType {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	default:
		return ErrorTypeAPI
	}
}

// AsProviderError 提取 ProviderError
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
