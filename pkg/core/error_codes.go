package core

import "errors"

// ErrorCode is a stable, machine-readable identifier attached to an ExchangeError.
type ErrorCode string

const (
	ErrCodeUnknown           ErrorCode = "UNKNOWN"
	ErrCodeNetwork           ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeRateLimit         ErrorCode = "RATE_LIMIT"
	ErrCodeAuth              ErrorCode = "AUTH_ERROR"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeServerError       ErrorCode = "SERVER_ERROR"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidOrder      ErrorCode = "INVALID_ORDER"

	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Session errors
	ErrCodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeDisconnecting    ErrorCode = "DISCONNECTING"
)

func codeForType(t ErrorType) ErrorCode {
	return [...]ErrorCode{
		ErrCodeUnknown,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeRateLimit,
		ErrCodeAuth,
		ErrCodeBadRequest,
		ErrCodeNotFound,
		ErrCodeServerError,
		ErrCodeInsufficientFunds,
		ErrCodeInvalidOrder,
	}[t]
}

// IsErrorCode checks if the error matches the specified error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code) == code
	}
	return false
}
