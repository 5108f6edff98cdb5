package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of an exchange error.
type ErrorType int

// Error type constants categorize errors for proper handling and retry logic.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork indicates a transport failure.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates no response arrived before the deadline.
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates the request rate limit was exceeded.
	ErrorTypeRateLimit
	// ErrorTypeAuthentication indicates invalid, expired or missing credentials.
	ErrorTypeAuthentication
	// ErrorTypeBadRequest indicates invalid request parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates the requested order or resource does not exist.
	ErrorTypeNotFound
	// ErrorTypeServerError indicates a failure on the exchange side.
	ErrorTypeServerError
	// ErrorTypeInsufficientFunds indicates the account lacks the required balance.
	ErrorTypeInsufficientFunds
	// ErrorTypeInvalidOrder indicates the order violates exchange rules.
	ErrorTypeInvalidOrder
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"NETWORK",
		"TIMEOUT",
		"RATE_LIMIT",
		"AUTHENTICATION",
		"BAD_REQUEST",
		"NOT_FOUND",
		"SERVER_ERROR",
		"INSUFFICIENT_FUNDS",
		"INVALID_ORDER",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNotConnected is returned when the WebSocket is not connected.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrNotAuthenticated is returned when a private request is sent before auth succeeded.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrCircuitBreakerOpen is returned when repeated auth failures opened the breaker.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	// ErrNoCredentials is returned when no API credentials are configured.
	ErrNoCredentials = errors.New("no credentials configured")
)

// ExchangeError is a failure reported by the exchange in a response envelope
// carrying an error status.
type ExchangeError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// Event is the wire event tag of the failed request.
	Event string `json:"event"`
	// OID is the request correlation id, when the request carried one.
	OID string `json:"oid,omitempty"`
	// Code is the normalized error code.
	Code string `json:"code,omitempty"`
	// Message is the error text returned by the exchange.
	Message string `json:"message"`
	// Timestamp is when the error was received.
	Timestamp time.Time `json:"timestamp"`
}

func (e *ExchangeError) Error() string {
	if e.OID != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Event, e.Type, e.OID, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Event, e.Type, e.Message)
}

// WithCode sets the error code and returns the error for chaining.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// NewExchangeError creates an ExchangeError, classifying it from the message text.
// The timestamp is automatically set to the current time.
func NewExchangeError(event, oid, message string) *ExchangeError {
	errType := ClassifyMessage(message)
	return &ExchangeError{
		Type:      errType,
		Event:     event,
		OID:       oid,
		Code:      string(codeForType(errType)),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ClassifyMessage maps the free-form error text sent by the exchange to an ErrorType.
func ClassifyMessage(message string) ErrorType {
	m := strings.ToLower(message)
	switch {
	case m == "":
		return ErrorTypeUnknown
	case strings.Contains(m, "signature"), strings.Contains(m, "api key"),
		strings.Contains(m, "permission"), strings.Contains(m, "not authenticated"),
		strings.Contains(m, "timestamp"):
		return ErrorTypeAuthentication
	case strings.Contains(m, "rate limit"), strings.Contains(m, "too many"):
		return ErrorTypeRateLimit
	case strings.Contains(m, "insufficient funds"), strings.Contains(m, "not enough"):
		return ErrorTypeInsufficientFunds
	case strings.Contains(m, "not found"):
		return ErrorTypeNotFound
	case strings.Contains(m, "minimum"), strings.Contains(m, "invalid amount"),
		strings.Contains(m, "invalid price"), strings.Contains(m, "place order"):
		return ErrorTypeInvalidOrder
	case strings.Contains(m, "invalid"), strings.Contains(m, "bad request"):
		return ErrorTypeBadRequest
	case strings.Contains(m, "internal"), strings.Contains(m, "unavailable"):
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// ParseError reports inbound text that is not well-formed JSON. Only the input
// size and the decoder's position and message are kept, never the text itself.
type ParseError struct {
	// Size is the length of the rejected input in bytes.
	Size int
	// Err is the underlying decoder error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse envelope (%d bytes): %v", e.Size, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SyntaxError is a decoder syntax error reduced to its position and message.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsRateLimitError returns true if the error is a rate limit violation.
// Rate limit errors should be retried after a delay.
func IsRateLimitError(err error) bool {
	var e *ExchangeError
	if errors.As(err, &e) {
		return e.Type == ErrorTypeRateLimit
	}
	return false
}

// IsAuthenticationError returns true if the error is an authentication failure.
// Authentication errors require credential validation and are not retryable.
func IsAuthenticationError(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrNoCredentials) {
		return true
	}
	var e *ExchangeError
	if errors.As(err, &e) {
		return e.Type == ErrorTypeAuthentication
	}
	return false
}

// IsTerminalError returns true if the error indicates a terminal condition.
// Terminal errors should not be retried as they will not succeed.
func IsTerminalError(err error) bool {
	var e *ExchangeError
	if errors.As(err, &e) {
		return e.Type == ErrorTypeInsufficientFunds ||
			e.Type == ErrorTypeInvalidOrder ||
			e.Type == ErrorTypeNotFound
	}
	return false
}
