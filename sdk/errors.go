package sdk

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Common errors returned by the SDK. These can be used with errors.Is()
// to check for specific error conditions.
//
// Example:
//
//	user, err := sdk.Do[User](ctx, provider, requests.PasswordLogin{...})
//	if errors.Is(err, sdk.ErrSessionExpired) {
//	    // The session store has already been asked to log out
//	} else if errors.Is(err, sdk.ErrServerError) {
//	    // Business failure, status != 0
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrServerError is returned when a Flat envelope reports status != 0
	ErrServerError = errors.New("server error")

	// ErrSessionExpired is returned when the server signals that the auth token expired
	ErrSessionExpired = errors.New("JWT expire")

	// ErrUnknownDataType is returned when a Flat body is not an envelope
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrDecode is returned when a payload cannot be decoded into the response type
	ErrDecode = errors.New("decode error")

	// ErrEncode is returned when a request body cannot be encoded
	ErrEncode = errors.New("encode error")

	// ErrClosed is returned when the provider has been closed
	ErrClosed = errors.New("provider is closed")
)

// ErrorType represents the type of error for categorization and handling.
//
// Example:
//
//	var apiErr *sdk.Error
//	if errors.As(err, &apiErr) {
//	    switch apiErr.Type {
//	    case sdk.ErrorTypeServer:
//	        // show apiErr.Message, the raw body
//	    case sdk.ErrorTypeNetwork:
//	        // connectivity problem
//	    }
//	}
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown or unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeServer is an envelope whose status is not 0. Message holds the raw body.
	ErrorTypeServer
	// ErrorTypeMessage is a local failure described by a message (envelope shape, session expiry)
	ErrorTypeMessage
	// ErrorTypeEncode is a request body that could not be encoded
	ErrorTypeEncode
	// ErrorTypeDecode is a response body that could not be decoded
	ErrorTypeDecode
	// ErrorTypeNetwork is a transport failure (dial, TLS, canceled context)
	ErrorTypeNetwork
	// ErrorTypeStatus is an HTTP response with a status other than 200
	ErrorTypeStatus
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeServer:
		return "server"
	case ErrorTypeMessage:
		return "message"
	case ErrorTypeEncode:
		return "encode"
	case ErrorTypeDecode:
		return "decode"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Error is the error value returned by every request.
// It supports error wrapping via errors.Is() and errors.As().
type Error struct {
	// Type categorizes the error
	Type ErrorType `json:"type"`
	// Message is the human-readable description. For server errors it is the raw body.
	Message string `json:"message"`
	// StatusCode is the HTTP status, when one was received
	StatusCode int `json:"status_code,omitempty"`
	// Path is the request path that failed
	Path string `json:"path,omitempty"`
	// Timestamp is when the error occurred
	Timestamp time.Time `json:"timestamp"`
	// wrapped is the underlying error, if any
	wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeMessage:
		return e.Message
	case ErrorTypeServer:
		if code, ok := e.ServerCode(); ok {
			return fmt.Sprintf("server error: code: %d (%s)", int(code), code)
		}
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s (path: %s)", e.Type, e.Message, e.Path)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrorTypeServer:
		return target == ErrServerError
	case ErrorTypeDecode:
		return target == ErrDecode
	case ErrorTypeEncode:
		return target == ErrEncode
	}
	return false
}

// ServerCode extracts the server-defined code from the body of a server error.
func (e *Error) ServerCode() (FlatErrorCode, bool) {
	if e.Type != ErrorTypeServer || !gjson.Valid(e.Message) {
		return 0, false
	}
	code := gjson.Get(e.Message, "code")
	if code.Type != gjson.Number {
		return 0, false
	}
	return FlatErrorCode(code.Int()), true
}

// WithPath records the request path on the error
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// NewError creates a new error
func NewError(errType ErrorType, message string, wrapped error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		wrapped:   wrapped,
	}
}

// serverError builds the error for an envelope whose status is not 0.
func serverError(body []byte) *Error {
	return NewError(ErrorTypeServer, string(body), nil)
}

// messageError builds a message error around one of the sentinels.
func messageError(sentinel error) *Error {
	return NewError(ErrorTypeMessage, sentinel.Error(), sentinel)
}

func decodeError(cause error) *Error {
	return NewError(ErrorTypeDecode, cause.Error(), cause)
}

func encodeError(cause error) *Error {
	return NewError(ErrorTypeEncode, cause.Error(), cause)
}

// IsServerError reports whether err is a business failure reported by a Flat envelope.
func IsServerError(err error) bool {
	return errors.Is(err, ErrServerError)
}

// IsSessionExpired reports whether err carries the session expiry signal.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsDecodeError reports whether err is a decode failure.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrorTypeNetwork
	}
	return false
}
