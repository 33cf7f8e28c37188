package sdk

import (
	"net/http"
)

// Method is the HTTP method of a request.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

// BackendKind identifies which remote service a request belongs to.
type BackendKind int

const (
	// BackendFlat is the Flat application server (enveloped responses)
	BackendFlat BackendKind = iota
	// BackendAgora is the Agora RTM REST service
	BackendAgora
	// BackendNetless is the Netless whiteboard conversion service
	BackendNetless
)

// String returns the string representation of the backend kind
func (k BackendKind) String() string {
	switch k {
	case BackendFlat:
		return "flat"
	case BackendAgora:
		return "agora"
	case BackendNetless:
		return "netless"
	default:
		return "unknown"
	}
}

// Request describes a single API call. It is a pure description: building and
// sending it is the provider's job.
//
// Concrete requests embed one of the backend markers (Flat, Agora, Netless) and a
// Returns[T] marker naming the response type:
//
//	type JoinRoom struct {
//	    sdk.Flat
//	    sdk.Returns[RoomPlayInfo]
//	    UUID string
//	}
//
//	func (r JoinRoom) Path() string  { return "/v1/room/join" }
//	func (r JoinRoom) Task() sdk.Task { return sdk.JSONTask(map[string]string{"uuid": r.UUID}) }
type Request interface {
	// Backend names the service the request is sent to
	Backend() BackendKind
	// Path is appended to the backend's base URL
	Path() string
	// Task describes how the body is encoded
	Task() Task
}

// TypedRequest is a Request whose response decodes into T.
type TypedRequest[T any] interface {
	Request
	// ResponseType is a marker; its return value is never used
	ResponseType() T
}

// MethodOverrider lets a request replace the backend's default method.
type MethodOverrider interface {
	Method() Method
}

// DecoderOverrider lets a request replace the backend's default decoder,
// typically to change the payload key or the date strategy.
type DecoderOverrider interface {
	Decoder() Decoder
}

// HeaderProvider supplies extra headers for a request (e.g. the Netless `token`).
type HeaderProvider interface {
	Headers() map[string]string
}

// BaseURLOverrider lets a request target a different server than the backend default.
// The second return value is false when the default base URL should be used.
type BaseURLOverrider interface {
	BaseURL() (string, bool)
}

// Flat marks a request as belonging to the Flat backend.
type Flat struct{}

// Backend implements Request
func (Flat) Backend() BackendKind { return BackendFlat }

// Agora marks a request as belonging to the Agora backend.
type Agora struct{}

// Backend implements Request
func (Agora) Backend() BackendKind { return BackendAgora }

// Netless marks a request as belonging to the Netless backend.
type Netless struct{}

// Backend implements Request
func (Netless) Backend() BackendKind { return BackendNetless }

// Returns marks the response type of a request.
type Returns[T any] struct{}

// ResponseType implements TypedRequest
func (Returns[T]) ResponseType() T {
	var zero T
	return zero
}

// TaskKind enumerates body encodings.
type TaskKind int

const (
	// TaskPlain sends no body
	TaskPlain TaskKind = iota
	// TaskJSON sends a JSON-encoded body
	TaskJSON
	// TaskForm sends URL form parameters
	TaskForm
)

// Task describes how a request body is encoded.
type Task struct {
	Kind TaskKind
	// Value is JSON-encoded for TaskJSON
	Value any
	// Params are form-encoded for TaskForm
	Params map[string]any
	// Marshal overrides the backend's JSON encoder for TaskJSON
	Marshal func(any) ([]byte, error)
}

// PlainTask returns a task without a body.
func PlainTask() Task {
	return Task{Kind: TaskPlain}
}

// JSONTask returns a task sending v as JSON with the backend's encoder.
func JSONTask(v any) Task {
	return Task{Kind: TaskJSON, Value: v}
}

// JSONTaskWith returns a task sending v as JSON with a custom encoder.
func JSONTaskWith(v any, marshal func(any) ([]byte, error)) Task {
	return Task{Kind: TaskJSON, Value: v, Marshal: marshal}
}

// FormTask returns a task sending params URL-form encoded.
func FormTask(params map[string]any) Task {
	return Task{Kind: TaskForm, Params: params}
}
