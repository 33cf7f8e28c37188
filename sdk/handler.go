package sdk

import (
	"math"

	"github.com/tidwall/gjson"
)

// ResponseHandler turns a raw response body into a decoded value or an error.
// dest must be a pointer to the response type.
type ResponseHandler interface {
	Handle(data []byte, decoder Decoder, dest any) error
}

// ResponseHandlerFunc adapts a function to the ResponseHandler interface.
type ResponseHandlerFunc func(data []byte, decoder Decoder, dest any) error

// Handle implements ResponseHandler
func (f ResponseHandlerFunc) Handle(data []byte, decoder Decoder, dest any) error {
	return f(data, decoder, dest)
}

// FlatHandler unwraps the Flat envelope:
//
//	{ "status": 0, "code": <optional int>, "<payload-key>": <T> }
//
// The body is read twice: once to check the envelope, once to decode the payload
// under the decoder's key. A code of 100006 calls OnSessionExpired and fails with
// ErrSessionExpired whatever the status is.
type FlatHandler struct {
	// OnSessionExpired is called when the server reports an expired token.
	// It must not block; the provider posts the logout to its main executor.
	OnSessionExpired func()
}

// Handle implements ResponseHandler
func (h *FlatHandler) Handle(data []byte, decoder Decoder, dest any) error {
	if !gjson.ValidBytes(data) {
		return messageError(ErrUnknownDataType)
	}
	envelope := gjson.ParseBytes(data)
	if !envelope.IsObject() {
		return messageError(ErrUnknownDataType)
	}
	status := envelope.Get("status")
	if !isInteger(status) {
		return messageError(ErrUnknownDataType)
	}

	if code := envelope.Get("code"); isInteger(code) && FlatErrorCode(code.Int()) == CodeJWTSignFailed {
		if h.OnSessionExpired != nil {
			h.OnSessionExpired()
		}
		return messageError(ErrSessionExpired)
	}

	if status.Int() != 0 {
		return serverError(data)
	}

	if err := decoder.DecodeKeyed(data, dest); err != nil {
		return decodeError(err)
	}
	return nil
}

// AgoraHandler checks the `result` field of an Agora RTM response and then decodes
// the payload under the decoder's key, or the whole body when no key is set.
type AgoraHandler struct{}

// Handle implements ResponseHandler
func (AgoraHandler) Handle(data []byte, decoder Decoder, dest any) error {
	if !gjson.ValidBytes(data) {
		return serverError(data)
	}
	body := gjson.ParseBytes(data)
	if !body.IsObject() || body.Get("result").String() != "success" {
		return serverError(data)
	}
	if err := decoder.DecodeKeyed(data, dest); err != nil {
		return decodeError(err)
	}
	return nil
}

// NetlessHandler decodes the body directly: Netless responses have no envelope.
type NetlessHandler struct{}

// Handle implements ResponseHandler
func (NetlessHandler) Handle(data []byte, decoder Decoder, dest any) error {
	if err := decoder.DecodeKeyed(data, dest); err != nil {
		return decodeError(err)
	}
	return nil
}

func isInteger(r gjson.Result) bool {
	return r.Type == gjson.Number && r.Num == math.Trunc(r.Num)
}
