package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const userAgent = "flat-client-go/1.0.0"

// TokenSource supplies the bearer token for Flat requests. SessionStore implements it.
type TokenSource interface {
	Token() string
}

// Backend is the binding of one remote service: where requests go, the default
// method and decoder, how bodies are encoded, how requests are authorized and how
// responses are unwrapped. The provider consults it for every request of that kind.
type Backend struct {
	Kind    BackendKind
	BaseURL string
	// Method is used unless the request implements MethodOverrider
	Method Method
	// Decoder is used unless the request implements DecoderOverrider
	Decoder Decoder
	// Marshal encodes JSON task bodies unless the task carries its own encoder
	Marshal func(any) ([]byte, error)
	// Handler unwraps responses
	Handler ResponseHandler
	// Authorize adds authentication headers, may be nil
	Authorize func(http.Header)
	// EmptyJSONBody makes POST requests default to a `{}` JSON body
	EmptyJSONBody bool
}

// FlatBackend returns the Flat binding: POST, envelope decoding keyed on "data",
// millisecond dates and a bearer token read from tokens on every request.
func FlatBackend(baseURL string, tokens TokenSource, handler *FlatHandler) *Backend {
	if handler == nil {
		handler = &FlatHandler{}
	}
	return &Backend{
		Kind:          BackendFlat,
		BaseURL:       baseURL,
		Method:        MethodPost,
		Decoder:       NewDecoder("data", DateMillis),
		Marshal:       json.Marshal,
		Handler:       handler,
		EmptyJSONBody: true,
		Authorize: func(h http.Header) {
			if tokens == nil {
				return
			}
			if token := tokens.Token(); token != "" {
				h.Set("Authorization", "Bearer "+token)
			}
		},
	}
}

// AgoraCredentials holds the RTM token and uid sent with every Agora request.
// It is safe for concurrent use.
type AgoraCredentials struct {
	mu    sync.RWMutex
	token string
	uid   string
}

// Set replaces the credentials
func (c *AgoraCredentials) Set(token, uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.uid = uid
}

func (c *AgoraCredentials) apply(h http.Header) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h.Set("x-agora-token", c.token)
	h.Set("x-agora-uid", c.uid)
}

// AgoraBackend returns the Agora RTM binding: POST, no envelope, ISO-8601 dates.
// Requests choose their own payload key through DecoderOverrider.
func AgoraBackend(baseURL string, creds *AgoraCredentials) *Backend {
	if creds == nil {
		creds = &AgoraCredentials{}
	}
	return &Backend{
		Kind:      BackendAgora,
		BaseURL:   baseURL,
		Method:    MethodPost,
		Decoder:   NewDecoder("", DateISO8601),
		Marshal:   json.Marshal,
		Handler:   AgoraHandler{},
		Authorize: creds.apply,
	}
}

// NetlessBackend returns the Netless binding: GET, plain JSON, no envelope.
// Authentication headers come from the request (HeaderProvider).
func NetlessBackend(baseURL string) *Backend {
	return &Backend{
		Kind:    BackendNetless,
		BaseURL: baseURL,
		Method:  MethodGet,
		Decoder: NewDecoder("", DateISO8601),
		Marshal: json.Marshal,
		Handler: NetlessHandler{},
	}
}

// MethodFor returns the method req is sent with.
func (b *Backend) MethodFor(req Request) Method {
	if o, ok := req.(MethodOverrider); ok {
		return o.Method()
	}
	return b.Method
}

// DecoderFor returns the decoder req's response is read with.
func (b *Backend) DecoderFor(req Request) Decoder {
	if o, ok := req.(DecoderOverrider); ok {
		return o.Decoder()
	}
	return b.Decoder
}

// BuildRequest turns a request description into an *http.Request.
func (b *Backend) BuildRequest(ctx context.Context, req Request) (*http.Request, error) {
	base := b.BaseURL
	if o, ok := req.(BaseURLOverrider); ok {
		if custom, ok := o.BaseURL(); ok {
			base = custom
		}
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + req.Path())
	if err != nil {
		return nil, encodeError(fmt.Errorf("invalid url for %s: %w", req.Path(), err))
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, encodeError(fmt.Errorf("url without scheme or host: %s", u.String()))
	}

	method := b.MethodFor(req)
	header := make(http.Header)
	header.Set("Accept", "application/json")
	header.Set("User-Agent", userAgent)
	if b.Authorize != nil {
		b.Authorize(header)
	}

	var body []byte
	if method == MethodPost && b.EmptyJSONBody {
		header.Set(contentTypeHeader, contentTypeJSON)
		body = []byte("{}")
	}

	if hp, ok := req.(HeaderProvider); ok {
		for k, v := range hp.Headers() {
			header.Set(k, v)
		}
	}

	task := req.Task()
	switch task.Kind {
	case TaskForm:
		appendQuery(u, task.Params)
		if header.Get(contentTypeHeader) == "" {
			header.Set(contentTypeHeader, contentTypeForm)
		}
	case TaskJSON:
		marshal := task.Marshal
		if marshal == nil {
			marshal = b.Marshal
		}
		data, err := marshal(task.Value)
		if err != nil {
			return nil, encodeError(err)
		}
		body = data
		if header.Get(contentTypeHeader) == "" {
			header.Set(contentTypeHeader, contentTypeJSON)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(method), u.String(), bodyReader)
	if err != nil {
		return nil, encodeError(err)
	}
	httpReq.Header = header
	return httpReq, nil
}
