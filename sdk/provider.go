package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Provider sends requests to the three backends and unwraps their responses.
// It is safe for concurrent use.
//
// Example:
//
//	session := sdk.NewSessionStore(store)
//	_ = session.Load(ctx)
//
//	provider, err := sdk.NewProvider(sdk.NewConfigFromEnv(), session)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	info, err := sdk.Do[requests.RoomPlayInfo](ctx, provider, requests.JoinRoom{UUID: uuid})
type Provider struct {
	config   *Config
	client   *http.Client
	session  *SessionStore
	backends map[BackendKind]*Backend
	agora    *AgoraCredentials
	observer Observer
	logger   logrus.FieldLogger
	main     Executor

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
	nextID   uint64
	closed   bool
}

// NewProvider creates a provider. session may be nil, in which case Flat
// requests carry no token and an expired token only fails the request.
func NewProvider(config *Config, session *SessionStore) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	transport := config.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        config.TransportConfig.MaxIdleConns,
			MaxConnsPerHost:     config.TransportConfig.MaxConnsPerHost,
			IdleConnTimeout:     config.TransportConfig.IdleConnTimeout,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	p := &Provider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		session:  session,
		agora:    &AgoraCredentials{},
		observer: config.Observer,
		logger:   config.Logger,
		main:     config.MainExecutor,
		inflight: make(map[uint64]context.CancelFunc),
	}

	var tokens TokenSource
	if session != nil {
		tokens = session
	}
	flatHandler := &FlatHandler{OnSessionExpired: p.expireSession}
	p.backends = map[BackendKind]*Backend{
		BackendFlat:    FlatBackend(config.FlatBaseURL, tokens, flatHandler),
		BackendAgora:   AgoraBackend(config.AgoraBaseURL, p.agora),
		BackendNetless: NetlessBackend(config.NetlessBaseURL),
	}
	return p, nil
}

// Backend returns the binding used for kind.
func (p *Provider) Backend(kind BackendKind) *Backend {
	return p.backends[kind]
}

// AgoraCredentials returns the credentials sent with Agora requests.
func (p *Provider) AgoraCredentials() *AgoraCredentials {
	return p.agora
}

// Session returns the session store the provider was created with.
func (p *Provider) Session() *SessionStore {
	return p.session
}

// Do sends req and decodes its response into T. It blocks until the response
// is unwrapped or ctx is done.
func Do[T any](ctx context.Context, p *Provider, req TypedRequest[T]) (T, error) {
	var result T
	err := p.Send(ctx, req, &result)
	return result, err
}

// Go sends req on a new goroutine and delivers the outcome to completion on
// the provider's main executor. If the executor is a closed SerialQueue,
// completion runs on the request goroutine instead, so it is always called
// exactly once.
func Go[T any](ctx context.Context, p *Provider, req TypedRequest[T], completion func(T, error)) {
	go func() {
		result, err := Do(ctx, p, req)
		postOrRun(p.main, func() { completion(result, err) })
	}()
}

// Send sends req and decodes its response into dest, which must be a pointer.
// Prefer Do, which checks the response type at compile time.
func (p *Provider) Send(ctx context.Context, req Request, dest any) error {
	backend, ok := p.backends[req.Backend()]
	if !ok {
		return NewError(ErrorTypeUnknown, fmt.Sprintf("no backend for %s", req.Backend()), nil)
	}

	ctx, done, err := p.track(ctx)
	if err != nil {
		return err
	}
	defer done()

	kind := backend.Kind
	method := string(backend.MethodFor(req))
	path := req.Path()

	ctx = p.observer.OnRequestStart(ctx, kind, method, path)
	start := time.Now()
	status, err := p.roundTrip(ctx, backend, req, dest)
	duration := time.Since(start)

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Path == "" {
		apiErr.WithPath(path)
	}
	if IsSessionExpired(err) {
		p.observer.OnSessionExpired(path)
	}
	p.observer.OnRequestEnd(ctx, kind, method, path, status, duration, err)
	p.log(kind, method, path, status, duration, err)
	return err
}

func (p *Provider) roundTrip(ctx context.Context, backend *Backend, req Request, dest any) (int, error) {
	httpReq, err := backend.BuildRequest(ctx, req)
	if err != nil {
		return 0, err
	}
	for key, value := range p.config.Headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return 0, NewError(ErrorTypeNetwork, err.Error(), err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return resp.StatusCode, NewError(ErrorTypeNetwork, "reading response: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := NewError(ErrorTypeStatus, fmt.Sprintf("error statusCode %d, %s", resp.StatusCode, body), nil)
		statusErr.StatusCode = resp.StatusCode
		return resp.StatusCode, statusErr
	}
	if len(body) == 0 {
		return resp.StatusCode, decodeError(errors.New("no data"))
	}

	return resp.StatusCode, backend.Handler.Handle(body, backend.DecoderFor(req), dest)
}

func (p *Provider) log(kind BackendKind, method, path string, status int, duration time.Duration, err error) {
	entry := p.logger.WithFields(logrus.Fields{
		"backend":     kind.String(),
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case err == nil:
		entry.Debug("request completed")
	case IsDecodeError(err):
		entry.WithError(err).Error("failed to decode response")
	case IsNetworkError(err):
		entry.WithError(err).Warn("request failed")
	default:
		entry.WithError(err).Info("request rejected")
	}
}

// expireSession runs on the goroutine that unwrapped the response, so the
// logout is posted to the main executor and the caller gets its error at once.
func (p *Provider) expireSession() {
	p.main.Post(func() {
		p.logger.Warn("jwt expired, logging out")
		p.CancelAll()
		if p.session == nil {
			return
		}
		_ = p.session.Logout(context.Background())
	})
}

// track derives a cancelable context registered for CancelAll.
func (p *Provider) track(ctx context.Context) (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	id := p.nextID
	p.nextID++
	p.inflight[id] = cancel
	return ctx, func() {
		p.mu.Lock()
		delete(p.inflight, id)
		p.mu.Unlock()
		cancel()
	}, nil
}

// CancelAll cancels every request in flight. Requests sent afterwards are unaffected.
func (p *Provider) CancelAll() {
	p.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(p.inflight))
	for id, cancel := range p.inflight {
		cancels = append(cancels, cancel)
		delete(p.inflight, id)
	}
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Close cancels in-flight requests and rejects new ones with ErrClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.CancelAll()
	p.client.CloseIdleConnections()
	return nil
}
