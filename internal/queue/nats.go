package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/birbparty/flat-client/sdk"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// SessionPublisher broadcasts session store transitions on NATS JetStream.
// It implements sdk.SessionDelegate; subscribe it to a SessionStore.
type SessionPublisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	config  *Config
	metrics *telemetry.Metrics
	logger  logrus.FieldLogger

	// acks still awaited by emit
	pending sync.WaitGroup
}

var _ sdk.SessionDelegate = (*SessionPublisher)(nil)

// NewSessionPublisher connects to NATS and creates the session stream
func NewSessionPublisher(config *Config, metrics *telemetry.Metrics, logger logrus.FieldLogger) (*SessionPublisher, error) {
	if logger == nil {
		logger = telemetry.L()
	}
	log := logger.WithField("component", "session-publisher")

	opts := []nats.Option{
		nats.Name(config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
	}
	if config.User != "" && config.Password != "" {
		opts = append(opts, nats.UserInfo(config.User, config.Password))
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &SessionPublisher{nc: nc, js: js, config: config, metrics: metrics, logger: log}
	if err := p.initializeStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize stream: %w", err)
	}
	return p, nil
}

func (p *SessionPublisher) initializeStream() error {
	streamConfig := &nats.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Flat session transitions",
		Subjects:    []string{SubjectAll},
		Retention:   nats.LimitsPolicy,
		MaxAge:      p.config.StreamMaxAge,
		Replicas:    p.config.Replicas,
		Duplicates:  time.Minute,
		Storage:     nats.FileStorage,
	}

	if _, err := p.js.AddStream(streamConfig); err != nil {
		if _, err = p.js.UpdateStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create/update stream: %w", err)
		}
	}
	return nil
}

// Publish sends e and waits for the JetStream ack
func (p *SessionPublisher) Publish(ctx context.Context, e *SessionEvent) error {
	pubAck, err := p.publishAsync(e)
	if err != nil {
		return err
	}

	select {
	case <-pubAck.Ok():
		return nil
	case err := <-pubAck.Err():
		return fmt.Errorf("session event publish failed: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *SessionPublisher) publishAsync(e *SessionEvent) (nats.PubAckFuture, error) {
	data, err := e.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session event: %w", err)
	}
	pubAck, err := p.js.PublishAsync(e.Type.Subject(), data, nats.MsgId(e.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to publish session event: %w", err)
	}
	return pubAck, nil
}

// OnLoginSuccess implements sdk.SessionDelegate
func (p *SessionPublisher) OnLoginSuccess(user sdk.User) {
	e := NewSessionEvent(EventLoginSuccess)
	e.UserUUID = user.UserUUID
	e.Name = user.Name
	p.emit(e)
}

// OnLoginFailure implements sdk.SessionDelegate
func (p *SessionPublisher) OnLoginFailure(err error) {
	e := NewSessionEvent(EventLoginFailure)
	if err != nil {
		e.Error = err.Error()
	}
	p.emit(e)
}

// OnLogout implements sdk.SessionDelegate
func (p *SessionPublisher) OnLogout() {
	p.emit(NewSessionEvent(EventLogout))
}

// emit hands e to JetStream and returns without waiting for the ack. Session
// callbacks may run on the main executor, which a slow broker must not hold.
func (p *SessionPublisher) emit(e *SessionEvent) {
	pubAck, err := p.publishAsync(e)
	if err != nil {
		p.record(e, err)
		return
	}

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		timer := time.NewTimer(p.config.PublishTimeout)
		defer timer.Stop()

		var err error
		select {
		case <-pubAck.Ok():
		case ackErr := <-pubAck.Err():
			err = fmt.Errorf("session event publish failed: %w", ackErr)
		case <-timer.C:
			err = fmt.Errorf("no ack within %s", p.config.PublishTimeout)
		}
		p.record(e, err)
	}()
}

func (p *SessionPublisher) record(e *SessionEvent, err error) {
	if p.metrics != nil {
		p.metrics.RecordSessionEvent(string(e.Type), err)
	}
	if err != nil {
		p.logger.WithError(err).WithField("event", e.Type).Warn("Failed to publish session event")
	}
}

// Subscribe delivers every session event published from now on to handler
func (p *SessionPublisher) Subscribe(handler func(*SessionEvent)) (*nats.Subscription, error) {
	sub, err := p.js.Subscribe(SubjectAll, func(msg *nats.Msg) {
		e, err := UnmarshalSessionEvent(msg.Data)
		if err != nil {
			p.logger.WithError(err).Warn("Dropping malformed session event")
			_ = msg.Term()
			return
		}
		handler(e)
		_ = msg.Ack()
	}, nats.DeliverNew(), nats.ManualAck())
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

// Health checks the NATS connection health
func (p *SessionPublisher) Health() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}
	if _, err := p.js.AccountInfo(); err != nil {
		return fmt.Errorf("JetStream health check failed: %w", err)
	}
	return nil
}

// Close waits for outstanding acks, then drains and closes the connection
func (p *SessionPublisher) Close() error {
	p.pending.Wait()
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
