package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"calc-assistant/internal/config"
)

const defaultSubject = "calc.runs"

// NATSPublisher mirrors run events onto a NATS subject as JSON.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(cfg config.EventsConfig, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := cfg.NATSURL
	if url == "" {
		url = nats.DefaultURL
	}
	logger = logger.Named("nats")
	nc, err := nats.Connect(url,
		nats.Name("calc-assistant"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

// Subject returns the subject events for runID are published on.
func (p *NATSPublisher) Subject(runID string) string {
	return p.subject + "." + runID
}

func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.nc.Publish(p.Subject(evt.RunID), data)
}

// Subscribe delivers events for every run until ctx ends.
func (p *NATSPublisher) Subscribe(ctx context.Context, handler func(Event)) (*nats.Subscription, error) {
	sub, err := p.nc.Subscribe(p.subject+".*", func(msg *nats.Msg) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			p.logger.Debug("dropping undecodable event", zap.Error(err))
			return
		}
		handler(evt)
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return sub, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
