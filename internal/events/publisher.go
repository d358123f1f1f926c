package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"taskboard/internal/domain"
)

// Publisher fans committed events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }

// NATSPublisher publishes each event on "<prefix>.<type>".
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	log    *zap.Logger
}

func NewNATSPublisher(url, prefix string, log *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("taskboard"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("nats connected", zap.String("url", nc.ConnectedUrl()))
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, "."), log: log.Named("nats")}, nil
}

func (p *NATSPublisher) Subject(evtType string) string {
	return p.prefix + "." + evtType
}

func (p *NATSPublisher) Publish(ctx context.Context, evt domain.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(evt.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	p.log.Debug("event published", zap.String("type", evt.Type), zap.Int64("id", evt.ID))
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
