package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeConflictAlerts(ctx context.Context, handler func(ctx context.Context, alert *domain.ConflictAlert) error) error {
	sub, err := s.js.Subscribe(SubjectConflictAlerts, func(msg *nats.Msg) {
		var alert domain.ConflictAlert
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &alert); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("alert-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeCatalogReloads fans reload events out to every subscriber. The
// consumer is ephemeral and per-instance: each API replica must refresh its
// own catalog snapshot, so reloads are never load-balanced across a durable.
func (s *Subscriber) SubscribeCatalogReloads(ctx context.Context, handler func(ctx context.Context, status *domain.CatalogStatus) error) error {
	sub, err := s.js.Subscribe(SubjectCatalogReload, func(msg *nats.Msg) {
		var status domain.CatalogStatus
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &status); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
