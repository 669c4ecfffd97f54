package kafka

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/plotinfo/internal/domain/mapview"
)

// publisher is the part of Producer an EffectPublisher needs.
type publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// EffectPublisher is a mapview.Map that publishes every effect it is handed.
// Messages are keyed by session so one session's effects stay ordered.
type EffectPublisher struct {
	producer publisher
	session  string
}

// NewEffectPublisher publishes through p. An empty session gets a random ID.
func NewEffectPublisher(p publisher, session string) *EffectPublisher {
	if session == "" {
		session = uuid.NewString()
	}
	return &EffectPublisher{producer: p, session: session}
}

// Session returns the session ID used as message key.
func (p *EffectPublisher) Session() string { return p.session }

// Apply implements mapview.Map.
func (p *EffectPublisher) Apply(ctx context.Context, effect mapview.Effect) error {
	env, err := NewEffectEnvelope(p.session, effect)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}
