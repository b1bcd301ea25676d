package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
)

// Publisher records lifecycle events. Publishing is best effort: failures are
// logged and never reach the caller.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type messagePublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// PublisherParams wires the optional sinks. Any of them may be nil.
type PublisherParams struct {
	PubSub  messagePublisher
	Metrics *metrics.DomainMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type publisher struct {
	pubsub  messagePublisher
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewPublisher builds a publisher that counts every event and forwards it to
// Pub/Sub when a topic client is configured.
func NewPublisher(params PublisherParams) Publisher {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &publisher{
		pubsub:  params.PubSub,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}
}

func (p *publisher) Publish(ctx context.Context, evt Event) {
	p.metrics.IncEvent(string(evt.Type))
	if p.pubsub == nil {
		return
	}

	env, err := newEnvelope(evt, p.now())
	if err != nil {
		p.logError(ctx, evt, "encode event data", err)
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		p.logError(ctx, evt, "encode event envelope", err)
		return
	}

	attrs := map[string]string{
		"type":    string(env.Type),
		"version": "1",
	}
	if _, err := p.pubsub.Publish(ctx, body, attrs); err != nil {
		p.metrics.IncUpstreamFailure("pubsub")
		p.logError(ctx, evt, "publish event", err)
	}
}

func (p *publisher) logError(ctx context.Context, evt Event, msg string, err error) {
	if p.logg == nil {
		return
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"event_type": string(evt.Type),
		"subject_id": evt.SubjectID,
	})
	p.logg.Error(ctx, msg, err)
}

// Nop discards events. Tests and tools use it when nothing should be recorded.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
