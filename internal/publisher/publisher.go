// Package publisher pushes settled-operation envelopes to NATS JetStream for
// downstream consumers (indexers, dashboards). Publishing is best-effort:
// the event log in Postgres is the durable record, so a failed publish is
// counted and logged, never retried into the settlement path.
package publisher

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"launchpad/internal/event"
	"launchpad/internal/observability"
)

// StreamName is the JetStream stream holding outbound envelopes.
const StreamName = "LAUNCHPAD_EVENTS"

// Publisher drains an envelope channel and publishes to
// launchpad.events.{event_type}.{asset_id}.
type Publisher struct {
	js      jetstream.JetStream
	in      <-chan event.Envelope
	metrics *observability.Metrics
	log     zerolog.Logger
}

// outboundEvent is the wire form of an envelope.
type outboundEvent struct {
	Sequence  int64           `json:"sequence"`
	EventType string          `json:"event_type"`
	AssetID   string          `json:"asset_id,omitempty"`
	Actor     string          `json:"actor"`
	Backend   string          `json:"backend"`
	Payload   json.RawMessage `json:"payload"`
	StateHash string          `json:"state_hash"`
	PrevHash  string          `json:"prev_hash"`
	Timestamp time.Time       `json:"timestamp"`
}

// New creates a publisher over the envelope channel.
func New(js jetstream.JetStream, in <-chan event.Envelope, metrics *observability.Metrics, log zerolog.Logger) *Publisher {
	return &Publisher{
		js:      js,
		in:      in,
		metrics: metrics,
		log:     log,
	}
}

// Run blocks until ctx is cancelled or the channel closes.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case env, ok := <-p.in:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, env); err != nil {
				p.metrics.PublishDrops.Inc()
				p.log.Warn().
					Err(err).
					Int64("sequence", env.Sequence).
					Str("event_type", env.EventType.String()).
					Msg("outbound publish failed")
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, env event.Envelope) error {
	data, err := json.Marshal(outboundEvent{
		Sequence:  env.Sequence,
		EventType: env.EventType.String(),
		AssetID:   env.AssetID,
		Actor:     env.Actor.String(),
		Backend:   env.Backend,
		Payload:   env.Payload,
		StateHash: hex.EncodeToString(env.StateHash[:]),
		PrevHash:  hex.EncodeToString(env.PrevHash[:]),
		Timestamp: env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := fmt.Sprintf("launchpad.events.%s", subjectToken(env.EventType))
	if env.AssetID != "" {
		subject = fmt.Sprintf("%s.%s", subject, env.AssetID)
	}

	_, err = p.js.Publish(ctx, subject, data)
	return err
}

func subjectToken(t event.Type) string {
	switch t {
	case event.TypePlatformInitialized:
		return "platform_initialized"
	case event.TypeFeeRateUpdated:
		return "fee_rate_updated"
	case event.TypeSaleLaunched:
		return "sale_launched"
	case event.TypeUnitsPurchased:
		return "units_purchased"
	case event.TypeSaleClosed:
		return "sale_closed"
	default:
		return "unknown"
	}
}

// EnsureStream creates the outbound stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"launchpad.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}

// Connect establishes a NATS connection and returns a JetStream context.
func Connect(url string, log zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
