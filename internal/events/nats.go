package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher forwards events to a NATS subject so other tools on the campus network
// can follow the queue.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// ConnectNATS dials the NATS server named by url.
func ConnectNATS(url, clientName string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name(clientName), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}

// NewNATSPublisher constructs a publisher; a nil connection turns it into a no-op.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_publisher").Logger(),
	}
}

func (p *NATSPublisher) Publish(_ context.Context, event Event) {
	if p.conn == nil || p.subject == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode queue event")
		return
	}

	if err := p.conn.Publish(p.subject+"."+string(event.Type), payload); err != nil {
		p.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to publish queue event to nats")
	}
}
