package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ernie/stationstats/internal/domain"
	"github.com/nats-io/nats.go"
)

// Publisher forwards events to a NATS subject. A nil *Publisher is valid
// and publishes nothing.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials the NATS server at url
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("stationstats"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends an event as JSON
func (p *Publisher) Publish(event domain.Event) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.conn.Drain()
}
