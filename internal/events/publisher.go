// Package events publishes outbox entries onto NATS subjects such as
// transactions.deposit and imports.deleted. Consumers (notifications,
// analytics) subscribe out of process.
package events

import (
	"log/slog"

	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

type natsPublisher struct{ nc *nats.Conn }

// Connect returns a no-op publisher when url is empty, so a broker is
// optional in dev.
func Connect(url string) (Publisher, error) {
	if url == "" {
		slog.Info("events disabled, no NATS url configured")
		return noopPublisher{}, nil
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &natsPublisher{nc: nc}, nil
}

func (p *natsPublisher) Publish(subject string, data []byte) error {
	return p.nc.Publish(subject, data)
}

func (p *natsPublisher) Close() { p.nc.Close() }

type noopPublisher struct{}

func (noopPublisher) Publish(string, []byte) error { return nil }
func (noopPublisher) Close()                       {}
