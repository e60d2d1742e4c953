package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/image-gallery/pkg/logger"
)

// StreamName is the JetStream stream that captures gallery events.
const StreamName = "GALLERY"

type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
	PublishAsyncComplete() <-chan struct{}
}

// NATSPublisher publishes gallery events to NATS JetStream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     asyncPublisher
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and makes sure the gallery stream exists.
func NewNATSPublisher(natsURL string, log *logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("image-gallery"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		// publishing still works against a stream provisioned elsewhere
		log.Warn("Failed to ensure JetStream stream", "stream", StreamName, "error", err.Error())
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

func newNATSPublisher(js asyncPublisher, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{js: js, logger: log}
}

func ensureStream(js nats.JetStreamManager) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"gallery.>"},
		MaxAge:   24 * time.Hour,
	})
	return err
}

// PublishEvent marshals the event to JSON and publishes it asynchronously.
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close waits briefly for pending acks and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.js != nil {
		select {
		case <-p.js.PublishAsyncComplete():
		case <-time.After(2 * time.Second):
			p.logger.Warn("Timed out waiting for pending NATS acks")
		}
	}
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		p.nc.Close()
	}
	return nil
}
