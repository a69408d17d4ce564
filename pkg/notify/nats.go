package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

const DefaultSubjectPrefix = "firmwave"

// NATSSink mirrors real-time events onto NATS subjects
// <prefix>.device.update and <prefix>.log.update.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
	logger logger.Logger
}

var _ Sink = (*NATSSink)(nil)

// NewNATSSink connects to the NATS server at url.
func NewNATSSink(url, prefix string, log logger.Logger) (*NATSSink, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	log = log.WithComponent("nats")

	nc, err := nats.Connect(url,
		nats.Name("firmwave"),
		nats.MaxReconnects(-1),
		nats.ConnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNATSConnect, err)
	}

	return &NATSSink{nc: nc, prefix: prefix, logger: log}, nil
}

func (*NATSSink) Name() string { return "nats" }

// Subject maps an event name to its NATS subject.
func (s *NATSSink) Subject(eventName string) (string, error) {
	switch eventName {
	case models.EventDeviceUpdate:
		return s.prefix + ".device.update", nil
	case models.EventLogUpdate:
		return s.prefix + ".log.update", nil
	default:
		return "", fmt.Errorf("%w: %s", errUnknownEvent, eventName)
	}
}

func (s *NATSSink) Publish(_ context.Context, event *models.Event) error {
	subject, err := s.Subject(event.Name)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", errMarshalEvent, err)
	}

	if err := s.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("%w: %w", errNATSPublish, err)
	}

	return nil
}

// Stop flushes pending messages and closes the connection.
func (s *NATSSink) Stop(context.Context) error {
	if err := s.nc.Drain(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to drain NATS connection")
		s.nc.Close()
	}

	return nil
}
