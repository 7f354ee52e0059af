/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notify tells downstream consumers (playout, UI backends)
// that the schedule changed. Changes fan out over NATS for other
// processes and over the in-process event bus for local subscribers.
package notify

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_scheduler/internal/events"
)

// SubjectScheduleUpdated is the NATS subject schedule changes publish
// to. Consumers treat the message as an invalidation signal and
// re-fetch the schedule; no schedule data rides on the message itself.
const SubjectScheduleUpdated = "grimnir.scheduler.schedule.updated"

// Config contains NATS connection configuration.
type Config struct {
	URL           string
	Token         string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns default NATS configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// message is the wire envelope for schedule change notifications.
type message struct {
	At        time.Time `json:"at"`
	NodeID    string    `json:"node_id"`
	MessageID string    `json:"message_id"`
}

// Sink publishes schedule change notifications.
type Sink struct {
	conn   *nats.Conn
	bus    *events.Bus
	nodeID string
	logger zerolog.Logger
}

// New connects to NATS and returns a sink. An unreachable NATS server
// is not fatal; the sink still feeds the in-process bus and logs the
// degraded state.
func New(cfg Config, bus *events.Bus, logger zerolog.Logger) (*Sink, error) {
	log := logger.With().Str("component", "notify").Logger()

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("NATS unavailable, schedule notifications stay in-process")
		conn = nil
	} else {
		log.Info().Str("url", cfg.URL).Msg("NATS notification sink connected")
	}

	return &Sink{
		conn:   conn,
		bus:    bus,
		nodeID: nodeID(),
		logger: log,
	}, nil
}

// ScheduleChanged publishes the change to NATS and the local bus. The
// notification is best effort; a failed publish never fails the
// schedule mutation that triggered it.
func (s *Sink) ScheduleChanged(ctx context.Context) {
	now := time.Now().UTC()

	if s.bus != nil {
		s.bus.Publish(events.EventScheduleUpdate, events.Payload{"at": now})
	}

	if s.conn == nil {
		return
	}
	data, err := json.Marshal(message{
		At:        now,
		NodeID:    s.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal schedule notification")
		return
	}
	if err := s.conn.Publish(SubjectScheduleUpdated, data); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish schedule notification")
	}
}

// Close drains the NATS connection.
func (s *Sink) Close() {
	if s.conn != nil {
		_ = s.conn.Drain()
	}
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return host + "-" + uuid.NewString()[:8]
}

// Nop is a Notifier that discards notifications; used in tests and in
// offline tooling.
type Nop struct{}

// ScheduleChanged implements the notifier interface.
func (Nop) ScheduleChanged(context.Context) {}
