// Package websocket streams a run to a remote server as JSON envelopes.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/citadel-raid/raidnav/pkg/core"
	"github.com/citadel-raid/raidnav/pkg/streaming"
)

// Defaults applied by New for zero config values.
const (
	DefaultAckTimeout       = 10 * time.Second
	DefaultMaxReconnect     = 10
	DefaultReconnectBackoff = time.Second
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL              string
	APIKey           string
	AckTimeout       time.Duration
	MaxReconnect     int
	ReconnectBackoff time.Duration
}

// Backend streams run data over WebSocket. Run boundaries wait for a server
// ack; everything else is fire-and-forget.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = DefaultMaxReconnect
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(cfg, logger.With("component", "storage.websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns how many messages were lost to a full queue or a failed write.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun sends the run metadata and waits for the server ack. The message
// is replayed after every reconnect until EndRun.
func (b *Backend) StartRun(run *core.Run, grid core.GridInfo) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.NewStartRunPayload(*run, grid))
	if err != nil {
		return err
	}
	b.conn.setStart(data)
	return b.conn.sendAndWait(data, streaming.TypeStartRun, b.cfg.AckTimeout)
}

// EndRun sends end_run and waits for the server ack.
func (b *Backend) EndRun() error {
	data, err := marshalEnvelope(streaming.TypeEndRun, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndRun, b.cfg.AckTimeout)
	b.conn.setStart(nil)
	return err
}

func (b *Backend) AddVessel(v *core.Vessel) error {
	return b.sendEnvelope(streaming.TypeAddVessel, streaming.NewVesselPayload(*v))
}

func (b *Backend) RecordVesselState(s *core.VesselState) error {
	return b.sendEnvelope(streaming.TypeVesselState, streaming.NewVesselStatePayload(*s))
}

func (b *Backend) RecordEvent(e *core.RunEvent) error {
	return b.sendEnvelope(streaming.TypeRunEvent, streaming.NewRunEventPayload(*e))
}

func (b *Backend) RecordPath(p *core.PathRecord) error {
	return b.sendEnvelope(streaming.TypePathPlan, streaming.NewPathPlanPayload(*p))
}

func (b *Backend) RecordResult(r *core.RaidResult) error {
	return b.sendEnvelope(streaming.TypeRaidResult, streaming.NewRaidResultPayload(*r))
}
