package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citadel-raid/raidnav/pkg/core"
	"github.com/citadel-raid/raidnav/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_run/end_run.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setAuth(r.Header.Get("Authorization"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		ml.setConn(c)
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	auth     string
	conn     *ws.Conn
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setAuth(a string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = a
}

func (m *messageLog) setConn(c *ws.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = c
}

// dropConn closes the server side of the current socket.
func (m *messageLog) dropConn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) types() []string {
	var out []string
	for _, env := range m.all() {
		out = append(out, env.Type)
	}
	return out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b := New(Config{
		URL:              wsURL(srv),
		APIKey:           "k3y",
		AckTimeout:       2 * time.Second,
		ReconnectBackoff: 10 * time.Millisecond,
	}, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t)
	b := newBackend(t, srv)

	require.NoError(t, b.StartRun(&core.Run{UUID: "r-1", Name: "TestRun"}, core.GridInfo{RingCount: 12}))
	require.NoError(t, b.EndRun())

	msgs := ml.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndRun, msgs[1].Type)

	var payload streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "r-1", payload.UUID)
	assert.Equal(t, 12, payload.Grid.RingCount)
	ml.mu.Lock()
	defer ml.mu.Unlock()
	assert.Equal(t, "Bearer k3y", ml.auth)
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	b := newBackend(t, srv)

	require.NoError(t, b.StartRun(&core.Run{Name: "M"}, core.GridInfo{}))
	require.NoError(t, b.AddVessel(&core.Vessel{ID: 1, Class: "raider"}))
	require.NoError(t, b.RecordPath(&core.PathRecord{VesselID: 1, Cells: []core.Cell{{Ring: 8}}}))
	require.NoError(t, b.RecordVesselState(&core.VesselState{VesselID: 1, Tick: 10}))
	require.NoError(t, b.RecordEvent(&core.RunEvent{VesselID: 1, Kind: core.EventDestroyed}))
	require.NoError(t, b.RecordResult(&core.RaidResult{Destroyed: 1}))
	// the end_run ack orders it after every earlier message
	require.NoError(t, b.EndRun())

	assert.Equal(t, []string{
		streaming.TypeStartRun,
		streaming.TypeAddVessel,
		streaming.TypePathPlan,
		streaming.TypeVesselState,
		streaming.TypeRunEvent,
		streaming.TypeRaidResult,
		streaming.TypeEndRun,
	}, ml.types())
	assert.Equal(t, uint64(0), b.Dropped())
}

func TestInit_DialFails(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"}, nil)
	assert.ErrorContains(t, b.Init(), "websocket dial failed")
	assert.NoError(t, b.Close())
}

func TestStartRun_AckTimeout(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), AckTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorContains(t, b.StartRun(&core.Run{}, core.GridInfo{}), "timeout waiting for ack")
}

func TestReconnect_ReplaysStartRun(t *testing.T) {
	srv, ml := testServer(t)
	b := newBackend(t, srv)

	require.NoError(t, b.StartRun(&core.Run{UUID: "again"}, core.GridInfo{}))
	ml.dropConn()

	assert.Eventually(t, func() bool {
		n := 0
		for _, typ := range ml.types() {
			if typ == streaming.TypeStartRun {
				n++
			}
		}
		return n == 2
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, b.EndRun())
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t)
	b := newBackend(t, srv)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.conn.sendAndWait([]byte("{}"), "x", time.Second), ErrClosed)
}
