package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TurnRunner executes one user turn (history persistence, pipeline build,
// agent/chat dispatch) and streams its result through emitter. Frame
// ordering guarantees (activity*, search_results*, chunk*, done|error) are
// the runner's responsibility; Conn only wires transport and control
// frames.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID string, frame IncomingFrame, emitter *Emitter, confirmer *Confirmer)
}

// HistoryStore is the subset of the history store the channel needs
// directly, for the set_session "replay recent turns" behavior. Turn
// persistence itself is the TurnRunner's responsibility.
type HistoryStore interface {
	RecentAsFrames(ctx context.Context, sessionID string, limit int) ([]map[string]any, error)
}

// wsConn adapts a *websocket.Conn to frameSender with a write mutex, since
// gorilla connections support only one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) sendJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) closeWithCode(code int, reason string) {
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(5*time.Second))
	_ = w.conn.Close()
}

// Conn drives one accepted, handshake-passed connection: a background
// reader goroutine decodes frames and resolves tool_confirmation_response
// frames immediately (they must not queue behind an in-flight turn), while
// every other frame is forwarded to the serialized main loop. Dispatch
// logic talks to the client only through the frameSender interface, so it
// can be exercised without a live socket.
type Conn struct {
	sender     frameSender
	raw        *websocket.Conn // nil in tests that drive dispatch() directly
	runner     TurnRunner
	history    HistoryStore
	historyLim int
	approvals  *pendingApprovals
	confirmTO  time.Duration
	log        *slog.Logger

	sessionID string
}

// NewConn constructs a connection driver. historyLimit bounds the replay
// sent on set_session; confirmTimeout is the tool-approval wait.
func NewConn(conn *websocket.Conn, runner TurnRunner, history HistoryStore, historyLimit int, confirmTimeout time.Duration, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	return &Conn{
		sender:     &wsConn{conn: conn},
		raw:        conn,
		runner:     runner,
		history:    history,
		historyLim: historyLimit,
		approvals:  newPendingApprovals(),
		confirmTO:  confirmTimeout,
		log:        log,
		sessionID:  "default",
	}
}

// Serve runs the connection until the client disconnects. It never returns
// an error: transport failures simply end the loop.
func (c *Conn) Serve(ctx context.Context) {
	frames := make(chan IncomingFrame, 16)

	go c.readLoop(frames)

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			c.dispatch(ctx, frame)
		}
	}
}

func (c *Conn) readLoop(frames chan<- IncomingFrame) {
	defer close(frames)
	for {
		_, data, err := c.raw.ReadMessage()
		if err != nil {
			return
		}
		var f IncomingFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Type == TypeToolConfirmationResponse {
			if f.RequestID != "" && f.Approved != nil {
				c.approvals.resolve(f.RequestID, *f.Approved)
			}
			continue
		}
		frames <- f
	}
}

func (c *Conn) dispatch(ctx context.Context, frame IncomingFrame) {
	switch frame.Type {
	case TypeStop:
		_ = c.sender.sendJSON(map[string]any{"type": TypeStopped})
		return

	case TypeGetStats:
		_ = c.sender.sendJSON(map[string]any{
			"type": TypeStats,
			"data": map[string]any{
				"total_events": 0,
				"char_memory":  map[string]any{"total_events": 0},
				"prof_memory":  map[string]any{"total_events": 0},
			},
		})
		return

	case TypeSetSession:
		if frame.SessionID == "" {
			return
		}
		c.sessionID = frame.SessionID
		_ = c.sender.sendJSON(map[string]any{"type": TypeSessionChanged, "sessionId": c.sessionID})
		c.sendHistory(ctx)
		return
	}

	if !frame.IsUserTurn() {
		return
	}
	if frame.SessionID == "" {
		frame.SessionID = c.sessionID
	}

	emitter := newEmitter(c.sender)
	confirmer := newConfirmer(c.sender, c.approvals, c.confirmTO)
	c.runner.RunTurn(ctx, frame.SessionID, frame, emitter, confirmer)
}

func (c *Conn) sendHistory(ctx context.Context) {
	if c.history == nil {
		return
	}
	entries, err := c.history.RecentAsFrames(ctx, c.sessionID, c.historyLim)
	if err != nil {
		c.log.Warn("history replay failed", "session_id", c.sessionID, "error", err)
		return
	}
	_ = c.sender.sendJSON(map[string]any{"type": TypeHistory, "data": entries})
}

// newTestConn builds a Conn with no live socket, for dispatch-level tests.
func newTestConn(sender frameSender, runner TurnRunner, history HistoryStore) *Conn {
	return &Conn{
		sender:     sender,
		runner:     runner,
		history:    history,
		historyLim: 40,
		approvals:  newPendingApprovals(),
		confirmTO:  300 * time.Second,
		log:        slog.Default(),
		sessionID:  "default",
	}
}
