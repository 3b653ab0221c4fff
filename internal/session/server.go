package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Server accepts websocket upgrades and runs the handshake before handing
// each connection off to Conn.
type Server struct {
	AllowedOrigins  []string
	Production      bool
	SessionToken    string
	ConfirmTimeout  time.Duration
	HistoryLimit    int
	History         HistoryStore
	Runner          TurnRunner
	Log             *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer constructs a Server ready to be mounted at the websocket route.
func NewServer(runner TurnRunner, history HistoryStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Runner:       runner,
		History:      history,
		HistoryLimit: 40,
		ConfirmTimeout: 300 * time.Second,
		Log:          log,
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{AppProtocol},
			CheckOrigin:     func(r *http.Request) bool { return true }, // origin is checked post-upgrade, matching the close-code contract
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP implements http.Handler. The upgrade always completes at the
// HTTP layer; a failed origin or token check is reported as a websocket
// close frame with the documented code, since that's the only way to
// deliver a specific close code to the client after responding 101.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	originOK := ValidateOrigin(r, s.AllowedOrigins, s.Production)
	tokenOK := ValidateToken(r, s.SessionToken)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("websocket upgrade failed", "error", err)
		return
	}

	wc := &wsConn{conn: conn}

	if !originOK {
		wc.closeWithCode(4003, "Forbidden: Invalid Origin")
		return
	}
	if !tokenOK {
		wc.closeWithCode(4001, "Unauthorized: Invalid Token")
		return
	}

	c := NewConn(conn, s.Runner, s.History, s.HistoryLimit, s.ConfirmTimeout, s.Log)
	c.Serve(context.Background())
}
