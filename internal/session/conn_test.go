package session

import (
	"context"
	"testing"
)

type recordingRunner struct {
	sessionIDs []string
	frames     []IncomingFrame
}

func (r *recordingRunner) RunTurn(ctx context.Context, sessionID string, frame IncomingFrame, emitter *Emitter, confirmer *Confirmer) {
	r.sessionIDs = append(r.sessionIDs, sessionID)
	r.frames = append(r.frames, frame)
}

func findFrame(frames []map[string]any, frameType string) map[string]any {
	for _, f := range frames {
		if f["type"] == frameType {
			return f
		}
	}
	return nil
}

func TestDispatchStopEmitsStopped(t *testing.T) {
	sender := &recordingSender{}
	c := newTestConn(sender, &recordingRunner{}, nil)

	c.dispatch(context.Background(), IncomingFrame{Type: TypeStop})

	if findFrame(sender.frames, TypeStopped) == nil {
		t.Fatalf("expected a stopped frame, got %+v", sender.frames)
	}
}

func TestDispatchGetStatsEmitsStats(t *testing.T) {
	sender := &recordingSender{}
	c := newTestConn(sender, &recordingRunner{}, nil)

	c.dispatch(context.Background(), IncomingFrame{Type: TypeGetStats})

	if findFrame(sender.frames, TypeStats) == nil {
		t.Fatalf("expected a stats frame, got %+v", sender.frames)
	}
}

func TestDispatchSetSessionUpdatesCurrentSession(t *testing.T) {
	sender := &recordingSender{}
	c := newTestConn(sender, &recordingRunner{}, nil)

	c.dispatch(context.Background(), IncomingFrame{Type: TypeSetSession, SessionID: "session-42"})

	if c.sessionID != "session-42" {
		t.Fatalf("expected current session to update, got %q", c.sessionID)
	}
	changed := findFrame(sender.frames, TypeSessionChanged)
	if changed == nil || changed["sessionId"] != "session-42" {
		t.Fatalf("expected a session_changed frame naming the new session, got %+v", sender.frames)
	}
}

func TestDispatchUserTurnDelegatesToRunnerWithCurrentSession(t *testing.T) {
	sender := &recordingSender{}
	runner := &recordingRunner{}
	c := newTestConn(sender, runner, nil)
	c.sessionID = "carried-over"

	c.dispatch(context.Background(), IncomingFrame{Message: "hello"})

	if len(runner.sessionIDs) != 1 || runner.sessionIDs[0] != "carried-over" {
		t.Fatalf("expected the turn to carry the connection's current session id, got %+v", runner.sessionIDs)
	}
}

func TestDispatchUserTurnPrefersExplicitSessionID(t *testing.T) {
	sender := &recordingSender{}
	runner := &recordingRunner{}
	c := newTestConn(sender, runner, nil)
	c.sessionID = "carried-over"

	c.dispatch(context.Background(), IncomingFrame{Message: "hello", SessionID: "explicit"})

	if len(runner.sessionIDs) != 1 || runner.sessionIDs[0] != "explicit" {
		t.Fatalf("expected the explicit session id to win, got %+v", runner.sessionIDs)
	}
}

func TestDispatchEmptyFrameIsIgnored(t *testing.T) {
	sender := &recordingSender{}
	runner := &recordingRunner{}
	c := newTestConn(sender, runner, nil)

	c.dispatch(context.Background(), IncomingFrame{})

	if len(runner.sessionIDs) != 0 {
		t.Fatalf("expected an empty, typeless frame to be ignored, got %+v", runner.frames)
	}
}
