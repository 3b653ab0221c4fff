package session

import (
	"context"
	"testing"
	"time"
)

type recordingSender struct {
	frames []map[string]any
}

func (r *recordingSender) sendJSON(v any) error {
	m, _ := v.(map[string]any)
	r.frames = append(r.frames, m)
	return nil
}

func TestConfirmerResolvesOnMatchingResponse(t *testing.T) {
	approvals := newPendingApprovals()
	sender := &recordingSender{}
	c := newConfirmer(sender, approvals, time.Second)

	go func() {
		time.Sleep(10 * time.Millisecond)
		data := sender.frames[0]["data"].(map[string]any)
		approvals.resolve(data["requestId"].(string), true)
	}()

	if !c.RequestConfirmation(context.Background(), "", "native_search", nil) {
		t.Fatal("expected approval to propagate true")
	}
}

func TestConfirmerTimesOutAsDenial(t *testing.T) {
	approvals := newPendingApprovals()
	sender := &recordingSender{}
	c := newConfirmer(sender, approvals, 20*time.Millisecond)

	if c.RequestConfirmation(context.Background(), "req-1", "native_search", nil) {
		t.Fatal("expected a timed-out confirmation to be treated as denial")
	}
}

func TestConfirmerUnmatchedResolveIsIgnored(t *testing.T) {
	approvals := newPendingApprovals()
	if approvals.resolve("no-such-request", true) {
		t.Fatal("expected resolving an unknown request id to report not found")
	}
}

func TestConfirmerContextCancelIsDenial(t *testing.T) {
	approvals := newPendingApprovals()
	sender := &recordingSender{}
	c := newConfirmer(sender, approvals, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if c.RequestConfirmation(ctx, "req-2", "native_search", nil) {
		t.Fatal("expected a canceled context to be treated as denial")
	}
}
