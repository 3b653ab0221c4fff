package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingApprovals is the one-shot completion-slot registry for outstanding
// tool_confirmation_request frames: a request id is inserted when the
// request is sent and removed on fulfillment or timeout. An unmatched
// tool_confirmation_response (wrong or unknown requestId) is ignored.
type pendingApprovals struct {
	mu      sync.Mutex
	pending map[string]chan bool
}

func newPendingApprovals() *pendingApprovals {
	return &pendingApprovals{pending: map[string]chan bool{}}
}

func (p *pendingApprovals) register(requestID string) chan bool {
	ch := make(chan bool, 1)
	p.mu.Lock()
	p.pending[requestID] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingApprovals) cancel(requestID string) {
	p.mu.Lock()
	delete(p.pending, requestID)
	p.mu.Unlock()
}

// resolve fulfills the pending slot for requestID, if any. It reports
// whether a matching slot was found.
func (p *pendingApprovals) resolve(requestID string, approved bool) bool {
	p.mu.Lock()
	ch, ok := p.pending[requestID]
	if ok {
		delete(p.pending, requestID)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- approved
	return true
}

// frameSender writes one JSON frame to the client; implemented by *conn.
type frameSender interface {
	sendJSON(v any) error
}

// Confirmer satisfies the executor's confirmation round trip against a live
// connection: it sends a tool_confirmation_request frame, then blocks on
// the matching response or the configured timeout, whichever comes first.
// An absent response is a denial.
type Confirmer struct {
	sender    frameSender
	approvals *pendingApprovals
	timeout   time.Duration
}

func newConfirmer(sender frameSender, approvals *pendingApprovals, timeout time.Duration) *Confirmer {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Confirmer{sender: sender, approvals: approvals, timeout: timeout}
}

func (c *Confirmer) RequestConfirmation(ctx context.Context, requestID, toolName string, args map[string]any) bool {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ch := c.approvals.register(requestID)
	defer c.approvals.cancel(requestID)

	if args == nil {
		args = map[string]any{}
	}
	err := c.sender.sendJSON(map[string]any{
		"type": TypeToolConfirmationRequest,
		"data": map[string]any{
			"requestId": requestID,
			"toolName":  toolName,
			"toolArgs":  args,
			"description": fmt.Sprintf("Tool '%s' requires your approval to execute.", toolName),
		},
	})
	if err != nil {
		return false
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case approved := <-ch:
		return approved
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
