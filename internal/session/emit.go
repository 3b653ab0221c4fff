package session

import "github.com/coco4atJP/tepora-alpha-sub000/internal/pipeline"

// Emitter streams one turn's activity/status/chunk/done/search_results
// frames to the client in the ordering the channel protocol guarantees:
// zero or more activity, then zero or more search_results, then zero or
// more chunk, then exactly one done (callers are responsible for honoring
// that order; Emitter itself only serializes frames, it does not enforce
// sequencing).
type Emitter struct {
	sender frameSender
}

func newEmitter(sender frameSender) *Emitter { return &Emitter{sender: sender} }

func (e *Emitter) EmitReasoningStep(step, max int) {
	_ = e.sender.sendJSON(map[string]any{
		"type": TypeActivity,
		"data": map[string]any{"step": step, "max": max, "phase": "reasoning"},
	})
}

func (e *Emitter) EmitStatus(message string) {
	_ = e.sender.sendJSON(map[string]any{"type": TypeStatus, "message": message})
}

func (e *Emitter) EmitChunk(content string) {
	_ = e.sender.sendJSON(map[string]any{"type": TypeChunk, "content": content})
}

func (e *Emitter) EmitDone() {
	_ = e.sender.sendJSON(map[string]any{"type": TypeDone})
}

func (e *Emitter) EmitSearchResults(results []pipeline.SearchResult) {
	_ = e.sender.sendJSON(map[string]any{"type": TypeSearchResults, "data": results})
}

// EmitError sends the terminal error frame for a turn that could not
// complete (a parse failure, a broker error propagated from the executor).
func (e *Emitter) EmitError(message string) {
	_ = e.sender.sendJSON(map[string]any{"type": TypeError, "message": message})
}
