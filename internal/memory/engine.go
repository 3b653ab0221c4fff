package memory

import (
	"fmt"
	"sort"
	"sync"
)

// Engine is the top-level episodic memory component: it turns a stream of
// tokens (with per-token surprise, derived from model logprobs, or a plain
// embedding sequence) into episodic events and serves two-stage retrieval
// over the accumulated set.
type Engine struct {
	cfg       Config
	retrieval *EMTwoStageRetrieval

	mu        sync.Mutex
	nextEvent int
}

// NewEngine constructs an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, retrieval: NewEMTwoStageRetrieval(cfg)}
}

// ProcessLogprobsForMemory segments a token stream using per-token surprise
// scores (surprise = -logprob), optionally refines the resulting boundaries
// against the graph metric, and stores the finalized events.
func (e *Engine) ProcessLogprobsForMemory(tokens []string, logprobs []float64, embeddings [][]float32) ([]EpisodicEvent, error) {
	if len(tokens) != len(logprobs) {
		return nil, fmt.Errorf("memory: tokens (%d) and logprobs (%d) length mismatch", len(tokens), len(logprobs))
	}

	surprises := make([]float64, len(logprobs))
	for i, lp := range logprobs {
		surprises[i] = -lp
	}

	boundaries := IdentifyBoundaries(surprises, e.cfg.SurpriseWindow, e.cfg.SurpriseGamma, e.cfg.MinEventSize, e.cfg.MaxEventSize)
	return e.finalizeEvents(tokens, surprises, embeddings, boundaries)
}

// ProcessConversationForMemory segments a token stream by semantic change
// (no logprob signal available) and stores the finalized events.
func (e *Engine) ProcessConversationForMemory(tokens []string, embeddings [][]float32) ([]EpisodicEvent, error) {
	if len(tokens) != len(embeddings) {
		return nil, fmt.Errorf("memory: tokens (%d) and embeddings (%d) length mismatch", len(tokens), len(embeddings))
	}

	threshold := e.cfg.SurpriseGamma * 0.1
	boundaries := SegmentBySemanticChange(embeddings, e.cfg.SurpriseWindow, threshold, e.cfg.MinEventSize, e.cfg.MaxEventSize)
	return e.finalizeEvents(tokens, nil, embeddings, boundaries)
}

func (e *Engine) finalizeEvents(tokens []string, surprises []float64, embeddings [][]float32, boundaries []int) ([]EpisodicEvent, error) {
	if len(boundaries) == 0 {
		return nil, nil
	}

	if e.cfg.UseBoundaryRefinement && len(embeddings) == len(tokens) {
		boundaries = RefineBoundaries(embeddings, boundaries, e.cfg.RefinementMetric, e.cfg.RefinementSearchRange, e.cfg.MinEventSize)
	}

	var events []EpisodicEvent
	if len(embeddings) == len(tokens) {
		events = rebuildEventsFromBoundaries(tokens, surprises, embeddings, boundaries, e.cfg.MinEventSize)
	} else {
		events = SegmentTokens(tokens, surprises, boundaries, e.cfg.MinEventSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range events {
		events[i].ID = fmt.Sprintf("event-%d", e.nextEvent)
		e.nextEvent++
		events[i].RepresentativeTokens = e.selectRepresentativeTokens(events[i])
	}
	e.retrieval.AddEvents(events)
	return events, nil
}

// selectRepresentativeTokens returns the positions (relative to the event's
// own token slice) of the top-K highest-surprise tokens, in positional
// (not score) order.
func (e *Engine) selectRepresentativeTokens(ev EpisodicEvent) []int {
	k := e.cfg.ReprTopK
	if k <= 0 || len(ev.SurpriseScores) == 0 {
		return nil
	}
	if k > len(ev.SurpriseScores) {
		k = len(ev.SurpriseScores)
	}

	indices := make([]int, len(ev.SurpriseScores))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool {
		return ev.SurpriseScores[indices[i]] > ev.SurpriseScores[indices[j]]
	})
	top := indices[:k]
	sort.Ints(top)
	return top
}

// RetrieveMemories runs two-stage retrieval against the accumulated event
// store using the configured total.
func (e *Engine) RetrieveMemories(query []float32) []EpisodicEvent {
	return e.retrieval.Retrieve(query)
}

// RetrieveMemoriesWithK runs two-stage retrieval with an explicit total.
func (e *Engine) RetrieveMemoriesWithK(query []float32, k int) []EpisodicEvent {
	return e.retrieval.RetrieveWithK(query, k)
}

// Statistics summarizes the current state of the event store.
type Statistics struct {
	TotalEvents    int
	TotalTokens    int
	AvgEventLength float64
	AvgSurprise    float64
}

// GetStatistics reports aggregate counts over all stored events.
func (e *Engine) GetStatistics() Statistics {
	events := e.retrieval.Events()
	if len(events) == 0 {
		return Statistics{}
	}

	var totalTokens int
	var surpriseSum float64
	var surpriseCount int
	for _, ev := range events {
		totalTokens += len(ev.Tokens)
		for _, s := range ev.SurpriseScores {
			surpriseSum += s
			surpriseCount++
		}
	}

	stats := Statistics{
		TotalEvents:    len(events),
		TotalTokens:    totalTokens,
		AvgEventLength: float64(totalTokens) / float64(len(events)),
	}
	if surpriseCount > 0 {
		stats.AvgSurprise = surpriseSum / float64(surpriseCount)
	}
	return stats
}
