package memory

import (
	"math"
	"sort"
)

// EMTwoStageRetrieval holds the growing store of episodic events and
// assigns each a monotonic sequence number as it arrives, per 
type EMTwoStageRetrieval struct {
	cfg    Config
	events []EpisodicEvent
	nextSeq uint64
}

// NewEMTwoStageRetrieval constructs an empty retrieval store.
func NewEMTwoStageRetrieval(cfg Config) *EMTwoStageRetrieval {
	return &EMTwoStageRetrieval{cfg: cfg}
}

// AddEvents appends events, stamping each with the next sequence number in
// arrival order.
func (r *EMTwoStageRetrieval) AddEvents(events []EpisodicEvent) {
	for _, ev := range events {
		seq := r.nextSeq
		r.nextSeq++
		ev.SequenceNumber = &seq
		r.events = append(r.events, ev)
	}
}

// Events returns the full stored set.
func (r *EMTwoStageRetrieval) Events() []EpisodicEvent { return r.events }

// Retrieve runs two-stage retrieval with the configured total count.
func (r *EMTwoStageRetrieval) Retrieve(query []float32) []EpisodicEvent {
	return r.RetrieveWithK(query, r.cfg.TotalRetrievedEvents)
}

// RetrieveWithK derives Ks = ceil(k * similarity_ratio) and
// Kc = ceil(k * contiguity_ratio), runs similarity-based retrieval and then
// contiguity-based retrieval around the similarity hits, deduplicates by
// event ID, orders by sequence
// number, and optionally applies a recency boost before truncating to k.
func (r *EMTwoStageRetrieval) RetrieveWithK(query []float32, k int) []EpisodicEvent {
	if k <= 0 || len(r.events) == 0 {
		return nil
	}

	ks := int(math.Ceil(float64(k) * r.cfg.SimilarityBufferRatio))
	kc := int(math.Ceil(float64(k) * r.cfg.ContiguityBufferRatio))

	simHits := r.similarityBasedRetrieval(query, ks)
	contigHits := r.contiguityBasedRetrieval(simHits, kc)

	combined := r.combineAndDeduplicate(simHits, contigHits)
	if r.cfg.RecencyWeight > 0 {
		combined = r.ApplyRecencyBoost(combined, query)
	}

	sort.Slice(combined, func(i, j int) bool {
		return seqOf(combined[i]) < seqOf(combined[j])
	})
	if len(combined) > k {
		combined = combined[:k]
	}
	return combined
}

func seqOf(e EpisodicEvent) uint64 {
	if e.SequenceNumber == nil {
		return 0
	}
	return *e.SequenceNumber
}

// similarityBasedRetrieval returns the top-ks events ranked by cosine
// similarity between the query and each event's mean embedding.
func (r *EMTwoStageRetrieval) similarityBasedRetrieval(query []float32, ks int) []EpisodicEvent {
	if ks <= 0 {
		return nil
	}
	type scored struct {
		ev    EpisodicEvent
		score float64
	}
	scoredEvents := make([]scored, 0, len(r.events))
	for _, ev := range r.events {
		scoredEvents = append(scoredEvents, scored{ev, cosineSimilarity(query, ev.Embedding)})
	}
	sort.Slice(scoredEvents, func(i, j int) bool { return scoredEvents[i].score > scoredEvents[j].score })

	if ks > len(scoredEvents) {
		ks = len(scoredEvents)
	}
	out := make([]EpisodicEvent, ks)
	for i := 0; i < ks; i++ {
		out[i] = scoredEvents[i].ev
	}
	return out
}

// contiguityBasedRetrieval collects, for every similarity hit with sequence
// number q, any stored event whose sequence number falls in [q-kc, q+kc]
// and is not already a similarity hit, capped at kc events overall.
func (r *EMTwoStageRetrieval) contiguityBasedRetrieval(anchors []EpisodicEvent, kc int) []EpisodicEvent {
	if kc <= 0 || len(anchors) == 0 {
		return nil
	}

	bySeq := make(map[uint64]int, len(r.events))
	for i, ev := range r.events {
		bySeq[seqOf(ev)] = i
	}

	seen := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		seen[a.ID] = true
	}

	var out []EpisodicEvent
	for _, a := range anchors {
		seq := seqOf(a)
		lo := seq - uint64(kc)
		if uint64(kc) > seq {
			lo = 0
		}
		hi := seq + uint64(kc)
		for s := lo; s <= hi; s++ {
			if len(out) >= kc {
				return out
			}
			idx, ok := bySeq[s]
			if !ok {
				continue
			}
			ev := r.events[idx]
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	return out
}

// combineAndDeduplicate merges two result sets, keeping the first
// occurrence of each event ID.
func (r *EMTwoStageRetrieval) combineAndDeduplicate(a, b []EpisodicEvent) []EpisodicEvent {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]EpisodicEvent, 0, len(a)+len(b))
	for _, set := range [][]EpisodicEvent{a, b} {
		for _, ev := range set {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	return out
}

// ApplyRecencyBoost re-scores events by similarity blended with a linear
// recency term (more recent sequence numbers score higher), then returns
// them re-sorted by the blended score descending.
func (r *EMTwoStageRetrieval) ApplyRecencyBoost(events []EpisodicEvent, query []float32) []EpisodicEvent {
	if len(events) == 0 {
		return events
	}
	var maxSeq uint64
	for _, ev := range r.events {
		if s := seqOf(ev); s > maxSeq {
			maxSeq = s
		}
	}

	type scored struct {
		ev    EpisodicEvent
		score float64
	}
	out := make([]scored, len(events))
	for i, ev := range events {
		sim := cosineSimilarity(query, ev.Embedding)
		recency := 0.0
		if maxSeq > 0 {
			recency = float64(seqOf(ev)) / float64(maxSeq)
		}
		out[i] = scored{ev, (1-r.cfg.RecencyWeight)*sim + r.cfg.RecencyWeight*recency}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })

	result := make([]EpisodicEvent, len(out))
	for i, s := range out {
		result[i] = s.ev
	}
	return result
}
