package memory

import "testing"

func TestTwoStageRetrievalFavorsSimilarAndAdjacent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalRetrievedEvents = 4
	cfg.SimilarityBufferRatio = 0.5
	cfg.ContiguityBufferRatio = 0.5

	r := NewEMTwoStageRetrieval(cfg)
	embeddings := [][]float32{
		{0, 1, 0}, // e0
		{0.5, 0.5, 0}, // e1
		{1, 0, 0}, // e2 - exact match to query
		{0.5, 0.5, 0}, // e3
		{0, 0, 1}, // e4
	}
	var events []EpisodicEvent
	for i, emb := range embeddings {
		ev := NewEpisodicEvent(eventID(i), []string{"t"}, i, i+1, nil)
		ev.Embedding = emb
		events = append(events, ev)
	}
	r.AddEvents(events)

	result := r.RetrieveWithK([]float32{1, 0, 0}, 4)

	var haveE2 bool
	var haveNeighbor bool
	for _, ev := range result {
		if ev.ID == eventID(2) {
			haveE2 = true
		}
		if ev.ID == eventID(1) || ev.ID == eventID(3) {
			haveNeighbor = true
		}
	}
	if !haveE2 {
		t.Fatalf("expected result to contain e2, got %+v", result)
	}
	if !haveNeighbor {
		t.Fatalf("expected result to contain at least one neighbor of e2, got %+v", result)
	}

	for i := 1; i < len(result); i++ {
		if seqOf(result[i-1]) > seqOf(result[i]) {
			t.Fatalf("result not ordered by sequence number: %+v", result)
		}
	}
}

func eventID(i int) string {
	return "e" + string(rune('0'+i))
}
