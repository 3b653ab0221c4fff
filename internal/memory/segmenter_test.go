package memory

import "testing"

func TestIdentifyBoundariesSpikeDetection(t *testing.T) {
	surprises := []float64{0.5, 0.6, 0.5, 0.4, 0.5, 3.0, 0.6, 0.5, 0.4}
	boundaries := IdentifyBoundaries(surprises, 4, 1.0, 2, 10)

	if len(boundaries) == 0 || boundaries[0] != 0 {
		t.Fatalf("expected first boundary at 0, got %v", boundaries)
	}

	found := false
	for _, b := range boundaries {
		if b == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a boundary at index 5 (the surprise spike), got %v", boundaries)
	}
}

func TestIdentifyBoundariesRespectsMaxEventSize(t *testing.T) {
	surprises := make([]float64, 20)
	for i := range surprises {
		surprises[i] = 0.1
	}
	boundaries := IdentifyBoundaries(surprises, 4, 1.0, 1, 5)

	for i := 1; i < len(boundaries); i++ {
		if boundaries[i]-boundaries[i-1] > 5 {
			t.Fatalf("event exceeded max size: %v", boundaries)
		}
	}
}

func TestSegmentTokensProducesContiguousCoverage(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e"}
	surprises := []float64{0.1, 0.1, 0.1, 0.1, 0.1}
	boundaries := []int{0, 3}

	events := SegmentTokens(tokens, surprises, boundaries, 2)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].StartPosition != 0 || events[0].EndPosition != 3 {
		t.Fatalf("unexpected first event bounds: %+v", events[0])
	}
	if events[1].StartPosition != 3 || events[1].EndPosition != 5 {
		t.Fatalf("unexpected second event bounds: %+v", events[1])
	}
}
