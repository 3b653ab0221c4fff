package memory

import "math"

// IdentifyBoundaries scans per-token surprise scores and returns the token
// indices at which a new event begins (always including 0). A token at
// index i starts a new event when its surprise exceeds a rolling threshold
// T = mean + gamma*stddev computed over the preceding window of scores, and
// the run since the last boundary has reached minEventSize. A run is forced
// to close once it reaches maxEventSize regardless of surprise.
func IdentifyBoundaries(surprises []float64, window int, gamma float64, minEventSize, maxEventSize int) []int {
	if len(surprises) == 0 {
		return nil
	}
	if window <= 0 {
		window = 1
	}
	if minEventSize <= 0 {
		minEventSize = 1
	}

	boundaries := []int{0}
	lastBoundary := 0

	for i := 1; i < len(surprises); i++ {
		runLen := i - lastBoundary
		if maxEventSize > 0 && runLen >= maxEventSize {
			boundaries = append(boundaries, i)
			lastBoundary = i
			continue
		}
		if runLen < minEventSize {
			continue
		}

		lo := i - window
		if lo < 0 {
			lo = 0
		}
		mean, std := meanStd(surprises[lo:i])
		threshold := mean + gamma*std
		if surprises[i] > threshold {
			boundaries = append(boundaries, i)
			lastBoundary = i
		}
	}
	return boundaries
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}

// SegmentTokens groups tokens into events using boundary indices, attaching
// the corresponding slice of surprise scores to each event. The trailing
// span is dropped unless it meets minEventSize.
func SegmentTokens(tokens []string, surprises []float64, boundaries []int, minEventSize int) []EpisodicEvent {
	if len(boundaries) == 0 {
		return nil
	}
	events := make([]EpisodicEvent, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(tokens)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		if end <= start {
			continue
		}
		if i == len(boundaries)-1 && minEventSize > 0 && end-start < minEventSize {
			continue
		}
		var scores []float64
		if start < len(surprises) {
			hi := end
			if hi > len(surprises) {
				hi = len(surprises)
			}
			scores = append(scores, surprises[start:hi]...)
		}
		ev := NewEpisodicEvent("", tokens[start:end], start, end, scores)
		events = append(events, ev)
	}
	return events
}

// cosineDistance is 1 - cosine similarity, used by the semantic-change
// segmentation fallback for inputs without logprob-derived surprise.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - sim
}

// SegmentBySemanticChange is the fallback segmentation used when no
// logprob-derived surprise signal is available: it places a boundary
// wherever the cosine distance between a token's embedding and the mean
// embedding of an inclusive rolling window around it exceeds threshold.
func SegmentBySemanticChange(embeddings [][]float32, window int, threshold float64, minEventSize, maxEventSize int) []int {
	if len(embeddings) == 0 {
		return nil
	}
	if window <= 0 {
		window = 1
	}
	if minEventSize <= 0 {
		minEventSize = 1
	}

	boundaries := []int{0}
	lastBoundary := 0

	for i := 1; i < len(embeddings); i++ {
		runLen := i - lastBoundary
		if maxEventSize > 0 && runLen >= maxEventSize {
			boundaries = append(boundaries, i)
			lastBoundary = i
			continue
		}
		if runLen < minEventSize {
			continue
		}

		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window
		if hi > len(embeddings)-1 {
			hi = len(embeddings) - 1
		}
		windowMean := meanEmbedding(embeddings[lo : hi+1])
		if cosineDistance(embeddings[i], windowMean) > threshold {
			boundaries = append(boundaries, i)
			lastBoundary = i
		}
	}
	return boundaries
}
