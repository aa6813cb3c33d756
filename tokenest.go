package tavernkit

import (
	"math"

	"tavernkit/internal/tokenest"
)

// NewBPEEstimator returns a cl100k-style BPE Estimator for model, falling
// back to cl100k_base when the model is unrecognized (§4.A).
func NewBPEEstimator(model string) (Estimator, error) {
	return tokenest.NewBPEEstimator(model)
}

// Estimator maps text to an integer token count (§4.A). Implementations
// must never panic on empty or non-ASCII input; empty input returns 0.
type Estimator interface {
	Estimate(text string) (uint32, error)
}

// HeuristicEstimator is the testing-only estimator: ceil(len/4).
type HeuristicEstimator struct{}

// NewHeuristicEstimator returns the reference heuristic estimator.
func NewHeuristicEstimator() HeuristicEstimator { return HeuristicEstimator{} }

func (HeuristicEstimator) Estimate(text string) (uint32, error) {
	if text == "" {
		return 0, nil
	}
	n := len([]rune(text))
	return uint32(math.Ceil(float64(n) / 4.0)), nil
}

// estimateBlocks sums estimate(content)+overhead across blocks, skipping
// disabled ones. Used by the trimmer.
func estimateBlocks(est Estimator, blocks []Block, overhead int) (int, error) {
	total := 0
	for _, b := range blocks {
		if !b.Enabled {
			continue
		}
		n, err := est.Estimate(b.Content)
		if err != nil {
			return 0, err
		}
		total += int(n) + overhead
	}
	return total, nil
}
