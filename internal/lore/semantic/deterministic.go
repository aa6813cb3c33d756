package semantic

import (
	"context"
	"hash/fnv"
)

// Deterministic is a dependency-free Embedder for tests and demos: it
// hashes byte 3-grams into a fixed-size vector, grounded on the teacher's
// internal/rag/embedder.deterministicEmbedder.
type Deterministic struct {
	dim int
}

// NewDeterministic returns a Deterministic embedder of the given
// dimension (defaults to 64 when dim <= 0).
func NewDeterministic(dim int) *Deterministic {
	if dim <= 0 {
		dim = 64
	}
	return &Deterministic{dim: dim}
}

func (d *Deterministic) Dimension() int { return d.dim }

func (d *Deterministic) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *Deterministic) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) < 3 {
		addGram(b, v)
		return v
	}
	for i := 0; i <= len(b)-3; i++ {
		addGram(b[i:i+3], v)
	}
	return v
}

func addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
