package providers

import (
	"context"
	"hash/fnv"
	"math"
)

// deterministicEmbedder hashes byte 3-grams into a fixed-size, L2-normalized
// vector. It has no external dependency and is used by tests and as a
// zero-config fallback, grounded on the teacher's embedder.deterministicEmbedder.
type deterministicEmbedder struct {
	dim  int
	seed uint64
}

// NewDeterministicEmbedder returns an EmbeddingProvider with no external
// dependency, suitable for tests and zero-config deployments.
func NewDeterministicEmbedder(dim int, seed uint64) EmbeddingProvider {
	if dim <= 0 {
		dim = 64
	}
	return &deterministicEmbedder{dim: dim, seed: seed}
}

func (d *deterministicEmbedder) Dimensions() int { return d.dim }

func (d *deterministicEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return d.embedOne(text), nil
}

func (d *deterministicEmbedder) EmbedPassage(_ context.Context, text string) ([]float32, error) {
	return d.embedOne(text), nil
}

func (d *deterministicEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) == 0 {
		return v
	}
	if len(b) < 3 {
		addGram(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			addGram(d.seed, b[i:i+3], v)
		}
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(sum))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}

func addGram(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
