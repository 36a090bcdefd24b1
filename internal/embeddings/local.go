package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const localDimensions = 128

// LocalEmbedder is a deterministic bag-of-words embedder with no external
// dependencies. It is nowhere near the quality of a real embedding model and
// exists so the demo command and tests can run without API keys.
type LocalEmbedder struct{}

// NewLocalEmbedder creates a new local embedder.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{}
}

func (e *LocalEmbedder) Name() string {
	return "local-hash"
}

func (e *LocalEmbedder) Dimensions() int {
	return localDimensions
}

func (e *LocalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func embedText(text string) []float32 {
	vec := make([]float32, localDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%localDimensions]++
	}

	// L2-normalize so chromem's cosine similarity behaves.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
