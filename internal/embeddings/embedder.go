package embeddings

import "context"

// Embedder turns text into vectors for the knowledge store.
type Embedder interface {
	// Embed vectorizes each text; the result holds one vector per input,
	// in the same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the width of every vector this embedder produces.
	Dimensions() int

	// Name identifies the backing model, for logs and status output.
	Name() string
}
