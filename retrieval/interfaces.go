// Package retrieval implements section-aware retrieval: dominant-section
// detection over a top-K search result, full-section sweeps, assembly of
// swept chunks into reading blocks, and composition of the final answer with
// a verbatim excerpt appendix.
package retrieval

import (
	"context"

	"github.com/itish2003/sectionrag/models"
)

// Embedder turns query text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher returns the n chunks most similar to an embedding, best first.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, n int) ([]models.Chunk, error)
}

// CorpusStore performs exact-match lookups on the section title metadata.
type CorpusStore interface {
	FetchBySection(ctx context.Context, sectionTitle string) ([]models.Chunk, error)
}

// Generator writes the narrative answer from grounding context.
type Generator interface {
	Generate(ctx context.Context, query string, blocks []ContextBlock) (string, error)
}

// Pinger is implemented by collaborators that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ContextBlock is one unit of grounding text handed to the Generator: either a
// single top-K chunk or a whole assembled section.
type ContextBlock struct {
	Title string
	Pages []int
	Text  string
}
