// Package retriever translates free-text queries into the most relevant documents.
package retriever

import (
	"context"
	"fmt"

	"github.com/formmind/formmind/internal/embedding"
	"github.com/formmind/formmind/internal/models"
	"github.com/formmind/formmind/internal/store"
)

// Retriever runs nearest-neighbor retrieval over a store snapshot.
type Retriever struct {
	embedder embedding.Embedder
}

// NewRetriever creates a retriever using embedder for query embeddings.
// The embedder must be the same instance the snapshot was built with.
func NewRetriever(embedder embedding.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Retrieve returns up to k documents ordered by ascending distance from the
// query. An empty snapshot yields an empty slice and a nil error; callers
// treat that as "nothing retrieved". Positions outside the document range are
// skipped silently.
func (r *Retriever) Retrieve(ctx context.Context, snap *store.Snapshot, query string, k int) ([]*models.Document, error) {
	if snap.Empty() {
		return []*models.Document{}, nil
	}
	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := snap.Index.Search(queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	docs := make([]*models.Document, 0, len(results))
	for _, res := range results {
		if res.Position < 0 || res.Position >= len(snap.Documents) {
			continue
		}
		docs = append(docs, snap.Documents[res.Position])
	}
	return docs, nil
}
