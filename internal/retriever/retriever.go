// Package retriever exposes query-time similarity search over the
// regulatory corpus index.
package retriever

import (
	"context"
	"fmt"
	"sync"

	"aicodeguard/internal/domain"
	"aicodeguard/internal/indexer"
	"aicodeguard/internal/vectorindex"
)

// CorpusSource supplies the raw regulatory document for a first-use build.
type CorpusSource func(ctx context.Context) (string, error)

// Retriever lazily builds the corpus index on first use and serves
// similarity queries from it thereafter. At most one build happens per
// process lifetime.
type Retriever struct {
	indexer *indexer.Indexer
	gateway domain.EmbeddingGateway
	source  CorpusSource

	once     sync.Once
	index    *vectorindex.Index
	buildErr error
}

// New creates a Retriever over the given indexer and corpus source.
func New(ix *indexer.Indexer, gateway domain.EmbeddingGateway, source CorpusSource) *Retriever {
	return &Retriever{indexer: ix, gateway: gateway, source: source}
}

// SearchRelevant returns the k chunks most similar to the query text,
// ordered from most to least relevant. Distances stay internal.
func (r *Retriever) SearchRelevant(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	index, err := r.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := r.gateway.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := index.Search(vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	chunks := make([]domain.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}
	return chunks, nil
}

// Warm builds or loads the index immediately instead of on the first query.
func (r *Retriever) Warm(ctx context.Context) error {
	_, err := r.ensureIndex(ctx)
	return err
}

func (r *Retriever) ensureIndex(ctx context.Context) (*vectorindex.Index, error) {
	r.once.Do(func() {
		document, err := r.source(ctx)
		if err != nil {
			r.buildErr = fmt.Errorf("load corpus: %w", err)
			return
		}
		r.index, r.buildErr = r.indexer.Build(ctx, document)
	})
	return r.index, r.buildErr
}
