// Package indexer builds the persisted vector index for the regulatory
// corpus in rate-limited batches with degrade-and-retry on gateway failure.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"aicodeguard/internal/chunker"
	"aicodeguard/internal/domain"
	"aicodeguard/internal/vectorindex"
)

// buildState tracks the indexer's progress through a single build.
type buildState string

const (
	stateCheckCache     buildState = "check_cache"
	stateChunking       buildState = "chunking"
	stateBatchEmbedding buildState = "batch_embedding"
	statePersisting     buildState = "persisting"
	stateReady          buildState = "ready"
)

// Indexer turns a raw regulatory document into a queryable vector index,
// reusing a persisted snapshot when one exists and is valid.
type Indexer struct {
	gateway      domain.EmbeddingGateway
	chunker      *chunker.Chunker
	snapshotPath string
	policy       BackoffPolicy
	limiter      *rate.Limiter
	logger       *log.Logger
}

// New creates an Indexer. The gateway and chunker are required; logger may
// be nil, in which case the package default is used.
func New(gateway domain.EmbeddingGateway, ch *chunker.Chunker, snapshotPath string, policy BackoffPolicy, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.Default()
	}
	p := policy.normalized()
	return &Indexer{
		gateway:      gateway,
		chunker:      ch,
		snapshotPath: snapshotPath,
		policy:       p,
		limiter:      rate.NewLimiter(rate.Every(p.InterBatchDelay), 1),
		logger:       logger.With("component", "indexer"),
	}
}

// Build produces a ready index for the document. Gateway failures are
// degraded and retried per the policy; a chunk that repeatedly fails
// embedding is dropped, never retried indefinitely. The build fails only
// when chunking produces nothing or no chunk survives embedding.
func (ix *Indexer) Build(ctx context.Context, document string) (*vectorindex.Index, error) {
	state := stateCheckCache
	ix.logger.Debug("build state", "state", state)
	if cached, err := vectorindex.Load(ix.snapshotPath, ix.gateway.Dimension()); err == nil {
		ix.logger.Info("reusing persisted index snapshot", "path", ix.snapshotPath, "records", cached.Len())
		return cached, nil
	} else {
		ix.logger.Debug("no usable snapshot, building", "path", ix.snapshotPath, "reason", err)
	}

	state = stateChunking
	ix.logger.Debug("build state", "state", state)
	chunks := ix.chunker.ChunkDocument(document)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document produced no chunks", domain.ErrEmptyIndex)
	}
	ix.logger.Info("chunked corpus", "chunks", len(chunks))

	state = stateBatchEmbedding
	ix.logger.Debug("build state", "state", state)
	index, err := ix.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	state = statePersisting
	ix.logger.Debug("build state", "state", state)
	if err := index.Save(ix.snapshotPath); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}

	state = stateReady
	ix.logger.Info("index ready", "state", state, "records", index.Len(), "path", ix.snapshotPath)
	return index, nil
}

// embedAll runs the batched embedding loop, degrading granularity on
// failure: the first batch is retried at half size, later batches fall back
// to per-item embedding. Batches are strictly sequential to respect the
// gateway's rate limit.
func (ix *Indexer) embedAll(ctx context.Context, chunks []domain.Chunk) (*vectorindex.Index, error) {
	var index *vectorindex.Index
	add := func(records []vectorindex.Record) error {
		if len(records) == 0 {
			return nil
		}
		if index == nil {
			built, err := vectorindex.Build(records)
			if err != nil {
				return err
			}
			index = built
			return nil
		}
		return index.Extend(records)
	}

	batches := partition(chunks, ix.policy.BatchSize)
	for bi, batch := range batches {
		if err := ix.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vectors, err := ix.gateway.EmbedBatch(ctx, texts(batch))
		if err == nil {
			if err := add(toRecords(batch, vectors)); err != nil {
				return nil, err
			}
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ix.logger.Warn("batch embedding failed", "batch", bi+1, "of", len(batches), "err", err)

		var recovered []vectorindex.Record
		if bi == 0 {
			recovered = ix.retryHalved(ctx, batch)
		} else {
			recovered = ix.retryPerItem(ctx, batch)
		}
		if len(recovered) < len(batch) {
			ix.logger.Warn("dropped chunks from batch", "batch", bi+1, "dropped", len(batch)-len(recovered))
		}
		if err := add(recovered); err != nil {
			return nil, err
		}
	}

	if index == nil || index.Len() == 0 {
		return nil, fmt.Errorf("%w: every chunk was dropped during embedding", domain.ErrEmptyIndex)
	}
	return index, nil
}

// retryHalved waits out the backoff and retries the failed batch in two
// halves; a half that still fails is quarantined.
func (ix *Indexer) retryHalved(ctx context.Context, batch []domain.Chunk) []vectorindex.Record {
	if err := sleepCtx(ctx, ix.policy.Backoff); err != nil {
		return nil
	}
	var out []vectorindex.Record
	mid := (len(batch) + 1) / 2
	for _, half := range [][]domain.Chunk{batch[:mid], batch[mid:]} {
		if len(half) == 0 {
			continue
		}
		vectors, err := ix.embedWithRetry(ctx, texts(half))
		if err != nil {
			ix.logger.Warn("halved batch quarantined", "chunks", len(half), "err", err)
			continue
		}
		out = append(out, toRecords(half, vectors)...)
	}
	return out
}

// retryPerItem embeds each chunk of a failed batch individually with a fixed
// delay, skipping chunks whose embedding still fails.
func (ix *Indexer) retryPerItem(ctx context.Context, batch []domain.Chunk) []vectorindex.Record {
	var out []vectorindex.Record
	for i, ch := range batch {
		if i > 0 {
			if err := sleepCtx(ctx, ix.policy.PerItemDelay); err != nil {
				return out
			}
		}
		vectors, err := ix.embedWithRetry(ctx, []string{ch.Text})
		if err != nil {
			ix.logger.Warn("chunk skipped after per-item retry",
				"section", ch.SectionIndex, "sequence", ch.SequenceIndex, "err", err)
			continue
		}
		out = append(out, vectorindex.Record{Vector: vectors[0], Chunk: ch})
	}
	return out
}

// embedWithRetry calls the gateway under the policy's attempt budget,
// retrying only gateway-classified failures.
func (ix *Indexer) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64
	backoff := retry.WithMaxRetries(uint64(ix.policy.MaxAttempts-1), retry.NewConstant(ix.policy.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := ix.gateway.EmbedBatch(ctx, texts)
		if err != nil {
			if errors.Is(err, domain.ErrGateway) {
				return retry.RetryableError(err)
			}
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func partition(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var out [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		out = append(out, chunks[start:end])
	}
	return out
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func toRecords(chunks []domain.Chunk, vectors [][]float64) []vectorindex.Record {
	records := make([]vectorindex.Record, len(chunks))
	for i := range chunks {
		records[i] = vectorindex.Record{Vector: vectors[i], Chunk: chunks[i]}
	}
	return records
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
