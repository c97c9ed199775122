package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/core/splitter"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// Config tunes the ingestion pipeline.
//
// EmbedID:   identity of the embedding transform (model name) for cache keys.
// BatchSize: how many chunks to embed in one provider call.
// Dim:       expected embedding dimensionality; zero disables the check.
type Config struct {
	EmbedID   string
	BatchSize int
	Dim       int
}

// Pipeline composes splitter, embedding capability, transform cache, dedup
// ledger and vector store into one ingestion run. Composition order is
// fixed: register, split, embed (cache-checked), persist vectors, commit the
// ledger record.
type Pipeline struct {
	splitter splitter.Splitter
	embedder core.EmbeddingProvider
	cache    *TransformCache
	ledger   *Ledger
	vectors  core.VectorStore
	cfg      Config
}

func NewPipeline(sp splitter.Splitter, emb core.EmbeddingProvider, cache *TransformCache, ledger *Ledger, vectors core.VectorStore, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	return &Pipeline{splitter: sp, embedder: emb, cache: cache, ledger: ledger, vectors: vectors, cfg: cfg}
}

// Ledger exposes the dedup ledger for callers that need standalone deletes.
func (p *Pipeline) Ledger() *Ledger {
	return p.ledger
}

// Run ingests a batch of documents and returns the chunks that were
// produced. Duplicates are skipped without reprocessing. If any step fails,
// every document registered during this run is purged from the ledger so a
// resubmission of the same batch is treated as fresh; chunks already flushed
// to the vector store may remain, the ledger cleanup alone makes the retry
// safe.
func (p *Pipeline) Run(ctx context.Context, docs []*models.Document) ([]models.Chunk, error) {
	type job struct {
		doc  *models.Document
		prev *models.DocumentRecord
	}

	var jobs []job
	var registered []string

	for _, doc := range docs {
		outcome, prev, err := p.ledger.Register(ctx, doc)
		if err != nil {
			return nil, p.fail(ctx, registered, err)
		}
		switch outcome {
		case models.DuplicateSkipped:
			log.Printf("pipeline: %s unchanged, skipping", doc.ID)
			continue
		case models.Updated:
			log.Printf("pipeline: %s changed, superseding %d chunks", doc.ID, len(prev.ChunkIDs))
		}
		jobs = append(jobs, job{doc: doc, prev: prev})
		registered = append(registered, doc.ID)
	}

	var all []models.Chunk
	for _, j := range jobs {
		chunks, err := p.splitter.Split(ctx, j.doc)
		if err != nil {
			return nil, p.fail(ctx, registered, fmt.Errorf("split %s: %w", j.doc.ID, err))
		}
		if err := p.embed(ctx, chunks); err != nil {
			return nil, p.fail(ctx, registered, fmt.Errorf("embed %s: %w", j.doc.ID, err))
		}

		// An update invalidates the prior chunk set before the new one
		// lands. An insert clears the id outright: a rolled-back earlier
		// run can leave vectors behind with no ledger record pointing at
		// them.
		if j.prev != nil && len(j.prev.ChunkIDs) > 0 {
			if err := p.vectors.DeleteByIDs(ctx, j.prev.ChunkIDs); err != nil {
				return nil, p.fail(ctx, registered, fmt.Errorf("supersede %s: %w", j.doc.ID, err))
			}
		} else if err := p.vectors.DeleteByDoc(ctx, j.doc.ID); err != nil {
			return nil, p.fail(ctx, registered, fmt.Errorf("supersede %s: %w", j.doc.ID, err))
		}
		if err := p.vectors.Upsert(ctx, chunks); err != nil {
			return nil, p.fail(ctx, registered, fmt.Errorf("upsert %s: %w", j.doc.ID, err))
		}

		ids := make([]string, len(chunks))
		for i := range chunks {
			ids[i] = chunks[i].ID
		}
		if err := p.ledger.Commit(ctx, j.doc.ID, ContentHash(j.doc.Text), ids); err != nil {
			return nil, p.fail(ctx, registered, err)
		}
		all = append(all, chunks...)
	}

	log.Printf("pipeline: ingested %d chunks from %d documents (%d skipped)", len(all), len(jobs), len(docs)-len(jobs))
	return all, nil
}

// embed fills chunk embeddings, consulting the transform cache per chunk and
// batching the misses into provider calls.
func (p *Pipeline) embed(ctx context.Context, chunks []models.Chunk) error {
	chain := p.splitter.ChainID() + "|embed:" + p.cfg.EmbedID

	var missIdx []int
	for i := range chunks {
		key := CacheKey(chunks[i].Text, chain)
		if raw, ok := p.cache.Lookup(ctx, key); ok {
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil {
				chunks[i].Embedding = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		batch := missIdx[start:end]

		texts := make([]string, len(batch))
		for k, i := range batch {
			texts[k] = chunks[i].Text
		}
		vecs, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(batch))
		}
		for k, i := range batch {
			if p.cfg.Dim > 0 && len(vecs[k]) != p.cfg.Dim {
				return fmt.Errorf("embedding dim mismatch: got %d want %d", len(vecs[k]), p.cfg.Dim)
			}
			chunks[i].Embedding = vecs[k]
			if raw, err := json.Marshal(vecs[k]); err == nil {
				_ = p.cache.Store(ctx, CacheKey(chunks[i].Text, chain), raw)
			}
		}
	}
	return nil
}

// fail purges every document registered during this run from the ledger and
// surfaces the failure, reporting its kind the way the caller will see it.
func (p *Pipeline) fail(ctx context.Context, registered []string, err error) error {
	log.Printf("pipeline: run failed (%T), purging %d documents from ledger for retry: %v", err, len(registered), err)
	for _, id := range registered {
		if derr := p.ledger.Delete(ctx, id); derr != nil {
			log.Printf("pipeline: ledger purge %s: %v", id, derr)
		}
	}
	return fmt.Errorf("ingestion run: %w", err)
}
