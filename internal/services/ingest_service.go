package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/core/ingest"
	"github.com/insightlabs-ai/docinsight/internal/core/pipeline"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// BatchReport summarizes one ingestion batch: how many chunks were
// committed and which files failed extraction, keyed by file name.
type BatchReport struct {
	Chunks   int               `json:"chunks"`
	Failures map[string]string `json:"failures,omitempty"`
}

// IngestService runs uploaded files through extraction and the ingestion
// pipeline. Uploads are queued as batches; a bounded worker pool drains the
// queue in the background.
type IngestService struct {
	db       core.DbClient
	obj      core.ObjectClient
	ingestor *ingest.Ingestor
	pipe     *pipeline.Pipeline
	jobs     chan []string
}

// NewIngestService constructs the service with a bounded job queue (64).
func NewIngestService(db core.DbClient, obj core.ObjectClient, ing *ingest.Ingestor, pipe *pipeline.Pipeline) *IngestService {
	return &IngestService{
		db: db, obj: obj, ingestor: ing, pipe: pipe,
		jobs: make(chan []string, 64),
	}
}

// Start launches worker goroutines reading batches from the jobs channel.
func (s *IngestService) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Println("IngestService: worker shutting down.")
					return
				case batch := <-s.jobs:
					log.Printf("IngestService: worker %d processing batch of %d uploads", w, len(batch))
					if _, err := s.ProcessBatch(ctx, batch); err != nil {
						log.Printf("IngestService: batch failed: %v", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a batch of upload IDs for ingestion.
// If the queue is full, this call will block until space frees up.
func (s *IngestService) Enqueue(uploadIDs []string) {
	s.jobs <- uploadIDs
}

// ProcessBatch extracts every upload in the batch and runs the result
// through the ingestion pipeline as one batch. A file that fails extraction
// is recorded and skipped without aborting its siblings; a pipeline failure
// rolls the whole batch back from the dedup ledger so a resubmission is
// treated as fresh.
func (s *IngestService) ProcessBatch(ctx context.Context, uploadIDs []string) (*BatchReport, error) {
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Minute)
	defer cancel()

	report := &BatchReport{Failures: make(map[string]string)}

	type extracted struct {
		uploadID string
		doc      *models.Document
	}
	results := make([]*extracted, len(uploadIDs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(procCtx)
	g.SetLimit(4)

	for idx, id := range uploadIDs {
		g.Go(func() error {
			doc, name, err := s.extractOne(gctx, id)
			if err != nil {
				mu.Lock()
				report.Failures[name] = err.Error()
				mu.Unlock()
				_ = s.db.UpdateUploadStatus(gctx, id, "failed")
				return nil // per-file isolation: siblings keep going
			}
			results[idx] = &extracted{uploadID: id, doc: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	var docs []*models.Document
	var good []*extracted
	for _, r := range results {
		if r != nil {
			docs = append(docs, r.doc)
			good = append(good, r)
		}
	}
	if len(docs) == 0 {
		return report, nil
	}

	chunks, err := s.pipe.Run(procCtx, docs)
	if err != nil {
		for _, r := range good {
			_ = s.db.UpdateUploadStatus(procCtx, r.uploadID, "failed")
		}
		return report, err
	}

	for _, r := range good {
		_ = s.db.UpdateUploadStatus(procCtx, r.uploadID, "ready")
	}
	report.Chunks = len(chunks)
	log.Printf("IngestService: batch complete, %d chunks ingested, %d failures", len(chunks), len(report.Failures))
	return report, nil
}

// extractOne fetches an upload's bytes and extracts its page-tagged
// document, falling back to the OCR path exactly once when direct
// extraction yields no text.
func (s *IngestService) extractOne(ctx context.Context, uploadID string) (*models.Document, string, error) {
	up, err := s.db.GetUploadByID(ctx, uploadID)
	if err != nil || up == nil {
		return nil, uploadID, fmt.Errorf("upload not found: %w", err)
	}
	_ = s.db.UpdateUploadStatus(ctx, uploadID, "processing")

	bucket, key := parseS3URL(up.StorageURL)
	data, err := s.obj.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, up.FileName, fmt.Errorf("fetch upload: %w", err)
	}

	res, err := s.ingestor.Ingest(ctx, data, up.FileName)
	if err != nil {
		return nil, up.FileName, err
	}
	if res.NeedsOCR {
		log.Printf("IngestService: %s has no extractable text, running OCR", up.FileName)
		doc, err := s.ingestor.IngestOCR(ctx, data, up.FileName)
		if err != nil {
			return nil, up.FileName, err
		}
		return doc, up.FileName, nil
	}
	return res.Doc, up.FileName, nil
}

// parseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL.
// Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if parts := strings.Split(host, "."); len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
