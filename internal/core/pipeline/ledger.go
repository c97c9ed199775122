package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// ContentHash fingerprints a document's extracted text for dedup comparison.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Ledger is the deduplicator over the DocStore. It applies duplicates-only
// tracking: same id + same hash is skipped outright, same id + different
// hash is an update superseding the prior chunks, anything else is an insert.
type Ledger struct {
	store core.DocStore
}

func NewLedger(store core.DocStore) *Ledger {
	return &Ledger{store: store}
}

// Register classifies an incoming document against the ledger. For Updated
// the previous record is returned so the caller can invalidate its chunks.
// Nothing is written here; Commit records the document once its chunks are
// safely persisted.
func (l *Ledger) Register(ctx context.Context, doc *models.Document) (models.RegisterOutcome, *models.DocumentRecord, error) {
	prev, err := l.store.Get(ctx, doc.ID)
	if err != nil {
		return 0, nil, fmt.Errorf("ledger get %q: %w", doc.ID, err)
	}
	if prev == nil {
		return models.Inserted, nil, nil
	}
	if prev.ContentHash == ContentHash(doc.Text) {
		return models.DuplicateSkipped, prev, nil
	}
	return models.Updated, prev, nil
}

// Commit records a fully ingested document and the chunk ids produced from it.
func (l *Ledger) Commit(ctx context.Context, docID, contentHash string, chunkIDs []string) error {
	rec := &models.DocumentRecord{
		DocID:       docID,
		ContentHash: contentHash,
		ChunkIDs:    chunkIDs,
		UpdatedAt:   time.Now(),
	}
	if err := l.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("ledger put %q: %w", docID, err)
	}
	return nil
}

// Delete removes a document from the ledger so a retry is treated as fresh.
// Deleting an id that was never recorded is a no-op.
func (l *Ledger) Delete(ctx context.Context, docID string) error {
	return l.store.Delete(ctx, docID)
}
