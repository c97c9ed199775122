package splitter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/insightlabs-ai/docinsight/internal/models"
	"github.com/insightlabs-ai/docinsight/internal/core/provenance"
)

// Splitter segments a document's text into an ordered, deterministic sequence
// of chunks. Same input and configuration always reproduce the same chunk
// boundaries and ids, so a restarted run is idempotent.
type Splitter interface {
	Split(ctx context.Context, doc *models.Document) ([]models.Chunk, error)

	// ChainID identifies this transformation and its parameters for
	// cache-key construction.
	ChainID() string
}

// chunkID derives a stable chunk identity from the parent document id, the
// chunk position and its content.
func chunkID(docID string, pos int, text string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%s", docID, pos, text)))
	return hex.EncodeToString(h[:16])
}

// newChunk builds a chunk with its id, inherited metadata and resolved pages.
func newChunk(doc *models.Document, pos int, text string) models.Chunk {
	return models.Chunk{
		ID:       chunkID(doc.ID, pos, text),
		DocID:    doc.ID,
		Position: pos,
		Text:     text,
		Metadata: doc.Metadata,
		Pages:    provenance.Resolve(text),
	}
}

// splitSentences partitions text into sentence-sized units without dropping
// any characters: a unit ends after '.', '!' or '?' followed by whitespace,
// and whatever trails the last terminator becomes the final unit. Page
// sentinels ride along untouched inside whichever unit they fall into.
func splitSentences(text string) []string {
	var units []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		unit := strings.TrimSpace(string(runes[start : i+1]))
		if unit != "" {
			units = append(units, unit)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		units = append(units, tail)
	}
	return units
}
