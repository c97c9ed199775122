package splitter

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// SemanticSplitter places chunk boundaries where the embedding similarity of
// adjacent sentence windows drops below a percentile threshold computed over
// the document's own distance distribution. Chunks come out variable-length
// and topically coherent. Splitting and embedding are coupled for this
// strategy, so the splitter holds the embedding capability itself.
type SemanticSplitter struct {
	embedder   core.EmbeddingProvider
	bufferSize int     // sentences of context on each side of a window
	percentile float64 // breakpoint percentile, e.g. 95
}

func NewSemanticSplitter(embedder core.EmbeddingProvider, bufferSize int, percentile float64) *SemanticSplitter {
	if bufferSize < 0 {
		bufferSize = 1
	}
	if percentile <= 0 || percentile > 100 {
		percentile = 95
	}
	return &SemanticSplitter{embedder: embedder, bufferSize: bufferSize, percentile: percentile}
}

func (s *SemanticSplitter) ChainID() string {
	return fmt.Sprintf("semantic:%d:%g", s.bufferSize, s.percentile)
}

func (s *SemanticSplitter) Split(ctx context.Context, doc *models.Document) ([]models.Chunk, error) {
	units := splitSentences(doc.Text)
	if len(units) == 0 {
		return nil, nil
	}
	if len(units) == 1 {
		return []models.Chunk{newChunk(doc, 0, units[0])}, nil
	}

	// Embed each sentence with its buffered neighborhood so a single short
	// sentence does not flip the boundary decision on its own.
	windows := make([]string, len(units))
	for i := range units {
		lo := i - s.bufferSize
		if lo < 0 {
			lo = 0
		}
		hi := i + s.bufferSize + 1
		if hi > len(units) {
			hi = len(units)
		}
		windows[i] = strings.Join(units[lo:hi], " ")
	}

	vecs, err := s.embedder.EmbedTexts(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("semantic split embed: %w", err)
	}
	if len(vecs) != len(windows) {
		return nil, fmt.Errorf("semantic split embed size mismatch: got %d want %d", len(vecs), len(windows))
	}

	distances := make([]float64, len(units)-1)
	for i := 0; i < len(units)-1; i++ {
		distances[i] = 1 - cosineSimilarity(vecs[i], vecs[i+1])
	}
	threshold := percentileOf(distances, s.percentile)

	var chunks []models.Chunk
	start := 0
	pos := 0
	for i, d := range distances {
		if d > threshold {
			chunks = append(chunks, newChunk(doc, pos, strings.Join(units[start:i+1], " ")))
			pos++
			start = i + 1
		}
	}
	chunks = append(chunks, newChunk(doc, pos, strings.Join(units[start:], " ")))
	return chunks, nil
}

// cosineSimilarity between two float32 vectors; zero-magnitude or mismatched
// vectors score 0 rather than erroring, since a degenerate window just means
// no boundary signal.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}

// percentileOf returns the p-th percentile of values (nearest-rank).
func percentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
