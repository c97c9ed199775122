package splitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/insightlabs-ai/docinsight/internal/core/provenance"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// SentenceSplitter produces fixed-size chunks with overlap, both measured in
// characters. Boundaries land on the nearest sentence break at or before the
// size limit; a single sentence longer than the limit is hard-cut.
type SentenceSplitter struct {
	chunkSize int
	overlap   int
}

func NewSentenceSplitter(chunkSize, overlap int) *SentenceSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &SentenceSplitter{chunkSize: chunkSize, overlap: overlap}
}

func (s *SentenceSplitter) ChainID() string {
	return fmt.Sprintf("sentence:%d:%d", s.chunkSize, s.overlap)
}

func (s *SentenceSplitter) Split(_ context.Context, doc *models.Document) ([]models.Chunk, error) {
	units := cutOversized(splitSentences(doc.Text), s.chunkSize)
	if len(units) == 0 {
		return nil, nil
	}

	var (
		chunks []models.Chunk
		buf    []string
		size   int
		pos    int
		fresh  int // units appended since the last flush
	)

	// flush emits the buffer as a chunk and reseeds it with an overlap tail.
	// A buffer holding only carried-over overlap is never emitted.
	flush := func() {
		if fresh == 0 {
			return
		}
		chunks = append(chunks, newChunk(doc, pos, strings.Join(buf, " ")))
		pos++
		fresh = 0

		if s.overlap <= 0 {
			buf = buf[:0]
			size = 0
			return
		}
		var keep []string
		remain := s.overlap
		for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
			keep = append([]string{buf[j]}, keep...)
			remain -= len(buf[j])
		}
		buf = keep
		size = 0
		for _, u := range buf {
			size += len(u)
		}
	}

	for _, u := range units {
		if size+len(u) > s.chunkSize && fresh > 0 {
			flush()
		}
		buf = append(buf, u)
		size += len(u)
		fresh++
	}
	flush()

	return chunks, nil
}

// cutOversized hard-cuts units longer than limit into limit-sized pieces at
// rune boundaries.
func cutOversized(units []string, limit int) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		if len(u) <= limit {
			out = append(out, u)
			continue
		}
		out = append(out, cutUnit(u, limit)...)
	}
	return out
}

// cutUnit hard-cuts one oversized unit, never through a page sentinel: a
// marker that would straddle the cut point moves whole into the next piece.
// A marker wider than the limit still comes out intact, as its own piece.
func cutUnit(u string, limit int) []string {
	var pieces []string
	var buf []rune
	flush := func() {
		if len(buf) > 0 {
			pieces = append(pieces, string(buf))
			buf = buf[:0]
		}
	}
	for _, seg := range provenance.SplitAround(u) {
		if provenance.IsMarker(seg) {
			if len(buf)+len(seg) > limit {
				flush()
			}
			buf = append(buf, []rune(seg)...)
			continue
		}
		for _, r := range seg {
			if len(buf) >= limit {
				flush()
			}
			buf = append(buf, r)
		}
	}
	flush()
	return pieces
}
