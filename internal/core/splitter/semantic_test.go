package splitter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls int
	err   error
}

// EmbedTexts maps cat-themed text onto one axis and rocket-themed text onto
// the other, so adjacent-sentence distances are 0 within a topic and 1 across.
func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, txt := range texts {
		if strings.Contains(txt, "Cats") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestSemanticSplit_BreaksOnTopicShift(t *testing.T) {
	emb := &stubEmbedder{}
	s := NewSemanticSplitter(emb, 0, 50)

	chunks, err := s.Split(context.Background(), doc("topics.txt",
		"Cats purr. Cats meow. Rockets fly. Rockets launch."))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Cats purr. Cats meow.", chunks[0].Text)
	assert.Equal(t, "Rockets fly. Rockets launch.", chunks[1].Text)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, 1, emb.calls)
}

func TestSemanticSplit_SingleSentence(t *testing.T) {
	emb := &stubEmbedder{}
	s := NewSemanticSplitter(emb, 1, 95)

	chunks, err := s.Split(context.Background(), doc("one.txt", "Cats purr."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Cats purr.", chunks[0].Text)
	assert.Equal(t, 0, emb.calls, "single sentence needs no embedding")
}

func TestSemanticSplit_EmptyDocument(t *testing.T) {
	s := NewSemanticSplitter(&stubEmbedder{}, 1, 95)
	chunks, err := s.Split(context.Background(), doc("empty.txt", ""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSemanticSplit_EmbedderError(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("quota exceeded")}
	s := NewSemanticSplitter(emb, 1, 95)

	_, err := s.Split(context.Background(), doc("fail.txt", "Cats purr. Rockets fly."))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSemanticSplit_Deterministic(t *testing.T) {
	text := "Cats purr. Cats meow. Rockets fly. Rockets launch."
	s := NewSemanticSplitter(&stubEmbedder{}, 0, 50)

	first, err := s.Split(context.Background(), doc("topics.txt", text))
	require.NoError(t, err)
	second, err := s.Split(context.Background(), doc("topics.txt", text))
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestSemanticSplit_ChainIDReflectsParams(t *testing.T) {
	a := NewSemanticSplitter(&stubEmbedder{}, 1, 95).ChainID()
	b := NewSemanticSplitter(&stubEmbedder{}, 2, 90).ChainID()
	assert.Equal(t, "semantic:1:95", a)
	assert.NotEqual(t, a, b)
}
