package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightlabs-ai/docinsight/internal/core/memorystore"
	"github.com/insightlabs-ai/docinsight/internal/core/pipeline"
	"github.com/insightlabs-ai/docinsight/internal/core/provenance"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

type fakeEmbedder struct {
	calls int
	vec   []float32
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type fakeLLM struct {
	prompts []string
	reply   string
}

func (f *fakeLLM) Generate(_ context.Context, _, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	return f.reply, nil
}

func seededChatService(t *testing.T) (*ChatService, *fakeEmbedder, *fakeLLM, *memorystore.VectorStore) {
	t.Helper()
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	llm := &fakeLLM{reply: "The warranty lasts two years."}
	vectors := memorystore.NewVectorStore()
	cache := pipeline.NewTransformCache(memorystore.NewCacheStore())
	svc := NewChatService(emb, llm, vectors, cache, "test-embed", 5)
	return svc, emb, llm, vectors
}

func storedChunk(id, source, text string, vec []float32) models.Chunk {
	return models.Chunk{
		ID:        id,
		DocID:     source,
		Text:      text,
		Embedding: vec,
		Metadata:  models.Metadata{Source: source},
		Pages:     provenance.Resolve(text),
	}
}

func TestAnswer_EmptyStoreReturnsNoSources(t *testing.T) {
	svc, _, llm, _ := seededChatService(t)

	resp, err := svc.Answer(context.Background(), nil, "what is the warranty?")
	require.NoError(t, err)
	assert.Equal(t, NoSourcesMessage, resp.Answer)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, llm.prompts, "no generation without sources")
}

func TestAnswer_CitationsCarryProvenance(t *testing.T) {
	svc, _, _, vectors := seededChatService(t)

	text := provenance.WrapPage(4, "The warranty covers two years of use.")
	require.NoError(t, vectors.Upsert(context.Background(), []models.Chunk{
		storedChunk("c1", "manual.pdf", text, []float32{1, 0}),
	}))

	resp, err := svc.Answer(context.Background(), nil, "what is the warranty?")
	require.NoError(t, err)

	assert.Equal(t, "The warranty lasts two years.", resp.Answer)
	require.Len(t, resp.Citations, 1)
	cit := resp.Citations[0]
	assert.Equal(t, "manual.pdf", cit.Source)
	assert.Equal(t, []int{4}, cit.Pages)
	assert.NotContains(t, cit.Snippet, "PAGE_NUM")
	assert.Contains(t, cit.Snippet, "warranty")
}

func TestAnswer_PromptStripsSentinelsAndKeepsHistory(t *testing.T) {
	svc, _, llm, vectors := seededChatService(t)

	text := provenance.WrapPage(1, "Refunds are processed in ten days.")
	require.NoError(t, vectors.Upsert(context.Background(), []models.Chunk{
		storedChunk("c1", "policy.pdf", text, []float32{1, 0}),
	}))

	history := []models.ChatMessage{
		{Role: "user", Content: "do you ship abroad?"},
		{Role: "assistant", Content: "Yes, worldwide."},
	}
	_, err := svc.Answer(context.Background(), history, "and refunds?")
	require.NoError(t, err)

	require.NotEmpty(t, llm.prompts)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "do you ship abroad?")
	assert.Contains(t, prompt, "Yes, worldwide.")
	assert.Contains(t, prompt, "Refunds are processed in ten days.")
	assert.Contains(t, prompt, "Question: and refunds?")
	assert.NotContains(t, prompt, "PAGE_NUM")
}

func TestAnswer_RepeatedQueryHitsEmbeddingCache(t *testing.T) {
	svc, emb, _, vectors := seededChatService(t)

	require.NoError(t, vectors.Upsert(context.Background(), []models.Chunk{
		storedChunk("c1", "manual.pdf", provenance.WrapPage(1, "Some content."), []float32{1, 0}),
	}))

	_, err := svc.Answer(context.Background(), nil, "same question")
	require.NoError(t, err)
	_, err = svc.Answer(context.Background(), nil, "same question")
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls, "second identical query is served from cache")
}

func TestAnswer_TopKLimitsRetrieval(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	llm := &fakeLLM{reply: "ok"}
	vectors := memorystore.NewVectorStore()
	cache := pipeline.NewTransformCache(memorystore.NewCacheStore())
	svc := NewChatService(emb, llm, vectors, cache, "test-embed", 2)

	var chunks []models.Chunk
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		chunks = append(chunks, storedChunk(id, "doc.pdf", provenance.WrapPage(1, "Content "+id+"."), []float32{1, 0}))
	}
	require.NoError(t, vectors.Upsert(context.Background(), chunks))

	resp, err := svc.Answer(context.Background(), nil, "anything")
	require.NoError(t, err)
	assert.Len(t, resp.Citations, 2)
}

func TestSnippet_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", 300)
	out := snippet(long, 240)
	assert.Equal(t, 241, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))

	assert.Equal(t, "short", snippet("short", 240))
}
