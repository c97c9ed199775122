package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/core/pipeline"
	"github.com/insightlabs-ai/docinsight/internal/core/provenance"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// NoSourcesMessage is returned when retrieval finds nothing to ground an
// answer in. An empty result is an explicit outcome, not an error.
const NoSourcesMessage = "I could not find anything relevant in the uploaded documents."

const answerSystemPrompt = "You are an intelligent assistant answering based only on the given document content. If unsure, say 'I cannot find this in the document.'"

// ChatResponse carries the answer, its citations, and the span of source
// text that justifies it.
type ChatResponse struct {
	Answer    string            `json:"answer"`
	Citations []models.Citation `json:"citations"`
	Context   string            `json:"context,omitempty"`
}

// ChatService answers questions over the ingested corpus: embed the query,
// retrieve similar chunks, and generate a grounded answer with the
// conversation history the caller passed in. Session state stays with the
// caller; this service is stateless.
type ChatService struct {
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
	vectors  core.VectorStore
	cache    *pipeline.TransformCache
	embedID  string
	topK     int
}

func NewChatService(emb core.EmbeddingProvider, llm core.LLMProvider, vectors core.VectorStore, cache *pipeline.TransformCache, embedID string, topK int) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{embedder: emb, llm: llm, vectors: vectors, cache: cache, embedID: embedID, topK: topK}
}

// Answer runs one conversational turn.
func (s *ChatService) Answer(ctx context.Context, history []models.ChatMessage, query string) (*ChatResponse, error) {
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(hits) == 0 {
		return &ChatResponse{Answer: NoSourcesMessage}, nil
	}

	answer, err := s.llm.Generate(ctx, answerSystemPrompt, buildAnswerPrompt(history, hits, query))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	resp := &ChatResponse{
		Answer:    answer,
		Citations: citationsFor(hits),
	}

	// Ask the model which span of the best chunk justifies the answer, so
	// the user can check the claim against the source.
	if span, err := s.llm.Generate(ctx, "", contextInstruction(provenance.Strip(hits[0].Chunk.Text), answer)); err == nil {
		resp.Context = strings.TrimSpace(span)
	}
	return resp, nil
}

// embedQuery embeds the query text, cached so repeated questions skip the
// provider round trip. Concurrent identical queries share one computation.
func (s *ChatService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := pipeline.CacheKey(query, "embed:"+s.embedID)
	raw, err := s.cache.GetOrCompute(ctx, key, func() ([]byte, error) {
		vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, fmt.Errorf("empty embedding response")
		}
		return encodeVector(vecs[0]), nil
	})
	if err != nil {
		return nil, err
	}
	return decodeVector(raw)
}

// buildAnswerPrompt lays out prior turns, retrieved context and the new
// question for the completion model. Page sentinels are stripped before
// any text reaches the model.
func buildAnswerPrompt(history []models.ChatMessage, hits []models.ScoredChunk, query string) string {
	var sb strings.Builder

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, msg := range history {
			sb.WriteString(msg.Role)
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Context:\n")
	for _, h := range hits {
		sb.WriteString(provenance.Strip(h.Chunk.Text))
		sb.WriteString("\n---\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

// contextInstruction asks for the exact 5-6 sentence span of the source
// chunk that the answer was drawn from.
func contextInstruction(fullChunk, answer string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert in content writing. Your job is to find the exact context used in the full chunk text to generate the given answer.\n")
	sb.WriteString("Generate the exact context used from the chunk below to produce the answer. It should be 5-6 sentences, using the same words and formatting as the chunk.\n\n")
	sb.WriteString("Chunk:\n")
	sb.WriteString(fullChunk)
	sb.WriteString("\n\nAnswer:\n")
	sb.WriteString(answer)
	return sb.String()
}

// citationsFor maps retrieved chunks to their provenance. A chunk whose
// text carries no page marker yields an empty page set, which the UI shows
// as "no page number found" rather than a crash.
func citationsFor(hits []models.ScoredChunk) []models.Citation {
	out := make([]models.Citation, 0, len(hits))
	for _, h := range hits {
		pages := h.Chunk.Pages
		if pages == nil {
			pages = provenance.Resolve(h.Chunk.Text)
		}
		out = append(out, models.Citation{
			Source:  h.Chunk.Metadata.Source,
			Pages:   pages,
			Snippet: snippet(provenance.Strip(h.Chunk.Text), 240),
			Score:   h.Score,
		})
	}
	return out
}

func encodeVector(v []float32) []byte {
	b, _ := json.Marshal(v)
	return b
}

func decodeVector(raw []byte) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached embedding: %w", err)
	}
	return v, nil
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
