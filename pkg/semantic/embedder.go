package semantic

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dendrite-ai/dendrite/pkg/errors"
)

// Embedder is the injected text-to-vector capability. The engine never talks
// to an embedding backend directly, so tests can substitute a deterministic
// implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{strings.TrimSpace(text)},
		Model: e.model,
	})
	if err != nil {
		return nil, errors.Newf(errors.KindSemanticAnalysis, "embedding request failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New(errors.KindSemanticAnalysis, "embedding response contained no vectors")
	}
	return resp.Data[0].Embedding, nil
}

const mockDimensions = 32

/*
MockEmbedder produces deterministic embeddings derived from word content:
each word is hashed into a fixed bucket, so texts sharing vocabulary come out
geometrically close. Good enough for tests and offline runs; nothing more.
*/
type MockEmbedder struct{}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, mockDimensions)
	for _, word := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%mockDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
