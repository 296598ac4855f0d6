package selfhosted

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-query/internal/core/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewProviderOptionsOverrideDefaults(t *testing.T) {
	p := NewProvider("http://localhost:11434/v1/",
		WithEmbeddingModel("custom-embedding"),
		WithCompletionModel("custom-completion"),
		WithDimension(128),
	)

	assert.Equal(t, "custom-embedding", p.ModelName())
	assert.Equal(t, 128, p.Dimension())
	assert.Equal(t, "custom-completion", p.completionModel)
	// 末尾スラッシュは除去される
	assert.Equal(t, "http://localhost:11434/v1", p.baseURL)
}

func TestBatchEmbed_Success(t *testing.T) {
	var gotReq embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float64{0.1, 0.2}},
				{"index": 1, "embedding": []float64{0.3, 0.4}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p := NewProvider(server.URL,
		WithEmbeddingModel("test-model"),
		WithDimension(2),
		WithLogger(discardLogger()),
	)

	results := p.BatchEmbed(context.Background(), []string{"first", "second"})

	require.Len(t, results, 2)
	assert.Equal(t, []float32{0.1, 0.2}, results[0].Vector)
	assert.Equal(t, []float32{0.3, 0.4}, results[1].Vector)
	assert.False(t, results[0].Degraded)
	assert.False(t, results[1].Degraded)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, []string{"first", "second"}, gotReq.Input)
}

func TestBatchEmbed_ServerErrorFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProvider(server.URL,
		WithDimension(3),
		WithLogger(discardLogger()),
	)

	results := p.BatchEmbed(context.Background(), []string{"a", "b"})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Degraded)
		assert.Equal(t, provider.ZeroVector(3), r.Vector)
	}
}

func TestBatchEmbed_UnreachableServerFailsOpen(t *testing.T) {
	p := NewProvider("http://127.0.0.1:1",
		WithDimension(2),
		WithLogger(discardLogger()),
	)

	results := p.BatchEmbed(context.Background(), []string{"a"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Degraded)
	assert.Equal(t, provider.ZeroVector(2), results[0].Vector)
}

func TestBatchEmbed_ShortResponsePadsMissingEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{1, 2}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p := NewProvider(server.URL,
		WithDimension(2),
		WithLogger(discardLogger()),
	)

	results := p.BatchEmbed(context.Background(), []string{"a", "b"})

	require.Len(t, results, 2)
	assert.True(t, results[0].Degraded)
	assert.Equal(t, provider.ZeroVector(2), results[0].Vector)
	assert.False(t, results[1].Degraded)
	assert.Equal(t, []float32{1, 2}, results[1].Vector)
}

func TestComplete_Success(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := map[string]any{
			"model": "llama3",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "generated"}},
			},
			"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p := NewProvider(server.URL, WithLogger(discardLogger()))

	completion := p.Complete(context.Background(), provider.CompletionRequest{
		Prompt:      "What is Go?",
		Context:     "Go is a programming language.",
		Temperature: 0.7,
		MaxTokens:   500,
	})

	assert.False(t, completion.Degraded)
	assert.Equal(t, "generated", completion.Text)
	assert.Equal(t, "llama3", completion.Model)
	assert.Equal(t, 10, completion.Usage.TotalTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "Context:\nGo is a programming language.")
	assert.Contains(t, gotReq.Messages[1].Content, "Question: What is Go?")
	assert.InDelta(t, 0.7, gotReq.Temperature, 1e-9)
	assert.Equal(t, 500, gotReq.MaxTokens)
}

func TestComplete_EmptyChoicesFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"choices": []any{}}))
	}))
	defer server.Close()

	p := NewProvider(server.URL, WithLogger(discardLogger()))

	completion := p.Complete(context.Background(), provider.CompletionRequest{Prompt: "hello"})

	assert.True(t, completion.Degraded)
	assert.Equal(t, provider.DegradedCompletionText, completion.Text)
}

func TestComplete_ServerErrorFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewProvider(server.URL, WithLogger(discardLogger()))

	completion := p.Complete(context.Background(), provider.CompletionRequest{Prompt: "hello"})

	assert.True(t, completion.Degraded)
	assert.Equal(t, provider.DegradedCompletionText, completion.Text)
	assert.Zero(t, completion.Usage.TotalTokens)
}
