package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-query/internal/core/provider"
)

type stubSearchRepo struct {
	capable    bool
	capableErr error

	vectorResults []*Result
	vectorErr     error
	lastVector    []float32
	lastLimit     int

	allChunks []*Result
	allErr    error
	listedAll bool
}

func (r *stubSearchRepo) VectorCapability(ctx context.Context) (bool, error) {
	return r.capable, r.capableErr
}

func (r *stubSearchRepo) SearchSimilarChunks(ctx context.Context, queryVector []float32, limit int) ([]*Result, error) {
	r.lastVector = queryVector
	r.lastLimit = limit
	return r.vectorResults, r.vectorErr
}

func (r *stubSearchRepo) ListAllChunks(ctx context.Context) ([]*Result, error) {
	r.listedAll = true
	return r.allChunks, r.allErr
}

type stubProvider struct {
	degraded bool
}

func (p *stubProvider) Embed(ctx context.Context, text string) provider.EmbedResult {
	if p.degraded {
		return provider.DegradedEmbed(3)
	}
	return provider.EmbedResult{Vector: []float32{1, 2, 3}}
}

func (p *stubProvider) BatchEmbed(ctx context.Context, texts []string) []provider.EmbedResult {
	results := make([]provider.EmbedResult, len(texts))
	for i := range texts {
		results[i] = p.Embed(ctx, texts[i])
	}
	return results
}

func (p *stubProvider) Complete(ctx context.Context, req provider.CompletionRequest) provider.Completion {
	return provider.Completion{Text: "ok"}
}

func (p *stubProvider) ModelName() string { return "stub-embedding" }
func (p *stubProvider) Dimension() int    { return 3 }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_SearchUsesVectorPath(t *testing.T) {
	repo := &stubSearchRepo{
		capable: true,
		vectorResults: []*Result{
			{ChunkID: uuid.New(), Content: "hit", Similarity: 0.9},
		},
	}
	svc := NewService(repo, &stubProvider{}, testLogger())

	resp, err := svc.Search(context.Background(), "query", 0)

	require.NoError(t, err)
	assert.Equal(t, ModeVector, resp.Mode)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []float32{1, 2, 3}, repo.lastVector)
	// limit 0 はデフォルト値に置き換えられる
	assert.Equal(t, DefaultLimit, repo.lastLimit)
	assert.False(t, repo.listedAll)
}

func TestService_SearchFallsBackWhenExtensionMissing(t *testing.T) {
	repo := &stubSearchRepo{
		capable: false,
		allChunks: []*Result{
			{ChunkID: uuid.New(), Content: "contains query text"},
			{ChunkID: uuid.New(), Content: "unrelated"},
		},
	}
	svc := NewService(repo, &stubProvider{}, testLogger())

	resp, err := svc.Search(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, resp.Mode)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, repo.allChunks[0].ChunkID, resp.Results[0].ChunkID)
}

func TestService_SearchFallsBackOnVectorQueryError(t *testing.T) {
	repo := &stubSearchRepo{
		capable:   true,
		vectorErr: errors.New("operator does not exist"),
		allChunks: []*Result{
			{ChunkID: uuid.New(), Content: "query lives here"},
		},
	}
	svc := NewService(repo, &stubProvider{}, testLogger())

	resp, err := svc.Search(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, resp.Mode)
	require.Len(t, resp.Results, 1)
}

func TestService_SearchFallsBackOnDegradedQueryEmbedding(t *testing.T) {
	repo := &stubSearchRepo{
		capable: true,
		allChunks: []*Result{
			{ChunkID: uuid.New(), Content: "query lives here"},
		},
	}
	svc := NewService(repo, &stubProvider{degraded: true}, testLogger())

	resp, err := svc.Search(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, ModeLexical, resp.Mode)
	// ベクトル検索は実行されない
	assert.Nil(t, repo.lastVector)
}

func TestService_SearchReturnsEmptyOnProbeError(t *testing.T) {
	repo := &stubSearchRepo{
		capableErr: errors.New("connection refused"),
		allChunks: []*Result{
			{ChunkID: uuid.New(), Content: "query lives here"},
		},
	}
	svc := NewService(repo, &stubProvider{}, testLogger())

	resp, err := svc.Search(context.Background(), "query", 5)

	// 拡張確認の失敗はフォールバックせず空の結果を返す
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.False(t, repo.listedAll)
}

func TestService_LexicalSearchPropagatesListError(t *testing.T) {
	repo := &stubSearchRepo{
		capable: false,
		allErr:  errors.New("table missing"),
	}
	svc := NewService(repo, &stubProvider{}, testLogger())

	_, err := svc.Search(context.Background(), "query", 5)

	require.Error(t, err)
}
