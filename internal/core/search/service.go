package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/doc-query/internal/core/provider"
)

// Response は検索結果と実行された検索経路を表す
type Response struct {
	Results []*Result `json:"results"`
	Mode    Mode      `json:"mode"`
}

// Service は検索のビジネスロジックを提供する
// pgvectorが使えない環境では部分一致検索へ自動的に切り替える
type Service struct {
	repo     Repository
	provider provider.Provider
	logger   *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(repo Repository, p provider.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		provider: p,
		logger:   logger,
	}
}

// Search はクエリに類似するチャンクを検索する
// limit が0以下の場合は DefaultLimit を使う
// pgvector拡張の確認自体に失敗した場合のみ空の結果を返す
func (s *Service) Search(ctx context.Context, query string, limit int) (*Response, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	capable, err := s.repo.VectorCapability(ctx)
	if err != nil {
		// 拡張の有無すら確認できない場合はフォールバックせず空で返す
		s.logger.Error("pgvector拡張の確認に失敗", "error", err)
		return &Response{Results: []*Result{}, Mode: ModeVector}, nil
	}
	if !capable {
		s.logger.Warn("pgvector拡張が利用不可、部分一致検索へフォールバック", "query", query)
		return s.lexicalSearch(ctx, query, limit)
	}

	embed := s.provider.Embed(ctx, query)
	if embed.Degraded {
		// クエリのEmbeddingが縮退した場合、ベクトル検索は意味を持たない
		s.logger.Warn("クエリのEmbedding生成が縮退、部分一致検索へフォールバック", "query", query)
		return s.lexicalSearch(ctx, query, limit)
	}

	results, err := s.repo.SearchSimilarChunks(ctx, embed.Vector, limit)
	if err != nil {
		s.logger.Error("ベクトル検索に失敗、部分一致検索へフォールバック",
			"query", query,
			"error", err,
		)
		return s.lexicalSearch(ctx, query, limit)
	}

	s.logger.Info("ベクトル検索が完了",
		"query", query,
		"result_count", len(results),
	)
	if results == nil {
		results = []*Result{}
	}
	return &Response{Results: results, Mode: ModeVector}, nil
}

func (s *Service) lexicalSearch(ctx context.Context, query string, limit int) (*Response, error) {
	chunks, err := s.repo.ListAllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks for lexical search: %w", err)
	}

	results := RankLexical(chunks, query, limit)
	s.logger.Info("部分一致検索が完了",
		"query", query,
		"result_count", len(results),
	)
	return &Response{Results: results, Mode: ModeLexical}, nil
}
