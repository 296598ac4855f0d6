package ask

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/doc-query/internal/core/provider"
	"github.com/jinford/doc-query/internal/core/search"
)

// Searcher は回答の根拠となるチャンクの検索インターフェース
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*search.Response, error)
}

// Service は質問応答のビジネスロジックを提供する
// 検索で得たチャンクをコンテキストとしてLLMに回答を生成させる
type Service struct {
	searcher Searcher
	provider provider.Provider
	logger   *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(searcher Searcher, p provider.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		searcher: searcher,
		provider: p,
		logger:   logger,
	}
}

// Ask は質問に対する回答を生成する
// 関連チャンクが1件も見つからない場合はLLMを呼ばず固定回答を返す
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	resp, err := s.searcher.Search(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search relevant chunks: %w", err)
	}

	if len(resp.Results) == 0 {
		s.logger.Warn("関連チャンクが見つからない", "question", question)
		return &Answer{
			Question: question,
			Text:     NoContextAnswer,
			Sources:  []string{},
		}, nil
	}

	contents := make([]string, len(resp.Results))
	sources := make([]string, len(resp.Results))
	for i, result := range resp.Results {
		contents[i] = result.Content
		sources[i] = fmt.Sprintf("%s (Chunk %d)", result.Filename, result.ChunkIndex+1)
	}

	completion := s.provider.Complete(ctx, provider.CompletionRequest{
		Prompt:      question,
		Context:     strings.Join(contents, "\n\n"),
		Temperature: AnswerTemperature,
		MaxTokens:   AnswerMaxTokens,
	})

	s.logger.Info("回答を生成",
		"question", question,
		"source_count", len(sources),
		"search_mode", resp.Mode,
		"model", completion.Model,
		"degraded", completion.Degraded,
	)

	return &Answer{
		Question: question,
		Text:     completion.Text,
		Sources:  sources,
		Model:    completion.Model,
		Usage:    completion.Usage,
		Degraded: completion.Degraded,
	}, nil
}
