package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-query/internal/core/document"
	"github.com/jinford/doc-query/internal/core/ingestion/splitter"
	"github.com/jinford/doc-query/internal/core/provider"
)

// DocumentStore は取り込み対象ドキュメントの取得インターフェース
type DocumentStore interface {
	GetDocumentByID(ctx context.Context, id uuid.UUID) (mo.Option[*document.Document], error)
}

// TokenCounter はチャンクのトークン数算出インターフェース
type TokenCounter interface {
	CountAll(texts []string) []int
}

// Service はドキュメント取り込みのビジネスロジックを提供する
// 分割、トークン数算出、Embedding生成、チャンク保存までを1回の取り込みとして実行する
type Service struct {
	repo     Repository
	docs     DocumentStore
	provider provider.Provider
	splitter *splitter.Splitter
	counter  TokenCounter
	logger   *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(repo Repository, docs DocumentStore, p provider.Provider, sp *splitter.Splitter, counter TokenCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		docs:     docs,
		provider: p,
		splitter: sp,
		counter:  counter,
		logger:   logger,
	}
}

// Ingest はドキュメントを分割してEmbeddingを生成し、チャンクとして保存する
// 同一ドキュメントの既存チャンクは削除してから再作成する
// 戻り値は保存したチャンク数
func (s *Service) Ingest(ctx context.Context, documentID uuid.UUID) (int, error) {
	docOpt, err := s.docs.GetDocumentByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to get document: %w", err)
	}
	doc, ok := docOpt.Get()
	if !ok {
		return 0, fmt.Errorf("%s: %w", documentID, document.ErrNotFound)
	}

	if err := s.repo.DeleteChunksByDocumentID(ctx, documentID); err != nil {
		return 0, fmt.Errorf("failed to delete existing chunks: %w", err)
	}

	texts := s.splitter.Split(doc.Content)
	counts := s.counter.CountAll(texts)

	// ドキュメント全体のEmbeddingを一度のバッチ呼び出しで生成する
	embeds := s.provider.BatchEmbed(ctx, texts)
	if len(embeds) != len(texts) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeds), len(texts))
	}

	degradedCount := 0
	now := time.Now()
	chunkIDs := make([]uuid.UUID, 0, len(texts))
	for i, text := range texts {
		chunk := &document.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			Content:    text,
			ChunkIndex: i,
			TokenCount: counts[i],
			Embedding:  embeds[i].Vector,
			Degraded:   embeds[i].Degraded,
			CreatedAt:  now,
		}
		if chunk.Degraded {
			degradedCount++
		}
		if err := s.repo.CreateChunk(ctx, chunk); err != nil {
			return 0, fmt.Errorf("failed to create chunk %d: %w", i, err)
		}
		chunkIDs = append(chunkIDs, chunk.ID)
	}

	if err := s.repo.UpdateDocumentChunkIDs(ctx, documentID, chunkIDs); err != nil {
		return 0, fmt.Errorf("failed to update document chunk ids: %w", err)
	}

	s.logger.Info("ドキュメントの取り込みが完了",
		"document_id", documentID,
		"filename", doc.Filename,
		"chunk_count", len(chunkIDs),
		"degraded_count", degradedCount,
		"model", s.provider.ModelName(),
	)

	return len(chunkIDs), nil
}

// ListRuns はドキュメントの取り込み実行履歴を取得する
func (s *Service) ListRuns(ctx context.Context, documentID uuid.UUID) ([]*Run, error) {
	runs, err := s.repo.ListRunsByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	return runs, nil
}
