package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Ingestor はドキュメント取り込み処理の投入インターフェース
type Ingestor interface {
	// EnqueueDocument はドキュメントを取り込みキューへ投入する
	EnqueueDocument(ctx context.Context, documentID uuid.UUID) error
}

// Service はドキュメント管理のビジネスロジックを提供する
type Service struct {
	repo     Repository
	ingestor Ingestor
	logger   *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(repo Repository, ingestor Ingestor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		ingestor: ingestor,
		logger:   logger,
	}
}

// CreateDocument はアップロードされたファイルからドキュメントを作成し、取り込みキューへ投入する
// テキスト抽出に失敗した場合はドキュメントを作成しない
func (s *Service) CreateDocument(ctx context.Context, filename string, content []byte) (*Document, error) {
	text, contentType, err := ExtractText(filename, content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &Document{
		ID:          uuid.New(),
		Filename:    filename,
		ContentType: contentType,
		Content:     text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("ドキュメントを作成",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"content_type", doc.ContentType,
		"size", len(text),
	)

	if err := s.ingestor.EnqueueDocument(ctx, doc.ID); err != nil {
		// ドキュメント自体は作成済みなので、投入失敗はエラーにせずログに残す
		// 取り込み実行履歴には失敗として記録される
		s.logger.Error("取り込みキューへの投入に失敗",
			"document_id", doc.ID,
			"error", err,
		)
	}

	return doc, nil
}

// DefaultListLimit は一覧取得のデフォルト件数
const DefaultListLimit = 100

// ListDocuments はドキュメントを作成日時の降順でページング取得する
// limit が 0 以下の場合はデフォルト件数を使用する
func (s *Service) ListDocuments(ctx context.Context, skip, limit int) ([]*Document, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	docs, err := s.repo.ListDocuments(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// GetDocument はIDでドキュメントを取得する
// 存在しない場合は ErrNotFound を返す
func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	docOpt, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc, ok := docOpt.Get()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return doc, nil
}

// GetDocumentChunks はドキュメントに紐づくチャンクをインデックス順で取得する
// ドキュメントが存在しない場合は ErrNotFound を返す
func (s *Service) GetDocumentChunks(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	chunks, err := s.repo.GetChunksByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	return chunks, nil
}

// DeleteDocument はドキュメントと紐づくチャンクを削除する
// 存在しない場合は ErrNotFound を返す
func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	s.logger.Info("ドキュメントを削除", "document_id", id)
	return nil
}
