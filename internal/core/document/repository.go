package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Repository はドキュメント関連の全データアクセスを統合するインターフェース
type Repository interface {
	// CreateDocument は新しいドキュメントを保存する
	CreateDocument(ctx context.Context, doc *Document) error

	// GetDocumentByID はIDでドキュメントを取得する
	GetDocumentByID(ctx context.Context, id uuid.UUID) (mo.Option[*Document], error)

	// ListDocuments はドキュメントを作成日時の降順でページング取得する
	ListDocuments(ctx context.Context, skip, limit int) ([]*Document, error)

	// GetChunksByDocumentID はドキュメントに紐づくチャンクをインデックス順で取得する
	GetChunksByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error)

	// DeleteDocument はドキュメントと紐づくチャンクを削除する
	// 削除対象が存在しない場合は false を返す
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)
}
