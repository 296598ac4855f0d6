package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"

	"github.com/jinford/doc-query/internal/core/document"
)

// DocumentRepository は core/document.Repository を実装する PostgreSQL リポジトリ。
type DocumentRepository struct {
	db DBTX
}

// NewDocumentRepository は新しい DocumentRepository を返す。
func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ document.Repository = (*DocumentRepository)(nil)

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *document.Document) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO documents (id, filename, content_type, content, chunk_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		UUIDToPgtype(doc.ID),
		doc.Filename,
		doc.ContentType,
		doc.Content,
		UUIDsToPgtype(doc.ChunkIDs),
		TimeToPgtype(doc.CreatedAt),
		TimeToPgtype(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (mo.Option[*document.Document], error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, filename, content_type, content, chunk_ids, created_at, updated_at
		FROM documents
		WHERE id = $1`,
		UUIDToPgtype(id),
	)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*document.Document](), nil
		}
		return mo.None[*document.Document](), fmt.Errorf("failed to get document: %w", err)
	}
	return mo.Some(doc), nil
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, skip, limit int) ([]*document.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, filename, content_type, content, chunk_ids, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetChunksByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*document.Chunk, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, content, chunk_index, token_count, degraded, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index`,
		UUIDToPgtype(documentID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*document.Chunk
	for rows.Next() {
		var (
			chunkID    pgtype.UUID
			docID      pgtype.UUID
			content    string
			chunkIndex int32
			tokenCount int32
			degraded   bool
			createdAt  pgtype.Timestamp
		)
		if err := rows.Scan(&chunkID, &docID, &content, &chunkIndex, &tokenCount, &degraded, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &document.Chunk{
			ID:         PgtypeToUUID(chunkID),
			DocumentID: PgtypeToUUID(docID),
			Content:    content,
			ChunkIndex: int(chunkIndex),
			TokenCount: int(tokenCount),
			Degraded:   degraded,
			CreatedAt:  PgtypeToTime(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}
	return chunks, nil
}

func (r *DocumentRepository) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	// document_chunks と ingestion_runs は ON DELETE CASCADE で一緒に消える
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, UUIDToPgtype(id))
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		id          pgtype.UUID
		filename    string
		contentType string
		content     string
		chunkIDs    []pgtype.UUID
		createdAt   pgtype.Timestamp
		updatedAt   pgtype.Timestamp
	)
	if err := row.Scan(&id, &filename, &contentType, &content, &chunkIDs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &document.Document{
		ID:          PgtypeToUUID(id),
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		ChunkIDs:    PgtypeToUUIDs(chunkIDs),
		CreatedAt:   PgtypeToTime(createdAt),
		UpdatedAt:   PgtypeToTime(updatedAt),
	}, nil
}
