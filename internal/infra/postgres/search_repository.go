package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/doc-query/internal/core/search"
)

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ。
type SearchRepository struct {
	db DBTX
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(db DBTX) *SearchRepository {
	return &SearchRepository{db: db}
}

var _ search.Repository = (*SearchRepository)(nil)

func (r *SearchRepository) VectorCapability(ctx context.Context) (bool, error) {
	capable, err := probeVectorCapability(ctx, r.db)
	if err != nil {
		return false, fmt.Errorf("failed to probe vector capability: %w", err)
	}
	return capable, nil
}

func (r *SearchRepository) SearchSimilarChunks(ctx context.Context, queryVector []float32, limit int) ([]*search.Result, error) {
	// <=> はコサイン距離。類似度に直して降順で返す
	rows, err := r.db.Query(ctx, `
		SELECT c.document_id, c.id, d.filename, c.content, c.chunk_index,
		       1 - (c.embedding <=> $1) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(queryVector),
		int32(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar chunks: %w", err)
	}
	defer rows.Close()

	return scanResults(rows, true)
}

func (r *SearchRepository) ListAllChunks(ctx context.Context) ([]*search.Result, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.document_id, c.id, d.filename, c.content, c.chunk_index
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY d.created_at, c.chunk_index`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	return scanResults(rows, false)
}

type resultRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanResults(rows resultRows, withSimilarity bool) ([]*search.Result, error) {
	var results []*search.Result
	for rows.Next() {
		var (
			docID      pgtype.UUID
			chunkID    pgtype.UUID
			filename   string
			content    string
			chunkIndex int32
			similarity pgtype.Float8
		)
		dest := []any{&docID, &chunkID, &filename, &content, &chunkIndex}
		if withSimilarity {
			dest = append(dest, &similarity)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, &search.Result{
			DocumentID: PgtypeToUUID(docID),
			ChunkID:    PgtypeToUUID(chunkID),
			Filename:   filename,
			Content:    content,
			ChunkIndex: int(chunkIndex),
			Similarity: similarity.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}
	return results, nil
}
