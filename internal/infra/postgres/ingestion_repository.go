package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/doc-query/internal/core/document"
	"github.com/jinford/doc-query/internal/core/ingestion"
)

// IngestionRepository は core/ingestion.Repository を実装する PostgreSQL リポジトリ。
// pgvector拡張がない環境ではEmbeddingを保存せず、チャンク本文のみ永続化する。
type IngestionRepository struct {
	db DBTX

	probeOnce sync.Once
	vector    bool
	probeErr  error
}

// NewIngestionRepository は新しい IngestionRepository を返す。
func NewIngestionRepository(db DBTX) *IngestionRepository {
	return &IngestionRepository{db: db}
}

var _ ingestion.Repository = (*IngestionRepository)(nil)

func (r *IngestionRepository) vectorCapable(ctx context.Context) (bool, error) {
	r.probeOnce.Do(func() {
		r.vector, r.probeErr = probeVectorCapability(ctx, r.db)
	})
	return r.vector, r.probeErr
}

func (r *IngestionRepository) CreateChunk(ctx context.Context, chunk *document.Chunk) error {
	capable, err := r.vectorCapable(ctx)
	if err != nil {
		return fmt.Errorf("failed to probe vector capability: %w", err)
	}

	if capable {
		_, err = r.db.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, content, chunk_index, token_count, degraded, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			UUIDToPgtype(chunk.ID),
			UUIDToPgtype(chunk.DocumentID),
			chunk.Content,
			int32(chunk.ChunkIndex),
			int32(chunk.TokenCount),
			chunk.Degraded,
			pgvector.NewVector(chunk.Embedding),
			TimeToPgtype(chunk.CreatedAt),
		)
	} else {
		_, err = r.db.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, content, chunk_index, token_count, degraded, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			UUIDToPgtype(chunk.ID),
			UUIDToPgtype(chunk.DocumentID),
			chunk.Content,
			int32(chunk.ChunkIndex),
			int32(chunk.TokenCount),
			chunk.Degraded,
			TimeToPgtype(chunk.CreatedAt),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

func (r *IngestionRepository) UpdateDocumentChunkIDs(ctx context.Context, documentID uuid.UUID, chunkIDs []uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE documents
		SET chunk_ids = $2, updated_at = $3
		WHERE id = $1`,
		UUIDToPgtype(documentID),
		UUIDsToPgtype(chunkIDs),
		TimeToPgtype(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to update document chunk ids: %w", err)
	}
	return nil
}

func (r *IngestionRepository) DeleteChunksByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`,
		UUIDToPgtype(documentID),
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (r *IngestionRepository) CreateRun(ctx context.Context, run *ingestion.Run) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ingestion_runs (id, document_id, state, chunk_count, error, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		UUIDToPgtype(run.ID),
		UUIDToPgtype(run.DocumentID),
		string(run.State),
		int32(run.ChunkCount),
		StringToNullableText(run.Error),
		TimeToPgtype(run.CreatedAt),
		TimePtrToPgtype(run.StartedAt),
		TimePtrToPgtype(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingestion run: %w", err)
	}
	return nil
}

func (r *IngestionRepository) MarkRunRunning(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE ingestion_runs
		SET state = $2, started_at = $3
		WHERE id = $1`,
		UUIDToPgtype(runID),
		string(ingestion.RunStateRunning),
		TimeToPgtype(startedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	return nil
}

func (r *IngestionRepository) MarkRunFinished(ctx context.Context, runID uuid.UUID, state ingestion.RunState, chunkCount int, runErr string, finishedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE ingestion_runs
		SET state = $2, chunk_count = $3, error = $4, finished_at = $5
		WHERE id = $1`,
		UUIDToPgtype(runID),
		string(state),
		int32(chunkCount),
		StringToNullableText(runErr),
		TimeToPgtype(finishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to mark run finished: %w", err)
	}
	return nil
}

func (r *IngestionRepository) ListRunsByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*ingestion.Run, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, state, chunk_count, error, created_at, started_at, finished_at
		FROM ingestion_runs
		WHERE document_id = $1
		ORDER BY created_at DESC`,
		UUIDToPgtype(documentID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []*ingestion.Run
	for rows.Next() {
		var (
			id         pgtype.UUID
			docID      pgtype.UUID
			state      string
			chunkCount int32
			runErr     pgtype.Text
			createdAt  pgtype.Timestamp
			startedAt  pgtype.Timestamp
			finishedAt pgtype.Timestamp
		)
		if err := rows.Scan(&id, &docID, &state, &chunkCount, &runErr, &createdAt, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion run: %w", err)
		}
		runs = append(runs, &ingestion.Run{
			ID:         PgtypeToUUID(id),
			DocumentID: PgtypeToUUID(docID),
			State:      ingestion.RunState(state),
			ChunkCount: int(chunkCount),
			Error:      PgtextToString(runErr),
			CreatedAt:  PgtypeToTime(createdAt),
			StartedAt:  PgtypeToTimePtr(startedAt),
			FinishedAt: PgtypeToTimePtr(finishedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingestion runs: %w", err)
	}
	return runs, nil
}
