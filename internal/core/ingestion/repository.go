package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/doc-query/internal/core/document"
)

// RunState は取り込み実行の状態を表す
type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// Run はドキュメント1件に対する取り込みの実行履歴を表す
type Run struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"documentID"`
	State      RunState   `json:"state"`
	ChunkCount int        `json:"chunkCount"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Repository は取り込み関連の全データアクセスを統合するインターフェース
type Repository interface {
	// CreateChunk はチャンクを保存する
	CreateChunk(ctx context.Context, chunk *document.Chunk) error

	// UpdateDocumentChunkIDs はドキュメントのチャンクID一覧を更新する
	UpdateDocumentChunkIDs(ctx context.Context, documentID uuid.UUID, chunkIDs []uuid.UUID) error

	// DeleteChunksByDocumentID はドキュメントに紐づく既存チャンクを削除する（再取り込み用）
	DeleteChunksByDocumentID(ctx context.Context, documentID uuid.UUID) error

	// CreateRun は新しい実行履歴を pending 状態で保存する
	CreateRun(ctx context.Context, run *Run) error

	// MarkRunRunning は実行履歴を running 状態へ遷移させる
	MarkRunRunning(ctx context.Context, runID uuid.UUID, startedAt time.Time) error

	// MarkRunFinished は実行履歴を終了状態へ遷移させる
	MarkRunFinished(ctx context.Context, runID uuid.UUID, state RunState, chunkCount int, runErr string, finishedAt time.Time) error

	// ListRunsByDocumentID はドキュメントの実行履歴を作成日時の降順で取得する
	ListRunsByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*Run, error)
}
