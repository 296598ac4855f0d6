package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/doc-query/internal/core/document"
)

const (
	// DefaultWorkerCount は取り込みワーカーのデフォルト並列数
	DefaultWorkerCount = 4
	// DefaultQueueSize は取り込みキューのデフォルト容量
	DefaultQueueSize = 64
)

// ErrQueueFull は取り込みキューが満杯で受け付けられないことを表す
var ErrQueueFull = errors.New("ingestion queue is full")

type job struct {
	runID      uuid.UUID
	documentID uuid.UUID
}

// Worker は取り込みジョブを並列実行するワーカープール
// 容量制限付きキューで受け付け、各ジョブの状態を実行履歴として永続化する
type Worker struct {
	service     *Service
	repo        Repository
	queue       chan job
	workerCount int
	logger      *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

type workerOptions struct {
	workerCount int
	queueSize   int
	logger      *slog.Logger
}

// WorkerOption は Worker のオプション設定
type WorkerOption func(*workerOptions)

// WithWorkerCount はワーカーの並列数を上書きする
func WithWorkerCount(n int) WorkerOption {
	return func(o *workerOptions) {
		o.workerCount = n
	}
}

// WithQueueSize はキューの容量を上書きする
func WithQueueSize(n int) WorkerOption {
	return func(o *workerOptions) {
		o.queueSize = n
	}
}

// WithWorkerLogger はロガーを設定する
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		o.logger = logger
	}
}

// NewWorker は新しい Worker を作成する
func NewWorker(service *Service, repo Repository, opts ...WorkerOption) *Worker {
	options := workerOptions{
		workerCount: DefaultWorkerCount,
		queueSize:   DefaultQueueSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.workerCount <= 0 {
		options.workerCount = DefaultWorkerCount
	}
	if options.queueSize <= 0 {
		options.queueSize = DefaultQueueSize
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Worker{
		service:     service,
		repo:        repo,
		queue:       make(chan job, options.queueSize),
		workerCount: options.workerCount,
		logger:      options.logger,
	}
}

// Start はワーカーを起動する
// ctx のキャンセルは実行中ジョブの中断にのみ使われ、キューの受付は Stop で閉じる
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}

	w.logger.Info("取り込みワーカーを起動",
		"worker_count", w.workerCount,
		"queue_size", cap(w.queue),
	)
}

// Stop はキューの受付を停止し、投入済みジョブの完了を待つ
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("取り込みワーカーを停止")
}

// EnqueueDocument はドキュメントを取り込みキューへ投入する
// 投入前に pending 状態の実行履歴を作成するため、キュー満杯による拒否も履歴に残る
func (w *Worker) EnqueueDocument(ctx context.Context, documentID uuid.UUID) error {
	run := &Run{
		ID:         uuid.New(),
		DocumentID: documentID,
		State:      RunStatePending,
		CreatedAt:  time.Now(),
	}
	if err := w.repo.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create ingestion run: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.markRejected(ctx, run.ID, "worker is stopped")
		return fmt.Errorf("enqueue document %s: worker is stopped", documentID)
	}

	select {
	case w.queue <- job{runID: run.ID, documentID: documentID}:
		return nil
	default:
		w.markRejected(ctx, run.ID, "queue is full")
		return fmt.Errorf("enqueue document %s: %w", documentID, ErrQueueFull)
	}
}

func (w *Worker) markRejected(ctx context.Context, runID uuid.UUID, reason string) {
	if err := w.repo.MarkRunFinished(ctx, runID, RunStateFailed, 0, reason, time.Now()); err != nil {
		w.logger.Error("実行履歴の更新に失敗", "run_id", runID, "error", err)
	}
}

func (w *Worker) run(ctx context.Context, workerID int) {
	for j := range w.queue {
		w.process(ctx, workerID, j)
	}
}

func (w *Worker) process(ctx context.Context, workerID int, j job) {
	if err := w.repo.MarkRunRunning(ctx, j.runID, time.Now()); err != nil {
		w.logger.Error("実行履歴の更新に失敗",
			"worker_id", workerID,
			"run_id", j.runID,
			"error", err,
		)
	}

	chunkCount, err := w.service.Ingest(ctx, j.documentID)
	if err != nil {
		w.logger.Error("ドキュメントの取り込みに失敗",
			"worker_id", workerID,
			"document_id", j.documentID,
			"error", err,
		)
		w.finish(ctx, j.runID, RunStateFailed, 0, err.Error())
		return
	}

	w.finish(ctx, j.runID, RunStateSucceeded, chunkCount, "")
}

func (w *Worker) finish(ctx context.Context, runID uuid.UUID, state RunState, chunkCount int, runErr string) {
	if err := w.repo.MarkRunFinished(ctx, runID, state, chunkCount, runErr, time.Now()); err != nil {
		w.logger.Error("実行履歴の更新に失敗", "run_id", runID, "error", err)
	}
}

var _ document.Ingestor = (*Worker)(nil)
