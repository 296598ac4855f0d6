package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-query/internal/core/document"
	"github.com/jinford/doc-query/internal/core/ingestion"
	"github.com/jinford/doc-query/pkg/db"
)

const testDimension = 3

// startPostgres はpgvector入りのPostgreSQLコンテナを起動し、スキーマ適用済みの接続を返す
func startPostgres(t *testing.T) *db.DB {
	t.Helper()

	if os.Getenv("DOCQUERY_TEST_DOCKER") == "" {
		t.Skip("DOCQUERY_TEST_DOCKER is not set")
	}

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, pool.Client.Ping())

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=docquery",
			"POSTGRES_PASSWORD=docquery",
			"POSTGRES_DB=docquery_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})
	_ = resource.Expire(300)

	connString := fmt.Sprintf(
		"host=localhost port=%s user=docquery password=docquery dbname=docquery_test sslmode=disable",
		resource.GetPort("5432/tcp"),
	)

	var conn *db.DB
	pool.MaxWait = 60 * time.Second
	require.NoError(t, pool.Retry(func() error {
		var retryErr error
		conn, retryErr = db.NewFromConnString(context.Background(), connString)
		return retryErr
	}))
	t.Cleanup(conn.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Migrate(context.Background(), conn.Pool, testDimension, logger))

	return conn
}

func insertChunk(t *testing.T, repo *IngestionRepository, docID uuid.UUID, index int, content string, embedding []float32) *document.Chunk {
	t.Helper()
	chunk := &document.Chunk{
		ID:         uuid.New(),
		DocumentID: docID,
		Content:    content,
		ChunkIndex: index,
		TokenCount: index + 1,
		Embedding:  embedding,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, repo.CreateChunk(context.Background(), chunk))
	return chunk
}

func TestPostgresRepositories(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	docRepo := NewDocumentRepository(conn.Pool)
	ingRepo := NewIngestionRepository(conn.Pool)
	searchRepo := NewSearchRepository(conn.Pool)

	capable, err := searchRepo.VectorCapability(ctx)
	require.NoError(t, err)
	require.True(t, capable)

	doc := &document.Document{
		ID:          uuid.New(),
		Filename:    "guide.md",
		ContentType: "text/markdown",
		Content:     "full text",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, docRepo.CreateDocument(ctx, doc))

	t.Run("ドキュメントの取得と一覧", func(t *testing.T) {
		got, err := docRepo.GetDocumentByID(ctx, doc.ID)
		require.NoError(t, err)
		loaded := got.MustGet()
		assert.Equal(t, doc.Filename, loaded.Filename)
		assert.Equal(t, document.StatusProcessing, loaded.Status())

		missing, err := docRepo.GetDocumentByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, missing.IsAbsent())

		docs, err := docRepo.ListDocuments(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, docs, 1)
	})

	chunk0 := insertChunk(t, ingRepo, doc.ID, 0, "apples are red", []float32{1, 0, 0})
	chunk1 := insertChunk(t, ingRepo, doc.ID, 1, "bananas are yellow", []float32{0, 1, 0})
	require.NoError(t, ingRepo.UpdateDocumentChunkIDs(ctx, doc.ID, []uuid.UUID{chunk0.ID, chunk1.ID}))

	t.Run("チャンクIDの反映で処理済みになる", func(t *testing.T) {
		got, err := docRepo.GetDocumentByID(ctx, doc.ID)
		require.NoError(t, err)
		loaded := got.MustGet()
		assert.Equal(t, []uuid.UUID{chunk0.ID, chunk1.ID}, loaded.ChunkIDs)
		assert.Equal(t, document.StatusProcessed, loaded.Status())

		chunks, err := docRepo.GetChunksByDocumentID(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, chunk0.ID, chunks[0].ID)
		assert.Equal(t, 0, chunks[0].ChunkIndex)
	})

	t.Run("ベクトル検索は類似度の降順", func(t *testing.T) {
		results, err := searchRepo.SearchSimilarChunks(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, chunk0.ID, results[0].ChunkID)
		assert.Equal(t, "guide.md", results[0].Filename)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
	})

	t.Run("全チャンク取得", func(t *testing.T) {
		results, err := searchRepo.ListAllChunks(ctx)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("取り込み実行履歴の遷移", func(t *testing.T) {
		run := &ingestion.Run{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			State:      ingestion.RunStatePending,
			CreatedAt:  time.Now(),
		}
		require.NoError(t, ingRepo.CreateRun(ctx, run))
		require.NoError(t, ingRepo.MarkRunRunning(ctx, run.ID, time.Now()))
		require.NoError(t, ingRepo.MarkRunFinished(ctx, run.ID, ingestion.RunStateSucceeded, 2, "", time.Now()))

		failedRun := &ingestion.Run{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			State:      ingestion.RunStatePending,
			CreatedAt:  time.Now(),
		}
		require.NoError(t, ingRepo.CreateRun(ctx, failedRun))
		require.NoError(t, ingRepo.MarkRunFinished(ctx, failedRun.ID, ingestion.RunStateFailed, 0, "queue is full", time.Now()))

		runs, err := ingRepo.ListRunsByDocumentID(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		byID := make(map[uuid.UUID]*ingestion.Run, len(runs))
		for _, r := range runs {
			byID[r.ID] = r
		}

		succeeded := byID[run.ID]
		require.NotNil(t, succeeded)
		assert.Equal(t, ingestion.RunStateSucceeded, succeeded.State)
		assert.Equal(t, 2, succeeded.ChunkCount)
		// エラーなしの実行は NULL で保存され、空文字列として読み出される
		assert.Empty(t, succeeded.Error)
		require.NotNil(t, succeeded.StartedAt)
		require.NotNil(t, succeeded.FinishedAt)

		failed := byID[failedRun.ID]
		require.NotNil(t, failed)
		assert.Equal(t, ingestion.RunStateFailed, failed.State)
		assert.Equal(t, "queue is full", failed.Error)
	})

	t.Run("再取り込み用のチャンク削除", func(t *testing.T) {
		require.NoError(t, ingRepo.DeleteChunksByDocumentID(ctx, doc.ID))
		chunks, err := docRepo.GetChunksByDocumentID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("ドキュメント削除は履歴ごと消える", func(t *testing.T) {
		deleted, err := docRepo.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = docRepo.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		runs, err := ingRepo.ListRunsByDocumentID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}
