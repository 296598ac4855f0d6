package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// DocumentUploadAction はファイルをアップロードして取り込むコマンドのアクション
func DocumentUploadAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	filePath := cmd.String("file")

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// アップロード完了前にワーカーを起動しておく
	// Close 時の Stop が取り込み完了まで待つ
	appCtx.Container.StartWorker(ctx)

	doc, err := appCtx.Container.DocumentService.CreateDocument(ctx, filepath.Base(filePath), content)
	if err != nil {
		return fmt.Errorf("ドキュメントの作成に失敗: %w", err)
	}

	fmt.Printf("\n✓ ドキュメントをアップロードしました\n")
	fmt.Printf("  ID:           %s\n", doc.ID)
	fmt.Printf("  Filename:     %s\n", doc.Filename)
	fmt.Printf("  Content-Type: %s\n", doc.ContentType)

	return nil
}

// DocumentListAction はドキュメント一覧を表示するコマンドのアクション
func DocumentListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := appCtx.Container.DocumentService.ListDocuments(ctx, cmd.Int("skip"), cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("ドキュメント一覧の取得に失敗: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("ドキュメントはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Filename", "Content-Type", "Status", "Chunks", "Created At")
	for _, doc := range docs {
		table.Append(
			doc.ID.String(),
			truncateString(doc.Filename, 40),
			doc.ContentType,
			doc.Status(),
			fmt.Sprintf("%d", len(doc.ChunkIDs)),
			doc.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()

	return nil
}

// DocumentShowAction はドキュメント詳細を表示するコマンドのアクション
func DocumentShowAction(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("不正なドキュメントID: %w", err)
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	doc, err := appCtx.Container.DocumentService.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}

	fmt.Printf("\n=== ドキュメント詳細 ===\n\n")
	fmt.Printf("ID:           %s\n", doc.ID)
	fmt.Printf("Filename:     %s\n", doc.Filename)
	fmt.Printf("Content-Type: %s\n", doc.ContentType)
	fmt.Printf("Status:       %s\n", doc.Status())
	fmt.Printf("Chunks:       %d\n", len(doc.ChunkIDs))
	fmt.Printf("Created At:   %s\n", doc.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated At:   %s\n", doc.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("\n本文プレビュー:\n%s\n", truncateString(doc.Content, 500))

	return nil
}

// DocumentChunksAction はドキュメントのチャンク一覧を表示するコマンドのアクション
func DocumentChunksAction(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("不正なドキュメントID: %w", err)
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	chunks, err := appCtx.Container.DocumentService.GetDocumentChunks(ctx, id)
	if err != nil {
		return fmt.Errorf("チャンクの取得に失敗: %w", err)
	}

	if len(chunks) == 0 {
		fmt.Println("チャンクはまだ作成されていません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Index", "Chunk ID", "Tokens", "Degraded", "Content")
	for _, chunk := range chunks {
		table.Append(
			fmt.Sprintf("%d", chunk.ChunkIndex),
			chunk.ID.String(),
			fmt.Sprintf("%d", chunk.TokenCount),
			fmt.Sprintf("%t", chunk.Degraded),
			truncateString(chunk.Content, 60),
		)
	}
	table.Render()

	return nil
}

// DocumentRunsAction はドキュメントの取り込み実行履歴を表示するコマンドのアクション
func DocumentRunsAction(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("不正なドキュメントID: %w", err)
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	runs, err := appCtx.Container.IngestionService.ListRuns(ctx, id)
	if err != nil {
		return fmt.Errorf("実行履歴の取得に失敗: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("実行履歴はありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run ID", "State", "Chunks", "Error", "Created At", "Finished At")
	for _, run := range runs {
		finishedAt := "-"
		if run.FinishedAt != nil {
			finishedAt = run.FinishedAt.Format("2006-01-02 15:04:05")
		}
		table.Append(
			run.ID.String(),
			string(run.State),
			fmt.Sprintf("%d", run.ChunkCount),
			truncateString(run.Error, 40),
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			finishedAt,
		)
	}
	table.Render()

	return nil
}

// DocumentDeleteAction はドキュメントを削除するコマンドのアクション
func DocumentDeleteAction(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("不正なドキュメントID: %w", err)
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.DocumentService.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}

	fmt.Printf("✓ ドキュメントを削除しました: %s\n", id)
	return nil
}
