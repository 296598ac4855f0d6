package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// SearchAction はチャンク検索コマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	query := cmd.String("query")
	limit := cmd.Int("limit")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	resp, err := appCtx.Container.SearchService.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	fmt.Printf("検索モード: %s\n", resp.Mode)
	if len(resp.Results) == 0 {
		fmt.Println("一致するチャンクはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Similarity", "Filename", "Chunk", "Content")
	for _, result := range resp.Results {
		table.Append(
			fmt.Sprintf("%.4f", result.Similarity),
			result.Filename,
			fmt.Sprintf("%d", result.ChunkIndex+1),
			truncateString(result.Content, 80),
		)
	}
	table.Render()

	return nil
}
