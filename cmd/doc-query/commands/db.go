package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// DBInitAction はデータベーススキーマを適用するコマンドのアクション
func DBInitAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Migrate(ctx); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}

	fmt.Println("✓ データベースを初期化しました")
	return nil
}
