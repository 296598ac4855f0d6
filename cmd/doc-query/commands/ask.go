package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := cmd.String("question")
	topK := cmd.Int("top-k")

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	answer, err := appCtx.Container.AskService.Ask(ctx, question, topK)
	if err != nil {
		return fmt.Errorf("回答の生成に失敗: %w", err)
	}

	fmt.Printf("\nQ: %s\n\n", answer.Question)
	fmt.Printf("%s\n", answer.Text)

	if len(answer.Sources) > 0 {
		fmt.Printf("\n参照元:\n")
		for _, source := range answer.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}

	if answer.Model != "" {
		fmt.Printf("\nモデル: %s", answer.Model)
		if answer.Usage.TotalTokens > 0 {
			fmt.Printf(" (total tokens: %d)", answer.Usage.TotalTokens)
		}
		fmt.Println()
	}
	if answer.Degraded {
		fmt.Println("注意: モデル呼び出しに失敗したため、回答は縮退しています")
	}

	return nil
}
