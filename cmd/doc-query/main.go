package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-query/cmd/doc-query/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
	idFlag := &cli.StringFlag{
		Name:     "id",
		Usage:    "ドキュメントID",
		Required: true,
	}

	app := &cli.Command{
		Name:  "doc-query",
		Usage: "ドキュメント取り込みと検索・質問応答のためのRAGシステム",
		Commands: []*cli.Command{
			{
				Name:  "db",
				Usage: "データベース管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "スキーマを適用してデータベースを初期化",
						Flags:  []cli.Flag{envFlag},
						Action: commands.DBInitAction,
					},
				},
			},
			{
				Name:  "document",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "upload",
						Usage: "ファイルをアップロードして取り込む",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "file",
								Usage:    "アップロードするファイルパス",
								Required: true,
							},
						},
						Action: commands.DocumentUploadAction,
					},
					{
						Name:  "list",
						Usage: "ドキュメント一覧を表示",
						Flags: []cli.Flag{
							envFlag,
							&cli.IntFlag{
								Name:  "skip",
								Usage: "先頭から読み飛ばす件数",
							},
							&cli.IntFlag{
								Name:  "limit",
								Usage: "最大件数",
								Value: 100,
							},
						},
						Action: commands.DocumentListAction,
					},
					{
						Name:   "show",
						Usage:  "ドキュメント詳細を表示",
						Flags:  []cli.Flag{envFlag, idFlag},
						Action: commands.DocumentShowAction,
					},
					{
						Name:   "chunks",
						Usage:  "ドキュメントのチャンク一覧を表示",
						Flags:  []cli.Flag{envFlag, idFlag},
						Action: commands.DocumentChunksAction,
					},
					{
						Name:   "runs",
						Usage:  "ドキュメントの取り込み実行履歴を表示",
						Flags:  []cli.Flag{envFlag, idFlag},
						Action: commands.DocumentRunsAction,
					},
					{
						Name:   "delete",
						Usage:  "ドキュメントを削除",
						Flags:  []cli.Flag{envFlag, idFlag},
						Action: commands.DocumentDeleteAction,
					},
				},
			},
			{
				Name:  "search",
				Usage: "チャンクを検索",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "query",
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "最大件数",
						Value: 5,
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "ask",
				Usage: "ドキュメントに基づいて質問に回答",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "question",
						Usage:    "質問文",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "コンテキストに使うチャンク数",
						Value: 5,
					},
				},
				Action: commands.AskAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
