package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Migrate はスキーマを適用する
// pgvector拡張の作成を試み、使えない環境ではEmbedding列をreal[]に置き換えて
// チャンク本文と部分一致検索だけでも動作する状態を維持する
func Migrate(ctx context.Context, db DBTX, embeddingDimension int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if embeddingDimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", embeddingDimension)
	}

	schema := schemaSQL
	if _, err := db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		logger.Warn("pgvector拡張を作成できない、Embedding列をreal[]で作成",
			"error", err,
		)
		schema = strings.ReplaceAll(schema, "vector({{EMBEDDING_DIMENSION}})", "real[]")
	} else {
		logger.Info("pgvector拡張を確認", "embedding_dimension", embeddingDimension)
	}
	schema = strings.ReplaceAll(schema, "{{EMBEDDING_DIMENSION}}", strconv.Itoa(embeddingDimension))

	for _, stmt := range splitStatements(schema) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	logger.Info("スキーマの適用が完了")
	return nil
}

// splitStatements はスキーマSQLをセミコロン区切りの文に分割する
// スキーマ定義にリテラル中のセミコロンは含まれない前提
func splitStatements(schema string) []string {
	var statements []string
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
