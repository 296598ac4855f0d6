package search

import (
	"context"
)

// Repository は検索関連の全データアクセスを統合するインターフェース
type Repository interface {
	// VectorCapability はpgvector拡張が利用可能かを調べる
	VectorCapability(ctx context.Context) (bool, error)

	// SearchSimilarChunks はコサイン類似度の降順でチャンクを検索する
	SearchSimilarChunks(ctx context.Context, queryVector []float32, limit int) ([]*Result, error)

	// ListAllChunks は部分一致検索用に全チャンクを取得する
	// Similarity は未設定で返る
	ListAllChunks(ctx context.Context) ([]*Result, error)
}
