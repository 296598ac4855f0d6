package search

import "github.com/google/uuid"

// DefaultLimit は検索結果のデフォルト最大件数
const DefaultLimit = 5

// Result は検索にヒットしたチャンクを表す
type Result struct {
	DocumentID uuid.UUID `json:"documentID"`
	ChunkID    uuid.UUID `json:"chunkID"`
	Filename   string    `json:"documentFilename"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunkIndex"`
	Similarity float64   `json:"similarity"`
}

// Mode は検索の実行経路を表す
type Mode string

const (
	// ModeVector はpgvectorによるコサイン類似度検索
	ModeVector Mode = "vector"
	// ModeLexical はベクトル検索が使えない場合の部分一致検索
	ModeLexical Mode = "lexical"
)
