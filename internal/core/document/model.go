package document

import (
	"time"

	"github.com/google/uuid"
)

// ドキュメントの処理状態
// 状態はカラムとして保持せず、チャンクの有無から導出する
const (
	StatusProcessing = "Processing"
	StatusProcessed  = "Processed"
)

// Document は取り込まれたドキュメントを表す
type Document struct {
	ID          uuid.UUID   `json:"id"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"contentType"`
	Content     string      `json:"content"`
	ChunkIDs    []uuid.UUID `json:"chunkIDs"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Status はドキュメントの処理状態を返す
// チャンクが1件以上紐づいていれば処理済みとみなす
func (d *Document) Status() string {
	if len(d.ChunkIDs) > 0 {
		return StatusProcessed
	}
	return StatusProcessing
}

// Chunk はドキュメントの分割片とそのEmbeddingを表す
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"documentID"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunkIndex"`
	TokenCount int       `json:"tokenCount"`
	Embedding  []float32 `json:"embedding"`
	Degraded   bool      `json:"degraded"`
	CreatedAt  time.Time `json:"createdAt"`
}
