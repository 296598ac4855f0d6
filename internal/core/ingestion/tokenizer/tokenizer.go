package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// FallbackEncoding はモデル名が未知の場合に使用するエンコーディング
// gpt-4 系および text-embedding-3-* と互換
const FallbackEncoding = "cl100k_base"

// Counter はモデル語彙に基づいてトークン数をカウントする
type Counter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// New はモデル名に対応する Counter を作成する
// モデル名が未知の場合は cl100k_base にフォールバックし、失敗にしない
func New(modelName string) (*Counter, error) {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(FallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
		}
	}

	return &Counter{
		encoding: encoding,
		model:    modelName,
	}, nil
}

// Model は構築時に指定されたモデル名を返す
func (c *Counter) Model() string {
	return c.model
}

// Count はテキストのトークン数をカウントする
func (c *Counter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// CountAll は複数テキストのトークン数を入力と同じ順序でカウントする
func (c *Counter) CountAll(texts []string) []int {
	counts := make([]int, len(texts))
	for i, text := range texts {
		counts[i] = c.Count(text)
	}
	return counts
}

// Encode はテキストをトークンID列に変換する
func (c *Counter) Encode(text string) []int {
	return c.encoding.Encode(text, nil, nil)
}

// Decode はトークンID列をテキストに復元する
func (c *Counter) Decode(ids []int) string {
	return c.encoding.Decode(ids)
}
