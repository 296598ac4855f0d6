// Package provider は Embedding 生成とテキスト補完の能力インターフェースを定義する。
// 実装は internal/infra 配下の3バリアント（openai / selfhosted / huggingface）で、
// プロセス起動時の設定により一度だけ選択される。
package provider

import (
	"context"
	"fmt"
)

// Type はプロバイダの種別を表す閉じた集合
type Type string

const (
	// TypeOpenAI は商用リモートAPI（OpenAI）
	TypeOpenAI Type = "openai"
	// TypeSelfHosted はセルフホストされたOpenAI互換サーバ
	TypeSelfHosted Type = "selfhosted"
	// TypeHuggingFace はHuggingFace Inference API
	TypeHuggingFace Type = "huggingface"
)

// DegradedCompletionText は補完失敗時に返す固定の謝罪テキスト
const DegradedCompletionText = "Sorry, I couldn't process your request due to a technical issue."

// TokenUsage は補完呼び出しのトークン使用量
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// EmbedResult は Embedding 生成の結果を表す
// Degraded が true の場合、Vector は外部依存の障害により生成された
// ゼロベクトル（次元は維持される）であり、エラーとしては扱わない
type EmbedResult struct {
	Vector   []float32
	Degraded bool
}

// CompletionRequest は補完リクエストを表す
// Context が空でない場合、プロンプトの前にコンテキストブロックを付加する
type CompletionRequest struct {
	Prompt      string
	Context     string
	Temperature float64
	MaxTokens   int
}

// Completion は補完の結果を表す
type Completion struct {
	Text     string
	Model    string
	Usage    TokenUsage
	Degraded bool
}

// Provider は Embedding 生成とテキスト補完の能力を提供する
// すべてのメソッドは fail-open: 外部依存の障害時もエラーを返さず、
// Degraded フラグの立った結果に縮退する
type Provider interface {
	// Embed は単一テキストの Embedding を生成する
	Embed(ctx context.Context, text string) EmbedResult

	// BatchEmbed は複数テキストの Embedding を入力と同じ順序・同じ件数で生成する
	BatchEmbed(ctx context.Context, texts []string) []EmbedResult

	// Complete はプロンプト（と任意のコンテキスト）から補完テキストを生成する
	Complete(ctx context.Context, req CompletionRequest) Completion

	// ModelName は Embedding モデル名を返す
	ModelName() string

	// Dimension は Embedding ベクトルの次元数を返す
	Dimension() int
}

// ZeroVector は指定次元のゼロベクトルを返す
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}

// DegradedEmbed は縮退した EmbedResult を返す
func DegradedEmbed(dimension int) EmbedResult {
	return EmbedResult{Vector: ZeroVector(dimension), Degraded: true}
}

// DegradedBatch は n 件分の縮退した EmbedResult を返す
func DegradedBatch(dimension, n int) []EmbedResult {
	results := make([]EmbedResult, n)
	for i := range results {
		results[i] = DegradedEmbed(dimension)
	}
	return results
}

// DegradedCompletion は縮退した Completion を返す
func DegradedCompletion(model string) Completion {
	return Completion{
		Text:     DegradedCompletionText,
		Model:    model,
		Degraded: true,
	}
}

// BuildUserPrompt はコンテキスト有無に応じてユーザープロンプトを組み立てる
func BuildUserPrompt(req CompletionRequest) string {
	if req.Context == "" {
		return req.Prompt
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", req.Context, req.Prompt)
}

// SystemPrompt は全バリアント共通のシステムプロンプト
const SystemPrompt = "You are a helpful, accurate assistant."
