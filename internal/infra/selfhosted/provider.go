package selfhosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jinford/doc-query/internal/core/provider"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトEmbeddingモデル
	DefaultEmbeddingModel = "nomic-embed-text"
	// DefaultCompletionModel はモデル未指定時のデフォルト補完モデル
	DefaultCompletionModel = "llama3"
	// DefaultDimension はデフォルトのベクトル次元
	DefaultDimension = 768
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 120 * time.Second
)

// Provider はOpenAI互換APIを公開する自己ホスト推論サーバー向けの provider.Provider 実装
// 認証なしで {baseURL}/embeddings と {baseURL}/chat/completions を呼び出す
// API障害時はエラーを返さず縮退結果に変換する
type Provider struct {
	baseURL         string
	embeddingModel  string
	completionModel string
	dimension       int
	httpClient      *http.Client
	logger          *slog.Logger
}

type providerOptions struct {
	embeddingModel  string
	completionModel string
	dimension       int
	timeout         time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
}

// Option は Provider のオプション設定
type Option func(*providerOptions)

// WithEmbeddingModel はEmbeddingモデル名を上書きする
func WithEmbeddingModel(model string) Option {
	return func(o *providerOptions) {
		o.embeddingModel = model
	}
}

// WithCompletionModel は補完モデル名を上書きする
func WithCompletionModel(model string) Option {
	return func(o *providerOptions) {
		o.completionModel = model
	}
}

// WithDimension はベクトル次元を上書きする
func WithDimension(dimension int) Option {
	return func(o *providerOptions) {
		o.dimension = dimension
	}
}

// WithTimeout はAPIコールのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) Option {
	return func(o *providerOptions) {
		o.timeout = timeout
	}
}

// WithHTTPClient はHTTPクライアントを差し替える（テスト用）
func WithHTTPClient(client *http.Client) Option {
	return func(o *providerOptions) {
		o.httpClient = client
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(o *providerOptions) {
		o.logger = logger
	}
}

// NewProvider は新しい Provider を作成する
func NewProvider(baseURL string, opts ...Option) *Provider {
	options := providerOptions{
		embeddingModel:  DefaultEmbeddingModel,
		completionModel: DefaultCompletionModel,
		dimension:       DefaultDimension,
		timeout:         DefaultTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	return &Provider{
		baseURL:         strings.TrimRight(baseURL, "/"),
		embeddingModel:  options.embeddingModel,
		completionModel: options.completionModel,
		dimension:       options.dimension,
		httpClient:      httpClient,
		logger:          options.logger,
	}
}

// ModelName はEmbeddingモデル名を返す
func (p *Provider) ModelName() string {
	return p.embeddingModel
}

// Dimension はベクトル次元数を返す
func (p *Provider) Dimension() int {
	return p.dimension
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed は単一テキストの Embedding を生成する
func (p *Provider) Embed(ctx context.Context, text string) provider.EmbedResult {
	results := p.BatchEmbed(ctx, []string{text})
	return results[0]
}

// BatchEmbed は複数テキストの Embedding を一度のAPI呼び出しで生成する
// API障害・件数不足は縮退結果（ゼロベクトル）で埋める
func (p *Provider) BatchEmbed(ctx context.Context, texts []string) []provider.EmbedResult {
	if len(texts) == 0 {
		return []provider.EmbedResult{}
	}

	var resp embeddingResponse
	err := p.post(ctx, "/embeddings", embeddingRequest{
		Model: p.embeddingModel,
		Input: texts,
	}, &resp)
	if err != nil {
		p.logger.Error("Embedding生成に失敗、ゼロベクトルに縮退",
			"base_url", p.baseURL,
			"model", p.embeddingModel,
			"count", len(texts),
			"error", err,
		)
		return provider.DegradedBatch(p.dimension, len(texts))
	}

	results := make([]provider.EmbedResult, len(texts))
	for i := range results {
		results[i] = provider.DegradedEmbed(p.dimension)
	}
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(results) || len(data.Embedding) == 0 {
			continue
		}
		results[data.Index] = provider.EmbedResult{Vector: data.Embedding}
	}

	return results
}

// Complete はチャット補完APIでテキストを生成する
// API障害・空レスポンスは固定の謝罪テキストに縮退する
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) provider.Completion {
	var resp chatResponse
	err := p.post(ctx, "/chat/completions", chatRequest{
		Model: p.completionModel,
		Messages: []chatMessage{
			{Role: "system", Content: provider.SystemPrompt},
			{Role: "user", Content: provider.BuildUserPrompt(req)},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &resp)
	if err != nil {
		p.logger.Error("補完生成に失敗、固定テキストに縮退",
			"base_url", p.baseURL,
			"model", p.completionModel,
			"error", err,
		)
		return provider.DegradedCompletion(p.completionModel)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		p.logger.Error("補完レスポンスが空、固定テキストに縮退",
			"base_url", p.baseURL,
			"model", p.completionModel,
		)
		return provider.DegradedCompletion(p.completionModel)
	}

	model := resp.Model
	if model == "" {
		model = p.completionModel
	}

	return provider.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: provider.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

func (p *Provider) post(ctx context.Context, path string, reqBody any, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("リクエストの送信に失敗: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return fmt.Errorf("APIがステータスコード %d を返却: %s", httpResp.StatusCode, string(body))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗: %w", err)
	}

	return nil
}

var _ provider.Provider = (*Provider)(nil)
