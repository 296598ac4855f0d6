package huggingface

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
	// DefaultAPIURL はHuggingFace Inference APIのエンドポイント
	DefaultAPIURL = "https://api-inference.huggingface.co/models"
	// DefaultEmbeddingModel はモデル未指定時のデフォルトEmbeddingモデル
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultCompletionModel はモデル未指定時のデフォルト補完モデル
	DefaultCompletionModel = "mistralai/Mistral-7B-Instruct-v0.2"
	// DefaultDimension はデフォルトのベクトル次元
	DefaultDimension = 384
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// Provider はHuggingFace Inference APIを使用した provider.Provider 実装
// モデルごとに {apiURL}/{model} へBearer認証付きでPOSTする
// API障害時はエラーを返さず縮退結果に変換する
type Provider struct {
	apiKey          string
	apiURL          string
	embeddingModel  string
	completionModel string
	dimension       int
	httpClient      *http.Client
	logger          *slog.Logger
}

type providerOptions struct {
	apiURL          string
	embeddingModel  string
	completionModel string
	dimension       int
	timeout         time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
}

// Option は Provider のオプション設定
type Option func(*providerOptions)

// WithAPIURL はInference APIのエンドポイントを上書きする（テスト用）
func WithAPIURL(url string) Option {
	return func(o *providerOptions) {
		o.apiURL = url
	}
}

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
func NewProvider(apiKey string, opts ...Option) *Provider {
	options := providerOptions{
		apiURL:          DefaultAPIURL,
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
		apiKey:          apiKey,
		apiURL:          strings.TrimRight(options.apiURL, "/"),
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

// Embed は単一テキストの Embedding を生成する
// API障害・想定外のレスポンス形式は縮退結果（ゼロベクトル）に変換する
func (p *Provider) Embed(ctx context.Context, text string) provider.EmbedResult {
	body, err := p.post(ctx, p.embeddingModel, map[string]any{"inputs": text})
	if err != nil {
		p.logger.Error("Embedding生成に失敗、ゼロベクトルに縮退",
			"model", p.embeddingModel,
			"error", err,
		)
		return provider.DegradedEmbed(p.dimension)
	}

	vector, err := parseEmbedding(body)
	if err != nil {
		p.logger.Error("Embeddingレスポンスの形式が不正、ゼロベクトルに縮退",
			"model", p.embeddingModel,
			"error", err,
		)
		return provider.DegradedEmbed(p.dimension)
	}

	return provider.EmbedResult{Vector: vector}
}

// BatchEmbed は複数テキストの Embedding を生成する
// Inference APIはバッチ入力を保証しないため1件ずつ呼び出す
func (p *Provider) BatchEmbed(ctx context.Context, texts []string) []provider.EmbedResult {
	results := make([]provider.EmbedResult, 0, len(texts))
	for _, text := range texts {
		results = append(results, p.Embed(ctx, text))
	}
	return results
}

// Complete はテキスト生成APIで補完を生成する
// API障害・想定外のレスポンス形式は固定の謝罪テキストに縮退する
// Inference APIはトークン使用量を返さないため Usage は常にゼロ
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) provider.Completion {
	payload := map[string]any{
		"inputs": provider.BuildUserPrompt(req),
		"parameters": map[string]any{
			"temperature":      req.Temperature,
			"max_new_tokens":   req.MaxTokens,
			"return_full_text": false,
		},
	}

	body, err := p.post(ctx, p.completionModel, payload)
	if err != nil {
		p.logger.Error("補完生成に失敗、固定テキストに縮退",
			"model", p.completionModel,
			"error", err,
		)
		return provider.DegradedCompletion(p.completionModel)
	}

	text, err := parseGeneratedText(body)
	if err != nil {
		p.logger.Error("補完レスポンスの形式が不正、固定テキストに縮退",
			"model", p.completionModel,
			"error", err,
		)
		return provider.DegradedCompletion(p.completionModel)
	}

	return provider.Completion{
		Text:  text,
		Model: p.completionModel,
	}
}

func (p *Provider) post(ctx context.Context, model string, reqBody any) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗: %w", err)
	}

	url := fmt.Sprintf("%s/%s", p.apiURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("リクエストの送信に失敗: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("APIがステータスコード %d を返却: %s", httpResp.StatusCode, string(body))
	}

	return body, nil
}

// parseEmbedding はモデルにより異なるレスポンス形式を単一ベクトルに正規化する
// フラットな []float と文単位の [][]float の両方を受け付ける
func parseEmbedding(body []byte) ([]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, fmt.Errorf("embeddingが空")
		}
		return nested[0], nil
	}

	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, fmt.Errorf("embeddingが空")
		}
		return flat, nil
	}

	return nil, fmt.Errorf("想定外のembedding形式: %s", truncate(body, 256))
}

// parseGeneratedText はモデルにより異なるレスポンス形式から生成テキストを取り出す
// [{"generated_text": ...}] と {"generated_text": ...} の両方を受け付ける
func parseGeneratedText(body []byte) (string, error) {
	var listForm []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &listForm); err == nil {
		if len(listForm) > 0 && listForm[0].GeneratedText != "" {
			return listForm[0].GeneratedText, nil
		}
		return "", fmt.Errorf("generated_textが空")
	}

	var objForm struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &objForm); err == nil && objForm.GeneratedText != "" {
		return objForm.GeneratedText, nil
	}

	return "", fmt.Errorf("想定外の補完レスポンス形式: %s", truncate(body, 256))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ provider.Provider = (*Provider)(nil)
