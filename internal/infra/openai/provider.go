package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/doc-query/internal/core/provider"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトEmbeddingモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultCompletionModel はモデル未指定時のデフォルト補完モデル
	DefaultCompletionModel = "gpt-4o"
	// DefaultDimension はOpenAI推奨のデフォルト次元
	DefaultDimension = 1536
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
	// MaxBatchSize はEmbedding APIの最大バッチサイズ
	MaxBatchSize = 2048
)

// Provider は OpenAI API を使用した provider.Provider 実装
// API障害時はエラーを返さず縮退結果に変換する
type Provider struct {
	client          openai.Client
	embeddingModel  string
	completionModel string
	dimension       int
	timeout         time.Duration
	logger          *slog.Logger
}

type providerOptions struct {
	embeddingModel  string
	completionModel string
	dimension       int
	timeout         time.Duration
	baseURL         string
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

// WithBaseURL はAPIのベースURLを上書きする（テスト用）
func WithBaseURL(url string) Option {
	return func(o *providerOptions) {
		o.baseURL = url
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

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if options.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(options.baseURL))
	}

	return &Provider{
		client:          openai.NewClient(clientOpts...),
		embeddingModel:  options.embeddingModel,
		completionModel: options.completionModel,
		dimension:       options.dimension,
		timeout:         options.timeout,
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
func (p *Provider) Embed(ctx context.Context, text string) provider.EmbedResult {
	results := p.BatchEmbed(ctx, []string{text})
	return results[0]
}

// BatchEmbed は複数テキストの Embedding を一度のAPI呼び出しで生成する
// API障害・件数不一致は縮退結果（ゼロベクトル）で埋める
func (p *Provider) BatchEmbed(ctx context.Context, texts []string) []provider.EmbedResult {
	if len(texts) == 0 {
		return []provider.EmbedResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.embeddingModel),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}
	if p.dimension > 0 {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		p.logger.Error("Embedding生成に失敗、ゼロベクトルに縮退",
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
		idx := int(data.Index)
		if idx < 0 || idx >= len(results) || len(data.Embedding) == 0 {
			continue
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		results[idx] = provider.EmbedResult{Vector: vector}
	}

	return results
}

// Complete はチャット補完APIでテキストを生成する
// API障害・空レスポンスは固定の謝罪テキストに縮退する
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) provider.Completion {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.completionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(provider.SystemPrompt),
			openai.UserMessage(provider.BuildUserPrompt(req)),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		p.logger.Error("補完生成に失敗、固定テキストに縮退",
			"model", p.completionModel,
			"error", err,
		)
		return provider.DegradedCompletion(p.completionModel)
	}

	if len(completion.Choices) == 0 {
		p.logger.Error("補完レスポンスにchoicesがありません", "model", p.completionModel)
		return provider.DegradedCompletion(p.completionModel)
	}

	return provider.Completion{
		Text:  completion.Choices[0].Message.Content,
		Model: string(completion.Model),
		Usage: provider.TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
}

// インターフェース実装の確認
var _ provider.Provider = (*Provider)(nil)
