package container

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	coreask "github.com/jinford/doc-query/internal/core/ask"
	coredocument "github.com/jinford/doc-query/internal/core/document"
	coreingestion "github.com/jinford/doc-query/internal/core/ingestion"
	"github.com/jinford/doc-query/internal/core/ingestion/splitter"
	"github.com/jinford/doc-query/internal/core/ingestion/tokenizer"
	coreprovider "github.com/jinford/doc-query/internal/core/provider"
	coresearch "github.com/jinford/doc-query/internal/core/search"
	"github.com/jinford/doc-query/internal/infra/huggingface"
	"github.com/jinford/doc-query/internal/infra/openai"
	"github.com/jinford/doc-query/internal/infra/postgres"
	"github.com/jinford/doc-query/internal/infra/selfhosted"
	"github.com/jinford/doc-query/internal/platform/config"
	"github.com/jinford/doc-query/pkg/db"
)

// ServiceContainer はアプリケーション全体の依存関係を保持する。
// CLIコマンドは本コンテナ経由で各サービスへアクセスする。
type ServiceContainer struct {
	DocumentService  *coredocument.Service
	IngestionService *coreingestion.Service
	SearchService    *coresearch.Service
	AskService       *coreask.Service
	Worker           *coreingestion.Worker
	Provider         coreprovider.Provider

	cfg      *config.Config
	logger   *slog.Logger
	database *db.DB
}

type containerOptions struct {
	logger   *slog.Logger
	provider coreprovider.Provider
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerProvider はモデルプロバイダーを差し替える（テスト用）
func WithContainerProvider(p coreprovider.Provider) ContainerOption {
	return func(opts *containerOptions) {
		opts.provider = p
	}
}

// New は設定から全サービスを組み立てた ServiceContainer を作成する
func New(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger

	database, err := db.New(ctx, db.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	modelProvider := options.provider
	if modelProvider == nil {
		modelProvider = BuildProvider(cfg.Provider, logger)
	}

	counter, err := tokenizer.New(cfg.Ingestion.TokenizerModel)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	docRepo := postgres.NewDocumentRepository(database.Pool)
	ingRepo := postgres.NewIngestionRepository(database.Pool)
	searchRepo := postgres.NewSearchRepository(database.Pool)

	ingestionService := coreingestion.NewService(
		ingRepo,
		docRepo,
		modelProvider,
		splitter.New(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
		counter,
		logger,
	)
	worker := coreingestion.NewWorker(ingestionService, ingRepo,
		coreingestion.WithWorkerCount(cfg.Ingestion.WorkerCount),
		coreingestion.WithQueueSize(cfg.Ingestion.QueueSize),
		coreingestion.WithWorkerLogger(logger),
	)
	searchService := coresearch.NewService(searchRepo, modelProvider, logger)

	return &ServiceContainer{
		DocumentService:  coredocument.NewService(docRepo, worker, logger),
		IngestionService: ingestionService,
		SearchService:    searchService,
		AskService:       coreask.NewService(searchService, modelProvider, logger),
		Worker:           worker,
		Provider:         modelProvider,
		cfg:              cfg,
		logger:           logger,
		database:         database,
	}, nil
}

// BuildProvider は設定に応じたモデルプロバイダーを組み立てる
// 未知の種別は警告を出してOpenAIにフォールバックする
func BuildProvider(cfg config.ProviderConfig, logger *slog.Logger) coreprovider.Provider {
	switch coreprovider.Type(strings.ToLower(cfg.Type)) {
	case coreprovider.TypeOpenAI:
		return openai.NewProvider(cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithCompletionModel(cfg.OpenAI.CompletionModel),
			openai.WithDimension(cfg.EmbeddingDimension),
			openai.WithLogger(logger),
		)
	case coreprovider.TypeSelfHosted:
		return selfhosted.NewProvider(cfg.SelfHosted.ServerURL,
			selfhosted.WithEmbeddingModel(cfg.SelfHosted.EmbeddingModel),
			selfhosted.WithCompletionModel(cfg.SelfHosted.CompletionModel),
			selfhosted.WithDimension(cfg.EmbeddingDimension),
			selfhosted.WithLogger(logger),
		)
	case coreprovider.TypeHuggingFace:
		return huggingface.NewProvider(cfg.HuggingFace.APIKey,
			huggingface.WithEmbeddingModel(cfg.HuggingFace.EmbeddingModel),
			huggingface.WithCompletionModel(cfg.HuggingFace.CompletionModel),
			huggingface.WithDimension(cfg.EmbeddingDimension),
			huggingface.WithLogger(logger),
		)
	default:
		logger.Warn("未知のプロバイダー種別、openaiにフォールバック", "type", cfg.Type)
		return openai.NewProvider(cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithCompletionModel(cfg.OpenAI.CompletionModel),
			openai.WithDimension(cfg.EmbeddingDimension),
			openai.WithLogger(logger),
		)
	}
}

// StartWorker は取り込みワーカーを起動する
func (c *ServiceContainer) StartWorker(ctx context.Context) {
	c.Worker.Start(ctx)
}

// Migrate はデータベーススキーマを適用する
func (c *ServiceContainer) Migrate(ctx context.Context) error {
	return postgres.Migrate(ctx, c.database.Pool, c.cfg.Provider.EmbeddingDimension, c.logger)
}

// Close はワーカーを停止し、データベース接続を閉じる
func (c *ServiceContainer) Close() {
	c.Worker.Stop()
	c.database.Close()
}
