package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// モデルプロバイダー設定
	Provider ProviderConfig

	// 取り込み設定
	Ingestion IngestionConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ProviderConfig はEmbedding/補完プロバイダーの設定
type ProviderConfig struct {
	// Type はプロバイダー種別（openai / selfhosted / huggingface）
	Type string

	// EmbeddingDimension は全プロバイダー共通のベクトル次元
	EmbeddingDimension int

	OpenAI      OpenAIConfig
	SelfHosted  SelfHostedConfig
	HuggingFace HuggingFaceConfig
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey          string
	EmbeddingModel  string
	CompletionModel string
}

// SelfHostedConfig は自己ホスト推論サーバー設定
type SelfHostedConfig struct {
	ServerURL       string
	EmbeddingModel  string
	CompletionModel string
}

// HuggingFaceConfig はHuggingFace Inference API設定
type HuggingFaceConfig struct {
	APIKey          string
	EmbeddingModel  string
	CompletionModel string
}

// IngestionConfig はドキュメント取り込みの設定
type IngestionConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	TokenizerModel string
	WorkerCount    int
	QueueSize      int
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_SERVER", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnv("POSTGRES_DB", "doc_query"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Provider: ProviderConfig{
			Type:               getEnv("MODEL_PROVIDER", "openai"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 1536),
			OpenAI: OpenAIConfig{
				APIKey:          getEnv("OPENAI_API_KEY", ""),
				EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
				CompletionModel: getEnv("COMPLETION_MODEL", "gpt-4o"),
			},
			SelfHosted: SelfHostedConfig{
				ServerURL:       getEnv("LOCAL_MODEL_SERVER_URL", "http://localhost:11434/v1"),
				EmbeddingModel:  getEnv("LOCAL_EMBEDDING_MODEL", "nomic-embed-text"),
				CompletionModel: getEnv("LOCAL_COMPLETION_MODEL", "llama3"),
			},
			HuggingFace: HuggingFaceConfig{
				APIKey:          getEnv("HUGGINGFACE_API_KEY", ""),
				EmbeddingModel:  getEnv("HUGGINGFACE_EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
				CompletionModel: getEnv("HUGGINGFACE_COMPLETION_MODEL", "mistralai/Mistral-7B-Instruct-v0.2"),
			},
		},
		Ingestion: IngestionConfig{
			ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
			TokenizerModel: getEnv("TOKENIZER_MODEL", "gpt-4"),
			WorkerCount:    getEnvAsInt("INGESTION_WORKER_COUNT", 4),
			QueueSize:      getEnvAsInt("INGESTION_QUEUE_SIZE", 64),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得し、存在しないか不正な場合はデフォルト値を返します
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
