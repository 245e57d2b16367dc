package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Elasticsearch configuration
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`

	// LLM configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Reranker configuration
	Reranker RerankerConfig `mapstructure:"reranker"`

	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Air quality lookup configuration
	AirQuality AirQualityConfig `mapstructure:"airquality"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// ElasticsearchConfig holds Elasticsearch connection and index configuration
type ElasticsearchConfig struct {
	URL             string `mapstructure:"url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	CertFingerprint string `mapstructure:"cert_fingerprint"`
	Index           string `mapstructure:"index"`
}

// LLMConfig holds LLM configuration
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // watsonx, openai
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	ProjectID   string  `mapstructure:"project_id"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopK        int     `mapstructure:"top_k"`
	TopP        float32 `mapstructure:"top_p"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // watsonx, openai
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	ProjectID  string `mapstructure:"project_id"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// RerankerConfig holds cross-encoder reranker configuration
type RerankerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	TopK    int    `mapstructure:"top_k"`
}

// CrawlerConfig holds crawler configuration
type CrawlerConfig struct {
	SitemapURL  string `mapstructure:"sitemap_url"`
	OutputDir   string `mapstructure:"output_dir"`
	Parallelism int    `mapstructure:"parallelism"`
	MinWords    int    `mapstructure:"min_words"`
	UserAgent   string `mapstructure:"user_agent"`
}

// AirQualityConfig holds Open-Meteo and history sink configuration
type AirQualityConfig struct {
	GeocodingURL  string `mapstructure:"geocoding_url"`
	AirQualityURL string `mapstructure:"air_quality_url"`
	HistoryPath   string `mapstructure:"history_path"` // DuckDB file, empty disables recording
}

// CacheConfig holds the local badger cache configuration
type CacheConfig struct {
	Path       string `mapstructure:"path"` // empty disables caching
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Elasticsearch defaults
	viper.SetDefault("elasticsearch.url", "https://localhost:9200")
	viper.SetDefault("elasticsearch.index", "valley_air_documents")

	// LLM defaults
	viper.SetDefault("llm.provider", "watsonx")
	viper.SetDefault("llm.model", "ibm/granite-3-3-8b-instruct")
	viper.SetDefault("llm.temperature", 0.5)
	viper.SetDefault("llm.max_tokens", 512)
	viper.SetDefault("llm.top_k", 50)
	viper.SetDefault("llm.top_p", 0.9)

	// Embedding defaults
	viper.SetDefault("embedding.provider", "watsonx")
	viper.SetDefault("embedding.model", "ibm/slate-125m-english-rtrvr-v2")
	viper.SetDefault("embedding.dimensions", 768)
	viper.SetDefault("embedding.batch_size", 10)

	// Reranker defaults
	viper.SetDefault("reranker.base_url", "http://localhost:8000/v1")
	viper.SetDefault("reranker.model", "cross-encoder/ms-marco-MiniLM-L-6-v2")
	viper.SetDefault("reranker.top_k", 4)

	// Crawler defaults
	viper.SetDefault("crawler.sitemap_url", "https://www.valleyair.org/sitemap.xml")
	viper.SetDefault("crawler.output_dir", "output")
	viper.SetDefault("crawler.parallelism", 4)
	viper.SetDefault("crawler.min_words", 10)
	viper.SetDefault("crawler.user_agent", "airchat-crawler/1.0")

	// Air quality defaults
	viper.SetDefault("airquality.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	viper.SetDefault("airquality.air_quality_url", "https://air-quality-api.open-meteo.com/v1/air-quality")
	viper.SetDefault("airquality.history_path", "")

	// Cache defaults
	viper.SetDefault("cache.path", "")
	viper.SetDefault("cache.ttl_minutes", 1440)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Elasticsearch credentials
	if url := os.Getenv("ES_URL"); url != "" {
		config.Elasticsearch.URL = url
	}
	if user := os.Getenv("ES_USER"); user != "" {
		config.Elasticsearch.Username = user
	}
	if pass := os.Getenv("ES_PASSWORD"); pass != "" {
		config.Elasticsearch.Password = pass
	}
	if fp := os.Getenv("ES_CERT_FINGERPRINT"); fp != "" {
		config.Elasticsearch.CertFingerprint = fp
	}
	if index := os.Getenv("ES_INDEX_NAME"); index != "" {
		config.Elasticsearch.Index = index
	}

	// watsonx credentials are shared by the LLM and the embedder
	if apiKey := os.Getenv("WATSONX_API_KEY"); apiKey != "" {
		if config.LLM.Provider == "watsonx" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.Provider == "watsonx" {
			config.Embedding.APIKey = apiKey
		}
	}
	if url := os.Getenv("WATSONX_URL"); url != "" {
		if config.LLM.Provider == "watsonx" {
			config.LLM.BaseURL = url
		}
		if config.Embedding.Provider == "watsonx" {
			config.Embedding.BaseURL = url
		}
	}
	if projectID := os.Getenv("WATSONX_PROJECT_ID"); projectID != "" {
		if config.LLM.Provider == "watsonx" {
			config.LLM.ProjectID = projectID
		}
		if config.Embedding.Provider == "watsonx" {
			config.Embedding.ProjectID = projectID
		}
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.Provider == "openai" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.Provider == "openai" {
			config.Embedding.APIKey = apiKey
		}
	}

	// Reranker
	if url := os.Getenv("RERANKER_URL"); url != "" {
		config.Reranker.BaseURL = url
	}
	if apiKey := os.Getenv("RERANKER_API_KEY"); apiKey != "" {
		config.Reranker.APIKey = apiKey
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}
}
