package airchat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sjvalley/go-airchat/pkg/agent"
	"github.com/sjvalley/go-airchat/pkg/airquality"
	"github.com/sjvalley/go-airchat/pkg/cache"
	"github.com/sjvalley/go-airchat/pkg/config"
	"github.com/sjvalley/go-airchat/pkg/crossencoder"
	"github.com/sjvalley/go-airchat/pkg/embedder"
	"github.com/sjvalley/go-airchat/pkg/llm"
	"github.com/sjvalley/go-airchat/pkg/logger"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// dependencies holds the shared service clients built from configuration.
// Close releases them in reverse construction order.
type dependencies struct {
	logger   *slog.Logger
	llm      llm.Client
	embedder embedder.Client
	store    vectorstore.Store
	cache    cache.Cache
	reranker crossencoder.Client
	meteo    *airquality.Client
	history  *airquality.History
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.NewDefault(logger.ParseLevel(cfg.Log.Level))
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	llmCfg := llm.Config{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	}
	if cfg.LLM.Temperature > 0 {
		t := cfg.LLM.Temperature
		llmCfg.Temperature = &t
	}
	if cfg.LLM.MaxTokens > 0 {
		m := cfg.LLM.MaxTokens
		llmCfg.MaxTokens = &m
	}
	if cfg.LLM.TopK > 0 {
		k := cfg.LLM.TopK
		llmCfg.TopK = &k
	}
	if cfg.LLM.TopP > 0 {
		p := cfg.LLM.TopP
		llmCfg.TopP = &p
	}

	switch cfg.LLM.Provider {
	case "watsonx":
		return llm.NewWatsonxClient(llm.WatsonxConfig{
			Config:    llmCfg,
			APIKey:    cfg.LLM.APIKey,
			ProjectID: cfg.LLM.ProjectID,
		}), nil
	case "openai":
		return llm.NewOpenAIClient(cfg.LLM.APIKey, llmCfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}

func newEmbedderClient(cfg *config.Config, c cache.Cache) (embedder.Client, error) {
	embCfg := embedder.Config{
		Model:      cfg.Embedding.Model,
		BatchSize:  cfg.Embedding.BatchSize,
		Dimensions: cfg.Embedding.Dimensions,
		BaseURL:    cfg.Embedding.BaseURL,
	}

	var inner embedder.Client
	switch cfg.Embedding.Provider {
	case "watsonx":
		inner = embedder.NewWatsonxEmbedder(&embedder.WatsonxConfig{
			Config:    &embCfg,
			APIKey:    cfg.Embedding.APIKey,
			ProjectID: cfg.Embedding.ProjectID,
		})
	case "openai":
		inner = embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embCfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}

	if c == nil {
		return inner, nil
	}
	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	return embedder.NewCachedEmbedder(inner, c, cfg.Embedding.Model, ttl), nil
}

func newStore(cfg *config.Config) (vectorstore.Store, error) {
	return vectorstore.NewElasticsearchStore(vectorstore.ElasticsearchConfig{
		URL:             cfg.Elasticsearch.URL,
		Username:        cfg.Elasticsearch.Username,
		Password:        cfg.Elasticsearch.Password,
		CertFingerprint: cfg.Elasticsearch.CertFingerprint,
		Index:           cfg.Elasticsearch.Index,
		Dimensions:      cfg.Embedding.Dimensions,
	})
}

// newDependencies builds every client the chat workflow needs.
func newDependencies(cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{logger: newLogger(cfg)}

	if cfg.Cache.Path != "" {
		c, err := cache.NewBadgerCache(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		deps.cache = c
	}

	var err error
	if deps.llm, err = newLLMClient(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	if deps.embedder, err = newEmbedderClient(cfg, deps.cache); err != nil {
		deps.Close()
		return nil, err
	}
	if deps.store, err = newStore(cfg); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	deps.reranker = crossencoder.NewRerankerClient(crossencoder.RerankerConfig{
		Config: crossencoder.Config{
			Model: cfg.Reranker.Model,
			TopK:  cfg.Reranker.TopK,
		},
		BaseURL: cfg.Reranker.BaseURL,
		APIKey:  cfg.Reranker.APIKey,
	})

	deps.meteo = airquality.NewClient(airquality.ClientConfig{
		GeocodingURL:  cfg.AirQuality.GeocodingURL,
		AirQualityURL: cfg.AirQuality.AirQualityURL,
	}, deps.cache, deps.logger)

	if cfg.AirQuality.HistoryPath != "" {
		h, err := airquality.NewHistory(cfg.AirQuality.HistoryPath)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		deps.history = h
	}

	return deps, nil
}

// newWorkflow wires the chat agents over the shared dependencies.
func (d *dependencies) newWorkflow(cfg *config.Config) *agent.Workflow {
	retrieval := agent.NewRetrievalAgent(d.store, d.embedder, d.reranker, cfg.Reranker.TopK, d.logger)

	return agent.NewWorkflow(
		agent.NewClassifier(d.llm, d.logger),
		agent.NewQueryContextAgent(d.llm, d.logger),
		retrieval,
		agent.NewAirQualityAgent(d.llm, d.meteo, d.history, d.logger),
		agent.NewSynthesisAgent(d.llm),
		d.logger,
	)
}

// Close releases every client that was successfully constructed.
func (d *dependencies) Close() {
	if d.history != nil {
		_ = d.history.Close()
	}
	if d.reranker != nil {
		_ = d.reranker.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.embedder != nil {
		_ = d.embedder.Close()
	}
	if d.llm != nil {
		_ = d.llm.Close()
	}
	if d.cache != nil {
		_ = d.cache.Close()
	}
}
