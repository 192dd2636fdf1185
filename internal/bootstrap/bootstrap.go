package bootstrap

import (
	"context"
	"fmt"

	"github.com/convolveai/yojana-drishti/internal/config"
	"github.com/convolveai/yojana-drishti/internal/core/ports"
	"github.com/convolveai/yojana-drishti/internal/core/usecase"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/llm/ollama"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/llm/openai"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/queue/nats"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/repository/postgres"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/resilience"
	"github.com/convolveai/yojana-drishti/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Analyzer  ports.SchemeAnalyzer
	Cases     ports.CaseMemoryManager
	Catalog   ports.CatalogManager
	Extractor ports.SignalExtractor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ledger := postgres.NewCaseRepository(db)
	if err := ledger.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure case ledger schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var embedder ports.Embedder
	var extractor ports.SignalExtractor
	switch cfg.EmbeddingBackend {
	case "openai":
		openaiClient := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAIVisionModel, executor)
		embedder = openaiClient
		extractor = openai.NewExtractor(openaiClient)
	default:
		embedder = ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
		if cfg.OpenAIAPIKey != "" {
			openaiClient := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAIVisionModel, executor)
			extractor = openai.NewExtractor(openaiClient)
		}
	}

	schemeIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
	caseStore := qdrant.NewMemoryClient(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantMemoryCollection)

	memoryService := usecase.NewCaseMemoryService(embedder, caseStore, ledger)
	analyzeUC := usecase.NewAnalyzeUseCase(embedder, schemeIndex, memoryService, usecase.AnalyzeOptions{
		RRFK:             cfg.FusionRRFK,
		HybridCandidates: cfg.HybridCandidates,
		MemoryTopK:       cfg.MemoryTopK,
	})
	ingestUC := usecase.NewIngestCatalogUseCase(embedder, schemeIndex, caseStore, queue, cfg.SeedPath)

	return &App{
		Config: cfg,

		Queue:     queue,
		Analyzer:  analyzeUC,
		Cases:     memoryService,
		Catalog:   ingestUC,
		Extractor: extractor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
