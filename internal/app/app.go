package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/insightlabs-ai/docinsight/internal/config"
	"github.com/insightlabs-ai/docinsight/internal/core"
	db "github.com/insightlabs-ai/docinsight/internal/core/database"
	"github.com/insightlabs-ai/docinsight/internal/core/ingest"
	"github.com/insightlabs-ai/docinsight/internal/core/llm"
	objectclient "github.com/insightlabs-ai/docinsight/internal/core/object-client"
	"github.com/insightlabs-ai/docinsight/internal/core/pipeline"
	"github.com/insightlabs-ai/docinsight/internal/core/splitter"
	"github.com/insightlabs-ai/docinsight/internal/services"
)

type App struct {
	DBClient  *db.DatabaseClient
	Ingestion *services.IngestService
	Server    *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
	}

	ingestor := ingest.NewIngestor(
		ingest.NewPdfPageExtractor(),
		ingest.NewPdftoppmRasterizer(),
		ingest.NewDocconvOCR(),
		ingest.NewSofficeConverter(),
		cfg.DataDir,
		cfg.OCRDpi,
	)

	split, err := buildSplitter(cfg, embedder)
	if err != nil {
		return nil, err
	}

	cache := pipeline.NewTransformCache(dbClient.Cache())
	ledger := pipeline.NewLedger(dbClient)
	pipe := pipeline.NewPipeline(split, embedder, cache, ledger, dbClient, pipeline.Config{
		EmbedID:   embedder.Model(),
		BatchSize: cfg.EmbedBatchSize,
		Dim:       cfg.EmbedDim,
	})

	docService := services.NewDocumentService(dbClient, objClient, ingestor, cfg.BucketName)
	ingestService := services.NewIngestService(dbClient, objClient, ingestor, pipe)
	chatService := services.NewChatService(embedder, llmProvider, dbClient, cache, embedder.Model(), cfg.TopK)

	server := NewServer(cfg, dbClient, docService, ingestService, chatService)

	return &App{DBClient: dbClient, Ingestion: ingestService, Server: server}, nil
}

func buildSplitter(cfg *config.Config, embedder core.EmbeddingProvider) (splitter.Splitter, error) {
	switch cfg.SplitStrategy {
	case "", "sentence":
		return splitter.NewSentenceSplitter(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "semantic":
		return splitter.NewSemanticSplitter(embedder, cfg.SemanticBufferSize, cfg.SemanticPercentile), nil
	default:
		return nil, fmt.Errorf("unknown split strategy %q", cfg.SplitStrategy)
	}
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
