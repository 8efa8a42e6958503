package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/handlers"
	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/services/classifier"
	"github.com/ternarybob/flashback/internal/services/ingest"
	"github.com/ternarybob/flashback/internal/services/llm"
	"github.com/ternarybob/flashback/internal/services/pipeline"
	"github.com/ternarybob/flashback/internal/services/render"
	"github.com/ternarybob/flashback/internal/services/scheduler"
	"github.com/ternarybob/flashback/internal/services/scoring"
	badgerstore "github.com/ternarybob/flashback/internal/storage/badger"
	neo4jstore "github.com/ternarybob/flashback/internal/storage/neo4j"
	"github.com/ternarybob/flashback/internal/taxonomy"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	badgerDB     *badgerstore.BadgerDB
	graphDB      *neo4jstore.GraphDB
	KVStorage    interfaces.KeyValueStorage
	ReportCache  interfaces.ReportCache
	ArticleStore interfaces.ArticleStore

	// Services
	Provider     *llm.ProviderFactory
	Taxonomy     *taxonomy.Taxonomy
	Scorer       *scoring.Scorer
	Classifier   *classifier.Client
	Orchestrator *pipeline.Orchestrator
	Renderer     *render.Service
	Ingest       *ingest.Service
	Scheduler    *scheduler.Service

	// HTTP handlers
	ReportHandler *handlers.ReportHandler
	IngestHandler *handlers.IngestHandler
	SystemHandler *handlers.SystemHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	badgerDB, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	app.badgerDB = badgerDB
	app.KVStorage = badgerstore.NewKVStorage(badgerDB, logger)
	app.ReportCache = badgerstore.NewReportCache(badgerDB, logger)

	graphDB, err := neo4jstore.NewGraphDB(ctx, logger, &cfg.Storage.Neo4j)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to connect to graph store: %w", err)
	}
	app.graphDB = graphDB
	app.ArticleStore = neo4jstore.NewArticleStorage(graphDB, logger)

	tax, err := taxonomy.Load()
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	app.Taxonomy = tax
	app.Scorer = scoring.NewScorer(tax, cfg.Scoring)

	app.Provider = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, app.KVStorage, logger)
	app.Classifier = classifier.NewClientFromConfig(app.Provider, tax, &cfg.LLM, logger)

	app.Orchestrator = pipeline.NewOrchestrator(app.Classifier, app.ArticleStore, app.ReportCache, cfg.Retrieval, logger)
	app.Renderer = render.NewService(logger)

	if err := common.ValidateIngestSchedule(cfg.Ingest.Schedule); err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Ingest = ingest.NewService(app.ArticleStore, app.Scorer, cfg.Ingest, logger)
	app.Scheduler = scheduler.NewService(app.Ingest, cfg.Ingest.Schedule, logger)

	app.ReportHandler = handlers.NewReportHandler(app.Orchestrator, app.ReportCache, app.Renderer, logger)
	app.IngestHandler = handlers.NewIngestHandler(app.Ingest, app.ArticleStore, logger)
	app.SystemHandler = handlers.NewSystemHandler(logger)

	logger.Info().
		Str("badger_path", cfg.Storage.Badger.Path).
		Str("neo4j_uri", cfg.Storage.Neo4j.URI).
		Msg("Application initialized")

	return app, nil
}

// Close releases all application resources in reverse dependency order
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.Provider != nil {
		if err := a.Provider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM provider")
		}
	}

	if a.graphDB != nil {
		if err := a.graphDB.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close graph store")
		}
	}

	if a.badgerDB != nil {
		if err := a.badgerDB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close local store")
		}
	}
}
