package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/solar-panel-monitor/api"
	"github.com/kirillkom/solar-panel-monitor/internal/config"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
	"github.com/kirillkom/solar-panel-monitor/internal/core/usecase"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/camera/esp32"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/chunking"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/classifier"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/embed/ollama"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/llm/gemini"
	natsqueue "github.com/kirillkom/solar-panel-monitor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/resilience"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/rules"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/vector/sqlitevec"
)

// App wires the infrastructure behind the ports the transports consume.
type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Readings  ports.ReadingRepository
	Analyses  ports.AnalysisRepository
	Camera    ports.CameraSource
	Rules     ports.AlertRules
	Topology  ports.TopologyStore
	AnalyzeUC ports.PanelAnalyzer
	Retriever ports.ContextRetriever
	IngestUC  ports.KnowledgeIngestor
	Telemetry ports.TelemetryRecorder
	Processor ports.ReadingProcessor
	ReportUC  ports.ReportBuilder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if _, err := api.Load(ctx); err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}

	// Opened resources are closed in reverse order, both on a mid-wiring
	// failure and through App.Close.
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, error) {
		closeAll()
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	closers = append(closers, func() { _ = db.Close() })

	readings := postgres.NewReadingRepository(db)
	if err := readings.EnsureSchema(ctx); err != nil {
		return fail(fmt.Errorf("ensure readings schema: %w", err))
	}
	analyses := postgres.NewAnalysisRepository(db)
	if err := analyses.EnsureSchema(ctx); err != nil {
		return fail(fmt.Errorf("ensure analyses schema: %w", err))
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSReadingsSubj, cfg.NATSAlertsSubj, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return fail(fmt.Errorf("init message queue: %w", err))
	}
	closers = append(closers, queue.Close)

	store, storeClose, err := newKnowledgeStore(cfg)
	if err != nil {
		return fail(err)
	}
	if storeClose != nil {
		closers = append(closers, storeClose)
	}

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	generator, err := gemini.New(gemini.Options{
		Model:           cfg.GeminiModel,
		Keys:            gemini.ParseKeys(cfg.GeminiAPIKeys),
		MaxOutputTokens: cfg.GeminiMaxTokens,
		RequestsPerMin:  cfg.GeminiRatePerMinute,
		Executor:        executor,
	})
	if err != nil {
		return fail(fmt.Errorf("init gemini client: %w", err))
	}

	imageClassifier := classifier.New(cfg.InferenceURL, executor)
	camera := esp32.New(cfg.CameraURLTemplate)
	alertRules := loadAlertRules(cfg.AlertRulesPath)

	var topology ports.TopologyStore
	if cfg.Neo4jURI != "" {
		graph, err := neo4j.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, "")
		if err != nil {
			return fail(fmt.Errorf("init topology store: %w", err))
		}
		topology = graph
		closers = append(closers, func() { _ = graph.Close(context.Background()) })
	}

	retriever := usecase.NewRetrieveUseCase(embedder, store)
	ingestUC := usecase.NewKnowledgeIngestUseCase(chunker, embedder, store, plaintext.New(), pdf.New())
	analyzeUC := usecase.NewAnalyzeUseCase(imageClassifier, retriever, generator, analyses, queue, alertRules, cfg.RAGTopK)
	telemetryUC := usecase.NewTelemetryUseCase(readings, queue, alertRules)
	reportUC := usecase.NewReportUseCase(readings, analyses, topology)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Readings:  readings,
		Analyses:  analyses,
		Camera:    camera,
		Rules:     alertRules,
		Topology:  topology,
		AnalyzeUC: analyzeUC,
		Retriever: retriever,
		IngestUC:  ingestUC,
		Telemetry: telemetryUC,
		Processor: telemetryUC,
		ReportUC:  reportUC,

		closeFn: closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newKnowledgeStore(cfg config.Config) (ports.KnowledgeStore, func(), error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), nil, nil
	case "sqlite":
		store, err := sqlitevec.Open(cfg.SQLiteVectorPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite vector store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %q", cfg.VectorBackend)
	}
}

func loadAlertRules(path string) ports.AlertRules {
	loaded, err := rules.Load(path)
	if err != nil {
		slog.Warn("alert_rules_fallback_default", "path", path, "error", err)
		return rules.Default()
	}
	return loaded
}
