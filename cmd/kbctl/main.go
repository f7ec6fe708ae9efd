// kbctl manages the knowledge base and reports from the command line,
// without going through the api service.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kirillkom/solar-panel-monitor/internal/config"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
	"github.com/kirillkom/solar-panel-monitor/internal/core/usecase"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/chunking"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/embed/ollama"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/export/excel"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/resilience"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/vector/sqlitevec"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupStderr("solarmon-kbctl", cfg.LogLevel)

	root := &cobra.Command{
		Use:           "kbctl",
		Short:         "Manage the solar panel knowledge base and fleet reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newIngestCmd(cfg), newQueryCmd(cfg), newExportCmd(cfg), newWatchCmd(cfg))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newIngestCmd(cfg config.Config) *cobra.Command {
	var ensure bool
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Chunk, embed and index every knowledge file in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.KnowledgeDir
			if len(args) == 1 {
				dir = args[0]
			}

			ingestor, closeStore, err := newIngestor(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if ensure {
				if err := ingestor.EnsureIngested(cmd.Context(), dir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "knowledge store ready\n")
				return nil
			}

			n, err := ingestor.IngestDirectory(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks from %s\n", n, dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ensure, "ensure", false, "skip ingestion when the store already holds chunks")
	return cmd
}

func newQueryCmd(cfg config.Config) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve knowledge context for a free-text query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			retriever, closeStore, err := newRetriever(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			contexts, err := retriever.Retrieve(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatContext(contexts))
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", cfg.RAGTopK, "number of context chunks to retrieve")
	return cmd
}

func newExportCmd(cfg config.Config) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the fleet health report as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := postgres.OpenDB(cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer db.Close()

			var topology ports.TopologyStore
			if cfg.Neo4jURI != "" {
				graph, err := neo4j.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, "")
				if err != nil {
					return fmt.Errorf("init topology store: %w", err)
				}
				defer graph.Close(context.Background())
				topology = graph
			}

			reportUC := usecase.NewReportUseCase(
				postgres.NewReadingRepository(db),
				postgres.NewAnalysisRepository(db),
				topology,
			)
			report, err := reportUC.BuildFleetReport(cmd.Context())
			if err != nil {
				return err
			}

			if err := excel.New().Export(*report, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d panels)\n", out, len(report.Panels))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "fleet_report.xlsx", "output xlsx path")
	return cmd
}

// newWatchCmd keeps the knowledge store in sync with a directory:
// whenever a knowledge file is added or rewritten, the directory is
// re-ingested after a short settle delay.
func newWatchCmd(cfg config.Config) *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and re-ingest on knowledge file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.KnowledgeDir
			if len(args) == 1 {
				dir = args[0]
			}

			ingestor, closeStore, err := newIngestor(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", dir)

			var timer *time.Timer
			reingest := make(chan struct{}, 1)
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
						continue
					}
					if !isKnowledgeFile(event.Name) {
						continue
					}
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(settle, func() {
						select {
						case reingest <- struct{}{}:
						default:
						}
					})
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintln(cmd.ErrOrStderr(), "watch error:", err)
				case <-reingest:
					n, err := ingestor.IngestDirectory(cmd.Context(), dir)
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), "re-ingest failed:", err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "re-indexed %d chunks\n", n)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "delay after the last change before re-ingesting")
	return cmd
}

func isKnowledgeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}

func newIngestor(cfg config.Config) (ports.KnowledgeIngestor, func(), error) {
	store, closeStore, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ingestor := usecase.NewKnowledgeIngestUseCase(
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor),
		store,
		plaintext.New(),
		pdf.New(),
	)
	return ingestor, closeStore, nil
}

func newRetriever(cfg config.Config) (ports.ContextRetriever, func(), error) {
	store, closeStore, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	retriever := usecase.NewRetrieveUseCase(
		ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor),
		store,
	)
	return retriever, closeStore, nil
}

func newStore(cfg config.Config) (ports.KnowledgeStore, func(), error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), func() {}, nil
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
