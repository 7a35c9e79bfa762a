package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/singlnews/singl/internal/analytics"
	"github.com/singlnews/singl/internal/broadcast"
	"github.com/singlnews/singl/internal/config"
	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/imagegen"
	"github.com/singlnews/singl/internal/ingest"
	"github.com/singlnews/singl/internal/llm"
	"github.com/singlnews/singl/internal/scheduler"
	"github.com/singlnews/singl/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "singl",
	Short:   "All of the news. One story.",
	Long:    "Singl ingests news feeds and continuously rewrites them into a single evolving narrative.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("singl", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/singl/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, the LLM provider, and API keys.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("THE STORY:")
		fmt.Printf("  Versions: %d\n", stats.TotalStories)
		fmt.Printf("  Today: %d\n", stats.StoriesToday)
		fmt.Printf("  This week: %d\n", stats.StoriesThisWeek)
		if latest, err := db.LatestStory(); err == nil && latest != nil {
			fmt.Printf("  Latest: %s (version %d)\n", latest.CreatedAt.Format("2006-01-02 15:04 UTC"), latest.ID)
		}
		fmt.Println("\nFeeds:")
		fmt.Printf("  Configured: %d (%d active)\n", stats.TotalFeeds, stats.ActiveFeeds)
		fmt.Printf("  With errors: %d\n", stats.FeedsWithErrors)
		fmt.Printf("  Items collected: %d (%d today)\n", stats.TotalFeedItems, stats.FeedItemsToday)
		fmt.Printf("  Unique sources: %d\n", stats.UniqueSources)
		fmt.Println("\nEnrichment:")
		fmt.Printf("  Analytics rows: %d\n", stats.AnalyticsRows)
		fmt.Printf("  Generated images: %d\n", stats.GeneratedImages)
		fmt.Printf("  Total tokens used: %d\n", stats.TotalTokens)
		return nil
	},
}

// --- ingest command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch configured feeds and store new items",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := seedFeeds(db); err != nil {
			return err
		}

		fmt.Println("Fetching feeds...")
		result, err := ingest.New(db, cfg.Ingest.Concurrency).Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("\nIngestion complete:")
		fmt.Printf("  Feeds fetched: %d\n", result.FeedsFetched)
		fmt.Printf("  Feeds failed: %d\n", result.FeedsFailed)
		fmt.Printf("  Items found: %d\n", result.ItemsFound)
		fmt.Printf("  New items: %d\n", result.ItemsNew)
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full update cycle: ingest -> generate -> analyze",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := seedFeeds(db); err != nil {
			return err
		}

		provider := newProvider()
		pipe := scheduler.NewPipeline(db, cfg, provider, nil, newImager(provider))
		pipe.RunCycle(cmd.Context())

		latest, err := db.LatestStory()
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("no story version was produced; check the logs above")
		}

		fmt.Printf("\nTHE STORY, version %d (%s):\n\n", latest.ID, latest.CreatedAt.Format("2006-01-02 15:04 UTC"))
		fmt.Println(latest.Summary)
		return nil
	},
}

// --- analyze command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [story-id]",
	Short: "Generate analytics for a story version (latest by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var story *database.StoryVersion
		if len(args) > 0 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid story ID: %s", args[0])
			}
			story, err = db.StoryByID(id)
			if err != nil {
				return err
			}
		} else {
			story, err = db.LatestStory()
			if err != nil {
				return err
			}
		}
		if story == nil {
			return fmt.Errorf("no story version found")
		}

		row, err := analytics.New(db, newProvider()).Analyze(cmd.Context(), story)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("analytics unavailable for story %d", story.ID)
		}

		fmt.Printf("Analytics for story %d:\n", story.ID)
		fmt.Printf("  Sentiment: %s (pos %.2f / neg %.2f / neu %.2f)\n",
			row.OverallSentiment, row.SentimentScore.Positive, row.SentimentScore.Negative, row.SentimentScore.Neutral)
		fmt.Printf("  Political lean: %s (%.2f)\n", row.BiasScore.PoliticalLean, row.BiasScore.LeanScore)
		fmt.Printf("  Sources analyzed: %d\n", len(row.SourceAnalysis))
		fmt.Printf("  Fact checks: %d\n", len(row.FactChecks))
		fmt.Printf("  Predictions: %d\n", len(row.Predictions))
		fmt.Printf("  Timeline events: %d\n", len(row.Events))
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the update scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := seedFeeds(db); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider := newProvider()
		if provider == nil {
			log.Println("No LLM provider configured; feeds will be ingested but story generation will fail until one is available")
		}
		hub := broadcast.NewHub()
		pipe := scheduler.NewPipeline(db, cfg, provider, hub, newImager(provider))

		go scheduler.New(pipe.Interval(), pipe.RunCycle).Run(ctx)

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.New(db, cfg, provider, hub).Handler(),
		}

		go func() {
			<-ctx.Done()
			log.Println("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// seedFeeds imports the config's default feeds when the database has none.
// Afterwards the database is the source of truth for feed management.
func seedFeeds(db *database.DB) error {
	feeds, err := db.FeedConfigurations(false)
	if err != nil {
		return err
	}
	if len(feeds) > 0 {
		return nil
	}

	defaults := make([]ingest.DefaultFeed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		defaults = append(defaults, ingest.DefaultFeed{
			Name:     f.Name,
			URL:      f.URL,
			Category: f.Category,
			Priority: f.Priority,
		})
	}

	imported, err := ingest.ImportDefaults(db, defaults)
	if err != nil {
		return err
	}
	if imported > 0 {
		fmt.Printf("Seeded %d default feeds from config.\n", imported)
	}
	return nil
}

func newProvider() llm.Provider {
	g := cfg.Generation
	return llm.CreateProvider(g.Provider, g.Model, g.OllamaURL, g.OllamaModel, g.APIKeyEnv)
}

func newImager(provider llm.Provider) *imagegen.Generator {
	return imagegen.New(provider, cfg.Generation.APIKeyEnv, cfg.Images.Model, cfg.Images.Size, cfg.Images.Quality)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "singl.db")
	return database.Open(dbPath)
}
