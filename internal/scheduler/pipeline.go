package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/singlnews/singl/internal/analytics"
	"github.com/singlnews/singl/internal/broadcast"
	"github.com/singlnews/singl/internal/config"
	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/fetch"
	"github.com/singlnews/singl/internal/imagegen"
	"github.com/singlnews/singl/internal/ingest"
	"github.com/singlnews/singl/internal/llm"
	"github.com/singlnews/singl/internal/story"
)

// Pipeline is one full update cycle: ingest feeds, optionally fetch full
// content, generate the next story version, enrich it, and publish the
// update to live subscribers.
type Pipeline struct {
	db       *database.DB
	cfg      *config.Config
	provider llm.Provider
	hub      *broadcast.Hub
	imager   *imagegen.Generator
}

// NewPipeline wires a Pipeline. The hub and imager may be nil for
// one-shot command runs.
func NewPipeline(db *database.DB, cfg *config.Config, provider llm.Provider, hub *broadcast.Hub, imager *imagegen.Generator) *Pipeline {
	return &Pipeline{db: db, cfg: cfg, provider: provider, hub: hub, imager: imager}
}

// effectiveConfig overlays stored runtime settings onto the static
// config. Provider and model changes take effect on restart; numeric
// tuning applies per cycle.
func (p *Pipeline) effectiveConfig() *config.Config {
	overrides, err := p.db.AllSettings()
	if err != nil {
		log.Printf("Loading runtime settings failed, using static config: %v", err)
		return p.cfg
	}
	return p.cfg.ApplyOverrides(overrides)
}

// Interval returns the configured update interval, honoring runtime
// overrides.
func (p *Pipeline) Interval() time.Duration {
	return time.Duration(p.effectiveConfig().Story.UpdateMinutes) * time.Minute
}

// RunCycle executes one update cycle. Individual stage failures are
// logged; a cycle only aborts when story generation itself fails.
func (p *Pipeline) RunCycle(ctx context.Context) {
	cfg := p.effectiveConfig()

	log.Println("Starting scheduled story update")

	if _, err := ingest.New(p.db, cfg.Ingest.Concurrency).Run(ctx); err != nil {
		log.Printf("Feed ingestion failed: %v", err)
	}

	if cfg.Ingest.FetchContent {
		fetch.NewContentFetcher(p.db, 0, 50).FetchMissing()
	}

	writer := story.NewWriter(p.provider, cfg.Generation.MaxTokens, cfg.Generation.Temperature)
	builder := story.NewContextBuilder(p.db, writer, cfg.Story.ContextSteps, cfg.Story.ExcerptVersions)
	service := story.NewService(p.db, writer, builder)

	version, err := service.GenerateNextVersion(ctx)
	if err != nil {
		log.Printf("Story generation failed: %v", err)
		return
	}

	if _, err := analytics.New(p.db, p.provider).Analyze(ctx, version); err != nil {
		log.Printf("Analytics generation failed: %v", err)
	}

	if p.hub != nil {
		p.hub.Publish(broadcast.StoryMessage("update", version))
	}

	p.maybeGenerateImage(ctx, cfg, version)
}

// maybeGenerateImage creates an image every Nth story version when enabled.
// The phase comes from the stored version count, so failed cycles and
// restarts do not shift the cadence.
func (p *Pipeline) maybeGenerateImage(ctx context.Context, cfg *config.Config, version *database.StoryVersion) {
	if !cfg.Images.Enabled || p.imager == nil || !p.imager.IsConfigured() {
		return
	}
	count, err := p.db.StoryCount()
	if err != nil {
		log.Printf("Counting story versions failed: %v", err)
		return
	}
	if !imageDue(count, cfg.Images.Interval) {
		return
	}

	img, err := p.imager.Generate(ctx, version)
	if err != nil {
		log.Printf("Image generation failed: %v", err)
		return
	}
	if _, err := p.db.InsertGeneratedImage(img); err != nil {
		log.Printf("Storing generated image failed: %v", err)
	}
}

// imageDue reports whether the count-th stored version is an image version
// for the given interval.
func imageDue(count, interval int) bool {
	if interval < 1 {
		interval = 1
	}
	return count%interval == 0
}
