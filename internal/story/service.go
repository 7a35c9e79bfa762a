package story

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/singlnews/singl/internal/database"
)

// contextHistoryDepth is how many previous versions feed the stored
// context summary for the next cycle.
const contextHistoryDepth = 5

// Service runs the generation cycle: gather new items, build context,
// continue the story, and persist the new immutable version.
type Service struct {
	db      *database.DB
	writer  *Writer
	builder *ContextBuilder
}

// NewService wires a Service from its parts.
func NewService(db *database.DB, writer *Writer, builder *ContextBuilder) *Service {
	return &Service{db: db, writer: writer, builder: builder}
}

// GenerateNextVersion produces and stores the next story version. The new
// version always references the exact set of items it consumed, even when
// that set is empty.
func (s *Service) GenerateNextVersion(ctx context.Context) (*database.StoryVersion, error) {
	newItems, err := s.builder.NewFeedItems()
	if err != nil {
		return nil, fmt.Errorf("loading new feed items: %w", err)
	}

	narrativeContext, contextUsage, err := s.builder.NarrativeContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("building narrative context: %w", err)
	}

	excerpts, err := s.builder.RecentExcerpts()
	if err != nil {
		return nil, fmt.Errorf("building recent excerpts: %w", err)
	}

	events := NewEventsSummary(newItems)

	result, err := s.writer.ContinueStory(ctx, narrativeContext, excerpts, events)
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(newItems)

	// Pre-compute the context summary the next cycle will start from:
	// the recent full texts plus the segment just written.
	recent, err := s.db.RecentStories(contextHistoryDepth)
	if err != nil {
		return nil, fmt.Errorf("loading recent stories: %w", err)
	}
	contextTexts := make([]string, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		contextTexts = append(contextTexts, recent[i].FullText)
	}
	contextTexts = append(contextTexts, result.Story)

	newContextSummary, summaryUsage := s.writer.ContextSummary(ctx, contextTexts)

	totalUsage := result.Usage
	totalUsage.Add(contextUsage)
	totalUsage.Add(summaryUsage)

	stats := &database.TokenStats{
		PromptTokens:     totalUsage.PromptTokens,
		CompletionTokens: totalUsage.CompletionTokens,
		TotalTokens:      totalUsage.TotalTokens,
	}

	version, err := s.db.InsertStoryVersion(result.Story, result.Summary, &newContextSummary, snapshot, stats)
	if err != nil {
		return nil, fmt.Errorf("storing story version: %w", err)
	}

	log.Printf("Created story version %d from %d new items (%d tokens)",
		version.ID, len(newItems), stats.TotalTokens)
	return version, nil
}

func buildSnapshot(items []database.FeedItem) *database.SourcesSnapshot {
	sources := make([]database.SourceItem, 0, len(items))
	for _, item := range items {
		published := item.PublishedAt.UTC().Format(time.RFC3339)
		sources = append(sources, database.SourceItem{
			ID:          item.ID,
			Title:       item.Title,
			Source:      item.FeedName,
			PublishedAt: &published,
		})
	}
	return &database.SourcesSnapshot{FeedItems: sources, ItemCount: len(items)}
}
