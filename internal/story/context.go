package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/llm"
)

const (
	// openingContext seeds the very first generation cycle.
	openingContext = "This is the beginning of THE STORY. The world awaits its first unified narrative."
	// noNewEvents keeps the story moving when ingestion found nothing.
	noNewEvents = "No new events to report. Continue developing existing story threads."

	// recentKeep is how many recent versions stay uncompacted in context.
	recentKeep = 3
	// excerptLength is the per-version excerpt size for tone continuity.
	excerptLength = 500
	// itemSummaryLength truncates per-item summaries in the events list.
	itemSummaryLength = 200
	// maxRenderedEvents caps how many items the events list spells out.
	maxRenderedEvents = 20
	// maxNewItems caps how many items one cycle pulls from storage.
	maxNewItems = 50
)

// ContextBuilder assembles the narrative inputs for one generation cycle.
type ContextBuilder struct {
	db           *database.DB
	writer       *Writer
	contextSteps int
	excerptCount int
}

// NewContextBuilder creates a ContextBuilder. contextSteps bounds how many
// versions feed the narrative context; excerptCount how many are excerpted.
func NewContextBuilder(db *database.DB, writer *Writer, contextSteps, excerptCount int) *ContextBuilder {
	if contextSteps < 1 {
		contextSteps = 1
	}
	if excerptCount < 1 {
		excerptCount = 1
	}
	return &ContextBuilder{db: db, writer: writer, contextSteps: contextSteps, excerptCount: excerptCount}
}

// NarrativeContext builds the compressed story-so-far block. Its size is
// bounded regardless of how many versions exist: either a stored context
// summary, a handful of version summaries, or a fresh compaction of the
// older tail plus the recent summaries.
func (b *ContextBuilder) NarrativeContext(ctx context.Context) (string, llm.Usage, error) {
	versions, err := b.db.RecentStories(b.contextSteps)
	if err != nil {
		return "", llm.Usage{}, err
	}

	if len(versions) == 0 {
		return openingContext, llm.Usage{}, nil
	}

	// The previous cycle's context summary already covers everything.
	if cs := versions[0].ContextSummary; cs != nil && strings.TrimSpace(*cs) != "" {
		return *cs, llm.Usage{}, nil
	}

	if len(versions) == 1 {
		return "THE STORY SO FAR:\n\n" + versions[0].FullText, llm.Usage{}, nil
	}

	if len(versions) <= recentKeep {
		texts := make([]string, 0, len(versions))
		for i := len(versions) - 1; i >= 0; i-- {
			texts = append(texts, versions[i].Summary)
		}
		return "THE STORY SO FAR:\n\n" + strings.Join(texts, "\n\n"), llm.Usage{}, nil
	}

	// Compact the older tail, keep the recent summaries fuller.
	older := make([]string, 0, len(versions)-recentKeep)
	for i := len(versions) - 1; i >= recentKeep; i-- {
		older = append(older, versions[i].Summary)
	}
	compacted, usage := b.writer.ContextSummary(ctx, older)

	recent := make([]string, 0, recentKeep)
	for i := recentKeep - 1; i >= 0; i-- {
		recent = append(recent, versions[i].Summary)
	}

	return compacted + "\n\nRECENT DEVELOPMENTS:\n" + strings.Join(recent, "\n\n"), usage, nil
}

// RecentExcerpts returns timestamped excerpts of the latest versions,
// oldest first, for tone and continuity.
func (b *ContextBuilder) RecentExcerpts() (string, error) {
	versions, err := b.db.RecentStories(b.excerptCount)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", nil
	}

	excerpts := make([]string, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		excerpt := v.FullText
		if len(excerpt) > excerptLength {
			excerpt = excerpt[:excerptLength] + "..."
		}
		tag := v.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")
		excerpts = append(excerpts, fmt.Sprintf("[%s]\n%s", tag, excerpt))
	}
	return strings.Join(excerpts, "\n\n"), nil
}

// NewFeedItems returns the items published since the latest story version,
// or from the last 24 hours when no version exists yet. Newest first.
func (b *ContextBuilder) NewFeedItems() ([]database.FeedItem, error) {
	latest, err := b.db.LatestStory()
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	if latest != nil {
		since = latest.CreatedAt
	}
	return b.db.FeedItemsPublishedAfter(since, maxNewItems)
}

// NewEventsSummary renders the new-items list for the prompt. At most
// maxRenderedEvents items are spelled out; the rest collapse into a count.
func NewEventsSummary(items []database.FeedItem) string {
	if len(items) == 0 {
		return noNewEvents
	}

	events := make([]string, 0, len(items))
	for _, item := range items {
		event := fmt.Sprintf("• [%s] %s", item.FeedName, item.Title)
		if item.Summary != nil && *item.Summary != "" {
			summary := *item.Summary
			if len(summary) > itemSummaryLength {
				summary = summary[:itemSummaryLength] + "..."
			}
			event += "\n  " + summary
		}
		events = append(events, event)
	}

	if len(events) > maxRenderedEvents {
		events = events[:maxRenderedEvents]
		events = append(events, fmt.Sprintf("... and %d more developments", len(items)-maxRenderedEvents))
	}

	return strings.Join(events, "\n\n")
}
