package story

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/llm"
)

// mockProvider answers by prompt shape: compaction prompts get the
// compacted response, everything else the default.
type mockProvider struct {
	response  string
	compacted string
	calls     []string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ llm.Options) (string, llm.Usage, error) {
	m.calls = append(m.calls, prompt)
	usage := llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	if m.compacted != "" && strings.HasPrefix(prompt, "Condense this narrative") {
		return m.compacted, usage, nil
	}
	return m.response, usage, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func newBuilder(db *database.DB, p llm.Provider) (*Writer, *ContextBuilder) {
	w := NewWriter(p, 2048, 0.8)
	return w, NewContextBuilder(db, w, 10, 2)
}

func TestNarrativeContextEmpty(t *testing.T) {
	db := openTestDB(t)
	_, b := newBuilder(db, &mockProvider{})

	got, _, err := b.NarrativeContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != openingContext {
		t.Errorf("expected opening context, got %q", got)
	}
}

func TestNarrativeContextUsesStoredSummary(t *testing.T) {
	db := openTestDB(t)
	_, b := newBuilder(db, &mockProvider{})

	db.InsertStoryVersion("full one", "summary one", nil, nil, nil)
	db.InsertStoryVersion("full two", "summary two", ptr("the condensed arc"), nil, nil)

	got, _, err := b.NarrativeContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "the condensed arc" {
		t.Errorf("expected stored context summary, got %q", got)
	}
}

func TestNarrativeContextSingleVersion(t *testing.T) {
	db := openTestDB(t)
	_, b := newBuilder(db, &mockProvider{})

	db.InsertStoryVersion("the full text", "a summary", nil, nil, nil)

	got, _, err := b.NarrativeContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "THE STORY SO FAR:\n\nthe full text" {
		t.Errorf("expected full text context, got %q", got)
	}
}

func TestNarrativeContextFewVersions(t *testing.T) {
	db := openTestDB(t)
	_, b := newBuilder(db, &mockProvider{})

	db.InsertStoryVersion("t1", "s1", nil, nil, nil)
	db.InsertStoryVersion("t2", "s2", nil, nil, nil)
	db.InsertStoryVersion("t3", "s3", nil, nil, nil)

	got, _, err := b.NarrativeContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Oldest first.
	if got != "THE STORY SO FAR:\n\ns1\n\ns2\n\ns3" {
		t.Errorf("unexpected context: %q", got)
	}
}

func TestNarrativeContextCompactsOlderVersions(t *testing.T) {
	db := openTestDB(t)
	p := &mockProvider{compacted: "COMPACTED OLDER ARC"}
	_, b := newBuilder(db, p)

	for i := 1; i <= 6; i++ {
		db.InsertStoryVersion("text", "summary "+string(rune('0'+i)), nil, nil, nil)
	}

	got, usage, err := b.NarrativeContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "COMPACTED OLDER ARC") {
		t.Errorf("expected compacted prefix, got %q", got)
	}
	if !strings.Contains(got, "RECENT DEVELOPMENTS:\nsummary 4\n\nsummary 5\n\nsummary 6") {
		t.Errorf("expected recent summaries oldest-first, got %q", got)
	}
	// Older summaries never appear verbatim once compacted.
	if strings.Contains(got, "summary 1") {
		t.Error("expected older summaries replaced by compaction")
	}
	if usage.TotalTokens == 0 {
		t.Error("expected compaction usage accounted")
	}
}

func TestNarrativeContextStaysBounded(t *testing.T) {
	db := openTestDB(t)
	p := &mockProvider{compacted: "the arc"}
	_, b := newBuilder(db, p)

	long := strings.Repeat("x", 400)
	for i := 0; i < 40; i++ {
		db.InsertStoryVersion(long, "s "+long[:50], nil, nil, nil)
	}

	got, _, err := b.NarrativeContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Bounded: compaction plus at most three recent summaries, no matter
	// how many versions exist.
	if len(got) > 4*len(long) {
		t.Errorf("context grew with history: %d chars", len(got))
	}
}

func TestRecentExcerpts(t *testing.T) {
	db := openTestDB(t)
	_, b := newBuilder(db, &mockProvider{})

	empty, err := b.RecentExcerpts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty != "" {
		t.Error("expected empty excerpts for empty db")
	}

	long := strings.Repeat("a", 600)
	db.InsertStoryVersion(long, "s1", nil, nil, nil)
	db.InsertStoryVersion("short text", "s2", nil, nil, nil)

	got, err := b.RecentExcerpts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := strings.Split(got, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("expected 2 excerpts, got %d", len(parts))
	}
	// Oldest first, long text truncated with ellipsis.
	if !strings.Contains(parts[0], strings.Repeat("a", 500)+"...") {
		t.Error("expected truncated first excerpt")
	}
	if !strings.Contains(parts[1], "short text") {
		t.Error("expected full short excerpt second")
	}
	if !strings.Contains(parts[0], "UTC]") {
		t.Error("expected timestamp tag")
	}
}

func TestNewEventsSummary(t *testing.T) {
	if got := NewEventsSummary(nil); got != noNewEvents {
		t.Errorf("expected no-events sentinel, got %q", got)
	}

	long := strings.Repeat("w", 250)
	items := []database.FeedItem{
		{FeedName: "CNN", Title: "Big news", Summary: ptr(long)},
		{FeedName: "BBC", Title: "Other news"},
	}
	got := NewEventsSummary(items)
	if !strings.Contains(got, "• [CNN] Big news") {
		t.Error("expected bullet with source tag")
	}
	if !strings.Contains(got, strings.Repeat("w", 200)+"...") {
		t.Error("expected truncated item summary")
	}
	if strings.Contains(got, strings.Repeat("w", 201)) {
		t.Error("summary exceeded truncation limit")
	}
}

func TestNewEventsSummaryCapsRenderedItems(t *testing.T) {
	items := make([]database.FeedItem, 30)
	for i := range items {
		items[i] = database.FeedItem{FeedName: "Feed", Title: "Item"}
	}
	got := NewEventsSummary(items)
	if !strings.Contains(got, "... and 10 more developments") {
		t.Errorf("expected overflow marker, got tail %q", got[len(got)-60:])
	}
	if strings.Count(got, "• [Feed]") != 20 {
		t.Errorf("expected 20 rendered items, got %d", strings.Count(got, "• [Feed]"))
	}
}

func TestNewFeedItemsWindow(t *testing.T) {
	db := openTestDB(t)
	_, b := newBuilder(db, &mockProvider{})

	old := &database.FeedItem{
		FeedURL: "u", FeedName: "n", Title: "old", Link: "https://e.com/old",
		PublishedAt: time.Now().UTC().Add(-48 * time.Hour), ContentHash: "h-old",
	}
	fresh := &database.FeedItem{
		FeedURL: "u", FeedName: "n", Title: "fresh", Link: "https://e.com/fresh",
		PublishedAt: time.Now().UTC().Add(-time.Hour), ContentHash: "h-fresh",
	}
	db.InsertFeedItem(old)
	db.InsertFeedItem(fresh)

	// No versions: 24-hour window applies.
	items, err := b.NewFeedItems()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "fresh" {
		t.Fatalf("expected only the fresh item, got %d", len(items))
	}

	// After a version exists, its creation time is the cutoff.
	db.InsertStoryVersion("text", "summary", nil, nil, nil)
	items, err = b.NewFeedItems()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items after latest version, got %d", len(items))
	}
}

func TestGenerateNextVersion(t *testing.T) {
	db := openTestDB(t)
	p := &mockProvider{
		response:  "The summit was also the final. Delegates applauded as the ball crossed the line.",
		compacted: "condensed context",
	}
	w, b := newBuilder(db, p)
	svc := NewService(db, w, b)

	db.InsertFeedItem(&database.FeedItem{
		FeedURL: "u", FeedName: "CNN", Title: "Summit ends", Link: "https://e.com/1",
		PublishedAt: time.Now().UTC().Add(-time.Hour), ContentHash: "h1",
	})

	version, err := svc.GenerateNextVersion(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if version.ID == 0 {
		t.Fatal("expected stored version")
	}
	if !strings.Contains(version.FullText, "summit") && !strings.Contains(version.FullText, "Summit") {
		t.Errorf("unexpected story text: %q", version.FullText)
	}
	if version.ContextSummary == nil || *version.ContextSummary != "condensed context" {
		t.Error("expected stored context summary for next cycle")
	}
	if version.SourcesSnapshot == nil || version.SourcesSnapshot.ItemCount != 1 {
		t.Error("expected snapshot referencing the consumed item")
	}
	if version.TokenStats == nil || version.TokenStats.TotalTokens == 0 {
		t.Error("expected accumulated token stats")
	}

	// Second cycle with no new items still advances the story.
	second, err := svc.GenerateNextVersion(context.Background())
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.SourcesSnapshot == nil || second.SourcesSnapshot.ItemCount != 0 {
		t.Error("expected empty snapshot on quiet cycle")
	}

	latest, _ := db.LatestStory()
	if latest.ID != second.ID {
		t.Error("expected second version to be latest")
	}
}

func TestContinueStorySummaryFallback(t *testing.T) {
	// A provider that errors on the summary call exercises the
	// first-sentence fallback.
	p := &flakySummaryProvider{}
	w := NewWriter(p, 1024, 0.8)

	result, err := w.ContinueStory(context.Background(), "ctx", "", "events")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if result.Summary != "First sentence." {
		t.Errorf("expected first-sentence fallback, got %q", result.Summary)
	}
}

type flakySummaryProvider struct {
	calls int
}

func (p *flakySummaryProvider) Generate(_ context.Context, prompt string, _ llm.Options) (string, llm.Usage, error) {
	p.calls++
	if strings.HasPrefix(prompt, "Generate a one-sentence summary") {
		return "", llm.Usage{}, context.DeadlineExceeded
	}
	return "First sentence. Second sentence follows here.", llm.Usage{TotalTokens: 5}, nil
}

func (p *flakySummaryProvider) IsConfigured() bool { return true }

func TestContinueStoryWithoutProvider(t *testing.T) {
	w := NewWriter(nil, 1024, 0.8)

	if _, err := w.ContinueStory(context.Background(), "ctx", "", "events"); err == nil {
		t.Fatal("expected error when no provider is configured")
	}
}

func TestContextSummaryWithoutProvider(t *testing.T) {
	w := NewWriter(nil, 1024, 0.8)

	summary, usage := w.ContextSummary(context.Background(), []string{"part one", "part two"})
	if summary != "part one\n\npart two" {
		t.Errorf("expected truncation fallback, got %q", summary)
	}
	if usage.TotalTokens != 0 {
		t.Errorf("expected zero usage, got %d", usage.TotalTokens)
	}
}
