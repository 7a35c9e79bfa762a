package analytics

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/llm"
)

// mockProvider routes responses by which analysis prompt arrives.
type mockProvider struct {
	responses map[string]string
	fail      bool
	calls     int
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ llm.Options) (string, llm.Usage, error) {
	m.calls++
	if m.fail {
		return "", llm.Usage{}, context.DeadlineExceeded
	}
	for marker, response := range m.responses {
		if strings.Contains(prompt, marker) {
			return response, llm.Usage{}, nil
		}
	}
	return "{}", llm.Usage{}, nil
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

func fullResponses() map[string]string {
	return map[string]string{
		"sentiment analysis expert": `{"overall": "negative", "score": {"positive": 0.1, "negative": 0.7, "neutral": 0.2}}`,
		"bias detection expert":     `{"score": {"political_lean": "center", "lean_score": 0.1, "loaded_language_count": 2, "emotional_language_score": 0.3}, "indicators": {"loaded_terms": ["crisis"], "omissions": [], "framing": "urgent"}}`,
		"fact-checking expert":      `{"fact_checks": [{"claim": "The summit ended", "verdict": "true", "confidence": 0.9, "explanation": "Widely reported"}]}`,
		"geopolitical analyst":      `{"predictions": [{"scenario": "Talks resume", "probability": 0.6, "timeframe": "short-term", "reasoning": "Momentum"}]}`,
		"event extraction expert":   `{"events": [{"title": "Summit ends", "description": "Delegates departed.", "timestamp": null, "category": "political", "importance": 8}]}`,
	}
}

func TestAnalyzeStory(t *testing.T) {
	db := openTestDB(t)
	story, _ := db.InsertStoryVersion("The summit ended abruptly.", "summary", nil, nil, nil)

	a := New(db, &mockProvider{responses: fullResponses()})
	result, err := a.Analyze(context.Background(), story)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result == nil {
		t.Fatal("expected analytics row")
	}

	if result.OverallSentiment != "negative" {
		t.Errorf("expected negative sentiment, got %q", result.OverallSentiment)
	}
	if result.SentimentScore.Negative != 0.7 {
		t.Errorf("unexpected sentiment score: %+v", result.SentimentScore)
	}
	if result.BiasScore.PoliticalLean != "center" {
		t.Errorf("unexpected bias: %+v", result.BiasScore)
	}
	if len(result.FactChecks) != 1 || result.FactChecks[0].Verdict != "true" {
		t.Errorf("unexpected fact checks: %+v", result.FactChecks)
	}
	if len(result.Predictions) != 1 || result.Predictions[0].Timeframe != "short-term" {
		t.Errorf("unexpected predictions: %+v", result.Predictions)
	}
	if len(result.Events) != 1 || result.Events[0].Importance != 8 {
		t.Errorf("unexpected events: %+v", result.Events)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	story, _ := db.InsertStoryVersion("text", "summary", nil, nil, nil)

	p := &mockProvider{responses: fullResponses()}
	a := New(db, p)

	first, err := a.Analyze(context.Background(), story)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	callsAfterFirst := p.calls

	second, err := a.Analyze(context.Background(), story)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected same analytics row")
	}
	if p.calls != callsAfterFirst {
		t.Error("expected no provider calls on re-analysis")
	}

	count, _ := db.AnalyticsCount()
	if count != 1 {
		t.Errorf("expected one analytics row, got %d", count)
	}
}

func TestAnalyzeDegradesToDefaults(t *testing.T) {
	db := openTestDB(t)
	story, _ := db.InsertStoryVersion("text", "summary", nil, nil, nil)

	a := New(db, &mockProvider{fail: true})
	result, err := a.Analyze(context.Background(), story)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result == nil {
		t.Fatal("expected stored row despite provider failure")
	}

	if result.OverallSentiment != "neutral" {
		t.Errorf("expected neutral default, got %q", result.OverallSentiment)
	}
	if result.SentimentScore.Neutral != 0.34 {
		t.Errorf("expected 33/33/34 default, got %+v", result.SentimentScore)
	}
	if result.BiasScore.PoliticalLean != "unknown" {
		t.Errorf("expected unknown lean, got %q", result.BiasScore.PoliticalLean)
	}
	if len(result.FactChecks) != 0 || len(result.Predictions) != 0 || len(result.Events) != 0 {
		t.Error("expected empty lists on failure")
	}
}

func TestAnalyzeSourcesGroupsByFeed(t *testing.T) {
	db := openTestDB(t)

	id1, _ := db.InsertFeedItem(&database.FeedItem{
		FeedURL: "u", FeedName: "CNN", Title: "A", Link: "https://e.com/a", ContentHash: "h1",
	})
	id2, _ := db.InsertFeedItem(&database.FeedItem{
		FeedURL: "u", FeedName: "CNN", Title: "B", Link: "https://e.com/b", ContentHash: "h2",
	})
	id3, _ := db.InsertFeedItem(&database.FeedItem{
		FeedURL: "u", FeedName: "BBC", Title: "C", Link: "https://e.com/c", ContentHash: "h3",
	})

	snapshot := &database.SourcesSnapshot{
		FeedItems: []database.SourceItem{
			{ID: id1, Title: "A", Source: "CNN"},
			{ID: id2, Title: "B", Source: "CNN"},
			{ID: id3, Title: "C", Source: "BBC"},
		},
		ItemCount: 3,
	}
	story, _ := db.InsertStoryVersion("text", "summary", nil, snapshot, nil)

	a := New(db, &mockProvider{responses: fullResponses()})
	result, err := a.Analyze(context.Background(), story)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if len(result.SourceAnalysis) != 2 {
		t.Fatalf("expected 2 source breakdowns, got %d", len(result.SourceAnalysis))
	}
	if result.SourceAnalysis[0].SourceName != "CNN" || result.SourceAnalysis[0].ArticleCount != 2 {
		t.Errorf("unexpected first breakdown: %+v", result.SourceAnalysis[0])
	}
	if result.SourceAnalysis[1].SourceName != "BBC" || result.SourceAnalysis[1].ArticleCount != 1 {
		t.Errorf("unexpected second breakdown: %+v", result.SourceAnalysis[1])
	}
}

func TestTimelineEvents(t *testing.T) {
	db := openTestDB(t)

	s1, _ := db.InsertStoryVersion("one", "s", nil, nil, nil)
	s2, _ := db.InsertStoryVersion("two", "s", nil, nil, nil)

	db.InsertAnalytics(&database.StoryAnalytics{
		StoryVersionID: s1.ID,
		Events: []database.StoryEvent{
			{Title: "minor", Importance: 2},
			{Title: "major", Importance: 9},
		},
	})
	db.InsertAnalytics(&database.StoryAnalytics{
		StoryVersionID: s2.ID,
		Events: []database.StoryEvent{
			{Title: "medium", Importance: 5},
		},
	})

	a := New(db, &mockProvider{})
	events, err := a.TimelineEvents(50)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Title != "major" || events[1].Title != "medium" || events[2].Title != "minor" {
		t.Errorf("unexpected ordering: %s, %s, %s", events[0].Title, events[1].Title, events[2].Title)
	}
	if events[0].StoryID != s1.ID {
		t.Error("expected event tagged with its story id")
	}
	if events[0].StoryCreatedAt == "" {
		t.Error("expected story timestamp on merged event")
	}
}

func TestAnalyzeWithoutProvider(t *testing.T) {
	db := openTestDB(t)
	story, _ := db.InsertStoryVersion("text", "summary", nil, nil, nil)

	a := New(db, nil)
	result, err := a.Analyze(context.Background(), story)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result == nil {
		t.Fatal("expected stored row without a provider")
	}
	if result.OverallSentiment != "neutral" {
		t.Errorf("expected neutral default, got %q", result.OverallSentiment)
	}
	if len(result.FactChecks) != 0 || len(result.Events) != 0 {
		t.Error("expected empty lists without a provider")
	}
}
