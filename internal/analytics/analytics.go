package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/llm"
)

const (
	// analysisInputLimit caps the story text fed to each analysis call.
	analysisInputLimit = 3000
	// timelineEventCap bounds the merged timeline.
	timelineEventCap = 100
)

// Analyzer derives enrichment data for story versions. Every sub-analysis
// degrades to a neutral default rather than failing the whole run.
type Analyzer struct {
	db       *database.DB
	provider llm.Provider
}

// New creates an Analyzer.
func New(db *database.DB, provider llm.Provider) *Analyzer {
	return &Analyzer{db: db, provider: provider}
}

// ForStory returns the analytics for a story, generating them on first
// request. Returns (nil, nil) when generation lost a race and the winning
// row could not be read back.
func (a *Analyzer) ForStory(ctx context.Context, storyID int64) (*database.StoryAnalytics, error) {
	existing, err := a.db.AnalyticsForStory(storyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	story, err := a.db.StoryByID(storyID)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, fmt.Errorf("story %d not found", storyID)
	}
	return a.Analyze(ctx, story)
}

// Analyze runs the full analysis battery for one story version and stores
// the result. Re-analyzing an already analyzed story returns the stored row.
func (a *Analyzer) Analyze(ctx context.Context, story *database.StoryVersion) (*database.StoryAnalytics, error) {
	existing, err := a.db.AnalyticsForStory(story.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("Analytics already exist for story %d", story.ID)
		return existing, nil
	}

	log.Printf("Analyzing story %d", story.ID)

	overall, sentiment := a.analyzeSentiment(ctx, story.FullText)
	biasScore, biasIndicators := a.analyzeBias(ctx, story.FullText)
	sources := a.analyzeSources(ctx, story)
	facts := a.extractFactChecks(ctx, story.FullText)
	predictions := a.generatePredictions(ctx, story.FullText)
	events := a.extractEvents(ctx, story.FullText)

	return a.db.InsertAnalytics(&database.StoryAnalytics{
		StoryVersionID:   story.ID,
		OverallSentiment: overall,
		SentimentScore:   sentiment,
		BiasScore:        biasScore,
		BiasIndicators:   biasIndicators,
		SourceAnalysis:   sources,
		FactChecks:       facts,
		Predictions:      predictions,
		Events:           events,
	})
}

func neutralSentiment() (string, database.SentimentScore) {
	return "neutral", database.SentimentScore{Positive: 0.33, Negative: 0.33, Neutral: 0.34}
}

func unknownBias() database.BiasScore {
	return database.BiasScore{PoliticalLean: "unknown"}
}

func (a *Analyzer) analyzeSentiment(ctx context.Context, text string) (string, database.SentimentScore) {
	result := a.queryJSON(ctx, sentimentPrompt, text, 500, 0.3)
	if result == nil {
		log.Println("Sentiment analysis failed, using neutral default")
		return neutralSentiment()
	}

	overall, _ := result["overall"].(string)
	if overall == "" {
		overall = "neutral"
	}

	var score database.SentimentScore
	if !decodeField(result, "score", &score) {
		_, score = neutralSentiment()
	}
	return overall, score
}

func (a *Analyzer) analyzeBias(ctx context.Context, text string) (database.BiasScore, database.BiasIndicators) {
	indicators := database.BiasIndicators{LoadedTerms: []string{}, Omissions: []string{}}

	result := a.queryJSON(ctx, biasPrompt, text, 800, 0.3)
	if result == nil {
		log.Println("Bias analysis failed, using unknown default")
		indicators.Framing = "Analysis unavailable"
		return unknownBias(), indicators
	}

	score := unknownBias()
	decodeField(result, "score", &score)
	if score.PoliticalLean == "" {
		score.PoliticalLean = "unknown"
	}
	decodeField(result, "indicators", &indicators)
	return score, indicators
}

// analyzeSources analyzes sentiment and bias per contributing source,
// grouping the snapshot's items by feed name.
func (a *Analyzer) analyzeSources(ctx context.Context, story *database.StoryVersion) []database.SourceBreakdown {
	if story.SourcesSnapshot == nil || len(story.SourcesSnapshot.FeedItems) == 0 {
		return nil
	}

	sourceIDs := make(map[string][]int64)
	var order []string
	for _, item := range story.SourcesSnapshot.FeedItems {
		source := item.Source
		if source == "" {
			source = "Unknown"
		}
		if _, seen := sourceIDs[source]; !seen {
			order = append(order, source)
		}
		sourceIDs[source] = append(sourceIDs[source], item.ID)
	}

	var results []database.SourceBreakdown
	for _, source := range order {
		items, err := a.db.FeedItemsByIDs(sourceIDs[source])
		if err != nil {
			log.Printf("Loading items for source %s: %v", source, err)
			continue
		}

		var parts []string
		for _, item := range items {
			text := item.Title
			if item.Summary != nil {
				text += "\n" + *item.Summary
			}
			parts = append(parts, text)
		}
		combined := strings.TrimSpace(strings.Join(parts, "\n\n"))
		if combined == "" {
			continue
		}

		_, sentiment := a.analyzeSentiment(ctx, combined)
		bias, _ := a.analyzeBias(ctx, combined)

		results = append(results, database.SourceBreakdown{
			SourceName:   source,
			Sentiment:    sentiment,
			Bias:         bias,
			ArticleCount: len(items),
		})
	}
	return results
}

func (a *Analyzer) extractFactChecks(ctx context.Context, text string) []database.FactCheck {
	result := a.queryJSON(ctx, factCheckPrompt, text, 1500, 0.3)
	var facts []database.FactCheck
	if result != nil {
		decodeField(result, "fact_checks", &facts)
	}
	return facts
}

func (a *Analyzer) generatePredictions(ctx context.Context, text string) []database.Prediction {
	result := a.queryJSON(ctx, predictionsPrompt, text, 1500, 0.7)
	var predictions []database.Prediction
	if result != nil {
		decodeField(result, "predictions", &predictions)
	}
	return predictions
}

func (a *Analyzer) extractEvents(ctx context.Context, text string) []database.StoryEvent {
	result := a.queryJSON(ctx, eventsPrompt, text, 1200, 0.3)
	var events []database.StoryEvent
	if result != nil {
		decodeField(result, "events", &events)
	}
	return events
}

func (a *Analyzer) queryJSON(ctx context.Context, prompt, text string, maxTokens int, temperature float64) map[string]any {
	if a.provider == nil {
		return nil
	}
	if len(text) > analysisInputLimit {
		text = text[:analysisInputLimit]
	}

	response, _, err := a.provider.Generate(ctx, fmt.Sprintf(prompt, text), llm.Options{
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		log.Printf("Analysis call failed: %v", err)
		return nil
	}
	return llm.ParseJSONResponse(response)
}

// decodeField re-marshals a loosely typed response field into dst.
func decodeField(result map[string]any, key string, dst any) bool {
	value, ok := result[key]
	if !ok || value == nil {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// TimelineEvents merges events from recent analytics rows into one
// timeline, tagged with their story, sorted by importance then recency.
func (a *Analyzer) TimelineEvents(limit int) ([]database.StoryEvent, error) {
	recent, err := a.db.RecentAnalytics(limit)
	if err != nil {
		return nil, err
	}

	var all []database.StoryEvent
	for _, row := range recent {
		for _, event := range row.Events {
			event.StoryID = row.StoryVersionID
			event.StoryCreatedAt = row.CreatedAt.UTC().Format(time.RFC3339)
			all = append(all, event)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Importance != all[j].Importance {
			return all[i].Importance > all[j].Importance
		}
		return all[i].StoryCreatedAt > all[j].StoryCreatedAt
	})

	if len(all) > timelineEventCap {
		all = all[:timelineEventCap]
	}
	return all, nil
}
