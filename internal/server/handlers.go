package server

import (
	"net/http"
	"regexp"
	"time"

	"github.com/singlnews/singl/internal/analytics"
	"github.com/singlnews/singl/internal/broadcast"
	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/quotes"
	"github.com/singlnews/singl/internal/trends"
)

const (
	maxHistoryLimit = 100
	maxQuoteCount   = 10
	previewLength   = 200
)

func (s *Server) handleCurrentStory(w http.ResponseWriter, r *http.Request) {
	story, err := s.db.LatestStory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if story == nil {
		writeError(w, http.StatusNotFound, "No stories available yet")
		return
	}
	writeJSON(w, http.StatusOK, broadcast.NewStoryPayload(story))
}

type storySummary struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Summary   string    `json:"summary"`
	Preview   string    `json:"preview"`
}

func (s *Server) handleStoryHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if limit < 1 {
		limit = 1
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	stories, err := s.db.StoryHistory(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	summaries := make([]storySummary, 0, len(stories))
	for _, story := range stories {
		summaries = append(summaries, storySummary{
			ID:        story.ID,
			CreatedAt: story.CreatedAt,
			Summary:   story.Summary,
			Preview:   preview(story.FullText),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleStoryByID(w http.ResponseWriter, r *http.Request) {
	story := s.storyParam(w, r)
	if story == nil {
		return
	}
	writeJSON(w, http.StatusOK, broadcast.NewStoryPayload(story))
}

func (s *Server) handleStoryQuotes(w http.ResponseWriter, r *http.Request) {
	story := s.storyParam(w, r)
	if story == nil {
		return
	}

	count := queryInt(r, "count", 5)
	if count > maxQuoteCount {
		count = maxQuoteCount
	}

	extracted := quotes.NewExtractor(s.provider).Extract(r.Context(), story.FullText, count)
	writeJSON(w, http.StatusOK, map[string]any{
		"story_id": story.ID,
		"quotes":   extracted,
	})
}

type sourceDetail struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	PublishedAt *string `json:"published_at"`
	Link        *string `json:"link"`
}

func (s *Server) handleStorySources(w http.ResponseWriter, r *http.Request) {
	story := s.storyParam(w, r)
	if story == nil {
		return
	}

	details := make([]sourceDetail, 0)
	if story.SourcesSnapshot != nil {
		for _, item := range story.SourcesSnapshot.FeedItems {
			detail := sourceDetail{
				ID:          item.ID,
				Title:       item.Title,
				Source:      item.Source,
				PublishedAt: item.PublishedAt,
			}
			// The snapshot is immutable and carries no link; resolve it from
			// the live row when it still exists.
			if feedItem, err := s.db.FeedItemByID(item.ID); err == nil && feedItem != nil {
				detail.Link = &feedItem.Link
			}
			details = append(details, detail)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"story_id":   story.ID,
		"item_count": len(details),
		"sources":    details,
	})
}

var capitalizedWords = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

type seoMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	OGTitle       string   `json:"og_title"`
	OGDescription string   `json:"og_description"`
	OGType        string   `json:"og_type"`
	TwitterCard   string   `json:"twitter_card"`
}

func (s *Server) handleStorySEO(w http.ResponseWriter, r *http.Request) {
	story := s.storyParam(w, r)
	if story == nil {
		return
	}

	seen := make(map[string]bool)
	keywords := make([]string, 0)
	for _, word := range capitalizedWords.FindAllString(story.Summary, -1) {
		if seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == 10 {
			break
		}
	}
	keywords = append(keywords, "Singl News", "unified news", "continuous narrative", "news synthesis")

	description := preview(story.FullText)
	writeJSON(w, http.StatusOK, seoMetadata{
		Title:         story.Summary + " - Singl News",
		Description:   description,
		Keywords:      keywords,
		OGTitle:       story.Summary,
		OGDescription: description,
		OGType:        "article",
		TwitterCard:   "summary_large_image",
	})
}

type analyticsResponse struct {
	ID               int64                      `json:"id"`
	StoryVersionID   int64                      `json:"story_version_id"`
	CreatedAt        time.Time                  `json:"created_at"`
	OverallSentiment string                     `json:"overall_sentiment"`
	SentimentScore   database.SentimentScore    `json:"sentiment_score"`
	BiasScore        database.BiasScore         `json:"bias_score"`
	BiasIndicators   database.BiasIndicators    `json:"bias_indicators"`
	SourceAnalysis   []database.SourceBreakdown `json:"source_analysis"`
	FactChecks       []database.FactCheck       `json:"fact_checks"`
	Predictions      []database.Prediction      `json:"predictions"`
	Events           []database.StoryEvent      `json:"events"`
}

func (s *Server) handleStoryAnalytics(w http.ResponseWriter, r *http.Request) {
	story := s.storyParam(w, r)
	if story == nil {
		return
	}

	row, err := analytics.New(s.db, s.provider).ForStory(r.Context(), story.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if row == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics unavailable")
		return
	}

	writeJSON(w, http.StatusOK, analyticsResponse{
		ID:               row.ID,
		StoryVersionID:   row.StoryVersionID,
		CreatedAt:        row.CreatedAt,
		OverallSentiment: row.OverallSentiment,
		SentimentScore:   row.SentimentScore,
		BiasScore:        row.BiasScore,
		BiasIndicators:   row.BiasIndicators,
		SourceAnalysis:   row.SourceAnalysis,
		FactChecks:       row.FactChecks,
		Predictions:      row.Predictions,
		Events:           row.Events,
	})
}

type imageResponse struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	StoryVersionID int64     `json:"story_version_id"`
	Prompt         string    `json:"prompt"`
	ImageURL       string    `json:"image_url"`
	RevisedPrompt  *string   `json:"revised_prompt"`
	Model          string    `json:"model"`
	Size           string    `json:"size"`
	Quality        string    `json:"quality"`
}

func (s *Server) handleStoryImages(w http.ResponseWriter, r *http.Request) {
	story := s.storyParam(w, r)
	if story == nil {
		return
	}

	images, err := s.db.ImagesForStory(story.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	responses := make([]imageResponse, 0, len(images))
	for _, img := range images {
		responses = append(responses, imageResponse{
			ID:             img.ID,
			CreatedAt:      img.CreatedAt,
			StoryVersionID: img.StoryVersionID,
			Prompt:         img.Prompt,
			ImageURL:       img.ImageURL,
			RevisedPrompt:  img.RevisedPrompt,
			Model:          img.Model,
			Size:           img.Size,
			Quality:        img.Quality,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"story_id": story.ID,
		"images":   responses,
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if limit < 1 {
		limit = 1
	}

	events, err := analytics.New(s.db, s.provider).TimelineEvents(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if events == nil {
		events = []database.StoryEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleTrendsSentiment(w http.ResponseWriter, r *http.Request) {
	result, err := trends.New(s.db).Sentiment(queryInt(r, "days", 7), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrendsKeywords(w http.ResponseWriter, r *http.Request) {
	result, err := trends.New(s.db).Keywords(queryInt(r, "days", 7), queryInt(r, "limit", 20), queryInt(r, "min_frequency", 2))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrendsAbsurdity(w http.ResponseWriter, r *http.Request) {
	result, err := trends.New(s.db).Absurdity(queryInt(r, "days", 7), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrendsSources(w http.ResponseWriter, r *http.Request) {
	result, err := trends.New(s.db).Dominance(queryInt(r, "days", 7))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrendsFull(w http.ResponseWriter, r *http.Request) {
	result, err := trends.New(s.db).All(queryInt(r, "days", 7), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type metaResponse struct {
	FeedURLs      []string   `json:"feed_urls"`
	FeedCount     int        `json:"feed_count"`
	UpdateMinutes int        `json:"update_minutes"`
	ContextSteps  int        `json:"context_steps"`
	LastUpdate    *time.Time `json:"last_update"`
	StoryCount    int        `json:"story_count"`
	ModelName     string     `json:"model_name"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	cfg := s.effectiveConfig()

	feeds, err := s.db.FeedConfigurations(true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	urls := make([]string, 0, len(feeds))
	for _, f := range feeds {
		urls = append(urls, f.URL)
	}

	count, err := s.db.StoryCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	meta := metaResponse{
		FeedURLs:      urls,
		FeedCount:     len(urls),
		UpdateMinutes: cfg.Story.UpdateMinutes,
		ContextSteps:  cfg.Story.ContextSteps,
		StoryCount:    count,
		ModelName:     cfg.Generation.Model,
	}
	if latest, err := s.db.LatestStory(); err == nil && latest != nil {
		meta.LastUpdate = &latest.CreatedAt
	}

	writeJSON(w, http.StatusOK, meta)
}

type healthResponse struct {
	Status            string     `json:"status"`
	DatabaseConnected bool       `json:"database_connected"`
	LastStoryAt       *time.Time `json:"last_story_at"`
	StoryCount        int        `json:"story_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.db.StoryCount()
	if err != nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "unhealthy"})
		return
	}

	health := healthResponse{
		Status:            "healthy",
		DatabaseConnected: true,
		StoryCount:        count,
	}
	if latest, err := s.db.LatestStory(); err == nil && latest != nil {
		health.LastStoryAt = &latest.CreatedAt
	}
	writeJSON(w, http.StatusOK, health)
}

func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	return text[:previewLength] + "..."
}
