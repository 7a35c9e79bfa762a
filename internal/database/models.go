package database

import (
	"encoding/json"
	"time"
)

// StoryVersion is one immutable snapshot of the evolving narrative.
type StoryVersion struct {
	ID              int64
	CreatedAt       time.Time
	FullText        string
	Summary         string
	ContextSummary  *string
	SourcesSnapshot *SourcesSnapshot
	TokenStats      *TokenStats
}

// SourceItem records one feed item that contributed to a story version.
type SourceItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	PublishedAt *string `json:"published_at"`
}

// SourcesSnapshot is the immutable record of contributing feed items.
type SourcesSnapshot struct {
	FeedItems []SourceItem `json:"feed_items"`
	ItemCount int          `json:"item_count"`
}

// TokenStats holds token accounting for one generation cycle.
type TokenStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FeedItem is one normalized entry from a feed source.
type FeedItem struct {
	ID          int64
	FeedURL     string
	FeedName    string
	Title       string
	Summary     *string
	Link        string
	PublishedAt time.Time
	FetchedAt   time.Time
	ContentHash string
	Content     *string
	Raw         json.RawMessage
}

// FeedConfiguration is an administrator-managed feed source.
type FeedConfiguration struct {
	ID          int64
	Name        string
	URL         string
	Category    *string
	IsActive    bool
	CreatedAt   time.Time
	LastFetched *time.Time
	FetchError  *string
	Priority    int
}

// SentimentScore is a three-way distribution summing to 1.0.
type SentimentScore struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// BiasScore holds numeric bias metrics.
type BiasScore struct {
	PoliticalLean          string  `json:"political_lean"`
	LeanScore              float64 `json:"lean_score"`
	LoadedLanguageCount    int     `json:"loaded_language_count"`
	EmotionalLanguageScore float64 `json:"emotional_language_score"`
}

// BiasIndicators holds qualitative bias findings.
type BiasIndicators struct {
	LoadedTerms []string `json:"loaded_terms"`
	Omissions   []string `json:"omissions"`
	Framing     string   `json:"framing"`
}

// SourceBreakdown is the per-source sentiment/bias analysis.
type SourceBreakdown struct {
	SourceName   string         `json:"source_name"`
	Sentiment    SentimentScore `json:"sentiment"`
	Bias         BiasScore      `json:"bias"`
	ArticleCount int            `json:"article_count"`
}

// FactCheck is one extracted claim with its verdict.
type FactCheck struct {
	Claim       string   `json:"claim"`
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Sources     []string `json:"sources,omitempty"`
}

// Prediction is one forward-looking scenario.
type Prediction struct {
	Scenario      string   `json:"scenario"`
	Probability   float64  `json:"probability"`
	Timeframe     string   `json:"timeframe"`
	Reasoning     string   `json:"reasoning"`
	RelatedEvents []string `json:"related_events,omitempty"`
}

// StoryEvent is one extracted timeline event.
type StoryEvent struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Timestamp      *string `json:"timestamp"`
	Category       string  `json:"category"`
	Importance     int     `json:"importance"`
	StoryID        int64   `json:"story_id,omitempty"`
	StoryCreatedAt string  `json:"story_created_at,omitempty"`
}

// StoryAnalytics is the derived enrichment of exactly one StoryVersion.
type StoryAnalytics struct {
	ID               int64
	StoryVersionID   int64
	CreatedAt        time.Time
	OverallSentiment string
	SentimentScore   SentimentScore
	BiasScore        BiasScore
	BiasIndicators   BiasIndicators
	SourceAnalysis   []SourceBreakdown
	FactChecks       []FactCheck
	Predictions      []Prediction
	Events           []StoryEvent
}

// GeneratedImage is an AI-generated artifact tied to a story version.
type GeneratedImage struct {
	ID             int64
	CreatedAt      time.Time
	StoryVersionID int64
	Prompt         string
	ImageURL       string
	RevisedPrompt  *string
	Model          string
	Size           string
	Quality        string
}

// Setting is one key/value runtime setting.
type Setting struct {
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalStories    int
	StoriesToday    int
	StoriesThisWeek int
	TotalFeedItems  int
	FeedItemsToday  int
	UniqueSources   int
	TotalFeeds      int
	ActiveFeeds     int
	FeedsWithErrors int
	TotalTokens     int
	AnalyticsRows   int
	GeneratedImages int
}

// TopFeed is a feed name with its item count.
type TopFeed struct {
	Name  string `json:"name"`
	Count int    `json:"item_count"`
}
