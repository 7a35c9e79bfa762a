package trends

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/singlnews/singl/internal/database"
)

// TrendPoint is one sample of a metric over time.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	StoryID   int64     `json:"story_id"`
	Label     string    `json:"label"`
}

// SentimentTrends holds per-dimension sentiment series.
type SentimentTrends struct {
	PositiveTrend []TrendPoint    `json:"positive_trend"`
	NegativeTrend []TrendPoint    `json:"negative_trend"`
	NeutralTrend  []TrendPoint    `json:"neutral_trend"`
	OverallTrend  []OverallSample `json:"overall_trend"`
}

// OverallSample tags one story with its dominant sentiment.
type OverallSample struct {
	StoryID   int64                   `json:"story_id"`
	Timestamp time.Time               `json:"timestamp"`
	Sentiment string                  `json:"sentiment"`
	Scores    database.SentimentScore `json:"scores"`
}

// KeywordFrequency counts in how many stories a keyword appears.
type KeywordFrequency struct {
	Keyword string  `json:"keyword"`
	Count   int     `json:"count"`
	Stories []int64 `json:"stories"`
}

// KeywordCloud is the ranked keyword list for a window.
type KeywordCloud struct {
	Keywords      []KeywordFrequency `json:"keywords"`
	TotalKeywords int                `json:"total_keywords"`
	DateRange     *DateRange         `json:"date_range,omitempty"`
}

// AbsurdityPoint scores one story's conflation intensity.
type AbsurdityPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	StoryID        int64     `json:"story_id"`
	AbsurdityScore float64   `json:"absurdity_score"`
	TopQuote       string    `json:"top_quote"`
}

// AbsurdityTrends is the absurdity series with its aggregates.
type AbsurdityTrends struct {
	DataPoints    []AbsurdityPoint `json:"data_points"`
	AverageScore  float64          `json:"average_score"`
	PeakAbsurdity AbsurdityPoint   `json:"peak_absurdity"`
}

// SourceContribution summarizes one feed's share of the narrative.
type SourceContribution struct {
	SourceName   string   `json:"source_name"`
	StoryCount   int      `json:"story_count"`
	ArticleCount int      `json:"article_count"`
	Categories   []string `json:"categories"`
}

// SourceDominance ranks sources by contribution in a window.
type SourceDominance struct {
	Sources      []SourceContribution `json:"sources"`
	TotalStories int                  `json:"total_stories"`
	DateRange    *DateRange           `json:"date_range,omitempty"`
}

// DateRange bounds a trend window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Full bundles every trend analysis for one window.
type Full struct {
	SentimentTrends      *SentimentTrends `json:"sentiment_trends"`
	KeywordCloud         *KeywordCloud    `json:"keyword_cloud"`
	AbsurdityTrends      *AbsurdityTrends `json:"absurdity_trends"`
	SourceDominance      *SourceDominance `json:"source_dominance"`
	DateRange            DateRange        `json:"date_range"`
	TotalStoriesAnalyzed int              `json:"total_stories_analyzed"`
}

// Service computes trend analytics from stored stories and analytics rows.
type Service struct {
	db *database.DB
}

// New creates a trends Service.
func New(db *database.DB) *Service {
	return &Service{db: db}
}

// Sentiment returns sentiment series for stories in the window that have
// analytics, oldest first.
func (s *Service) Sentiment(days, limit int) (*SentimentTrends, error) {
	stories, err := s.storiesInWindow(days, limit)
	if err != nil {
		return nil, err
	}

	trends := &SentimentTrends{
		PositiveTrend: []TrendPoint{},
		NegativeTrend: []TrendPoint{},
		NeutralTrend:  []TrendPoint{},
		OverallTrend:  []OverallSample{},
	}

	for _, story := range stories {
		a, err := s.db.AnalyticsForStory(story.ID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}

		label := story.Summary
		if len(label) > 50 {
			label = label[:50]
		}
		score := a.SentimentScore

		trends.PositiveTrend = append(trends.PositiveTrend, TrendPoint{
			Timestamp: story.CreatedAt, Value: score.Positive, StoryID: story.ID, Label: label,
		})
		trends.NegativeTrend = append(trends.NegativeTrend, TrendPoint{
			Timestamp: story.CreatedAt, Value: score.Negative, StoryID: story.ID, Label: label,
		})
		trends.NeutralTrend = append(trends.NeutralTrend, TrendPoint{
			Timestamp: story.CreatedAt, Value: score.Neutral, StoryID: story.ID, Label: label,
		})
		trends.OverallTrend = append(trends.OverallTrend, OverallSample{
			StoryID: story.ID, Timestamp: story.CreatedAt, Sentiment: a.OverallSentiment, Scores: score,
		})
	}
	return trends, nil
}

var keywordPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "from": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "have": {}, "has": {},
	"had": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "might": {}, "been": {}, "were": {}, "they": {},
	"their": {}, "them": {}, "your": {}, "singl": {}, "story": {},
	"also": {}, "said": {}, "into": {}, "over": {}, "while": {},
	"which": {}, "where": {}, "when": {}, "what": {}, "more": {},
	"than": {}, "same": {}, "about": {}, "after": {}, "before": {},
}

// Keywords builds the keyword cloud: lowercase words of four letters or
// more, stop words removed, counted by distinct story, top 100.
func (s *Service) Keywords(days, limit, minFreq int) (*KeywordCloud, error) {
	stories, err := s.storiesInWindow(days, limit)
	if err != nil {
		return nil, err
	}
	if minFreq < 1 {
		minFreq = 1
	}

	keywordStories := make(map[string][]int64)
	for _, story := range stories {
		text := story.Summary + " " + story.FullText
		seen := make(map[string]struct{})
		for _, word := range keywordPattern.FindAllString(strings.ToLower(text), -1) {
			if _, stop := stopWords[word]; stop {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			keywordStories[word] = append(keywordStories[word], story.ID)
		}
	}

	keywords := make([]KeywordFrequency, 0, len(keywordStories))
	for word, ids := range keywordStories {
		if len(ids) < minFreq {
			continue
		}
		keywords = append(keywords, KeywordFrequency{Keyword: word, Count: len(ids), Stories: ids})
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Keyword < keywords[j].Keyword
	})
	if len(keywords) > 100 {
		keywords = keywords[:100]
	}

	return &KeywordCloud{
		Keywords:      keywords,
		TotalKeywords: len(keywords),
		DateRange:     storyDateRange(stories),
	}, nil
}

// Absurdity scores each analyzed story in the window. The score starts at
// a base of five and climbs with bias extremity, loaded language, and
// dubious claims, capped at ten.
func (s *Service) Absurdity(days, limit int) (*AbsurdityTrends, error) {
	stories, err := s.storiesInWindow(days, limit)
	if err != nil {
		return nil, err
	}

	points := []AbsurdityPoint{}
	total := 0.0

	for _, story := range stories {
		a, err := s.db.AnalyticsForStory(story.ID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}

		absurdity := 5.0
		absurdity += math.Min(math.Abs(a.BiasScore.LeanScore)*2, 2)
		absurdity += math.Min(float64(len(a.BiasIndicators.LoadedTerms))/5, 2)

		dubious := 0
		for _, fc := range a.FactChecks {
			switch fc.Verdict {
			case "unverified", "misleading", "false":
				dubious++
			}
		}
		absurdity += math.Min(float64(dubious)/2, 3)
		absurdity = math.Min(absurdity, 10)
		total += absurdity

		quote := story.Summary
		if len(quote) > 100 {
			quote = quote[:100] + "..."
		}

		points = append(points, AbsurdityPoint{
			Timestamp:      story.CreatedAt,
			StoryID:        story.ID,
			AbsurdityScore: round2(absurdity),
			TopQuote:       quote,
		})
	}

	result := &AbsurdityTrends{DataPoints: points, AverageScore: 5.0}
	if len(points) > 0 {
		result.AverageScore = round2(total / float64(len(points)))
		peak := points[0]
		for _, p := range points[1:] {
			if p.AbsurdityScore > peak.AbsurdityScore {
				peak = p
			}
		}
		result.PeakAbsurdity = peak
	} else {
		result.PeakAbsurdity = AbsurdityPoint{
			Timestamp:      time.Now().UTC(),
			AbsurdityScore: 5.0,
			TopQuote:       "No data available",
		}
	}
	return result, nil
}

// Dominance ranks sources by item volume in the window. Every source
// contributes to every story, so story_count is the window's story total.
func (s *Service) Dominance(days int) (*SourceDominance, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	stories, err := s.db.StoriesSince(cutoff)
	if err != nil {
		return nil, err
	}
	items, err := s.db.FeedItemsFetchedSince(cutoff)
	if err != nil {
		return nil, err
	}
	configs, err := s.db.FeedConfigurations(false)
	if err != nil {
		return nil, err
	}

	configByURL := make(map[string]*database.FeedConfiguration, len(configs))
	for i := range configs {
		configByURL[configs[i].URL] = &configs[i]
	}

	type stats struct {
		count      int
		categories map[string]struct{}
	}
	sourceStats := make(map[string]*stats)
	var order []string

	for _, item := range items {
		st, ok := sourceStats[item.FeedName]
		if !ok {
			st = &stats{categories: make(map[string]struct{})}
			if cfg := configByURL[item.FeedURL]; cfg != nil && cfg.Category != nil {
				st.categories[*cfg.Category] = struct{}{}
			}
			sourceStats[item.FeedName] = st
			order = append(order, item.FeedName)
		}
		st.count++
	}

	sources := make([]SourceContribution, 0, len(order))
	for _, name := range order {
		st := sourceStats[name]
		categories := make([]string, 0, len(st.categories))
		for c := range st.categories {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		sources = append(sources, SourceContribution{
			SourceName:   name,
			StoryCount:   len(stories),
			ArticleCount: st.count,
			Categories:   categories,
		})
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].ArticleCount > sources[j].ArticleCount
	})

	return &SourceDominance{
		Sources:      sources,
		TotalStories: len(stories),
		DateRange:    storyDateRange(stories),
	}, nil
}

// All computes every trend analysis for one window.
func (s *Service) All(days, limit int) (*Full, error) {
	sentiment, err := s.Sentiment(days, limit)
	if err != nil {
		return nil, err
	}
	keywords, err := s.Keywords(days, limit, 2)
	if err != nil {
		return nil, err
	}
	absurdity, err := s.Absurdity(days, limit)
	if err != nil {
		return nil, err
	}
	dominance, err := s.Dominance(days)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stories, err := s.storiesInWindow(days, 0)
	if err != nil {
		return nil, err
	}

	return &Full{
		SentimentTrends:      sentiment,
		KeywordCloud:         keywords,
		AbsurdityTrends:      absurdity,
		SourceDominance:      dominance,
		DateRange:            DateRange{Start: now.AddDate(0, 0, -days), End: now},
		TotalStoriesAnalyzed: len(stories),
	}, nil
}

func (s *Service) storiesInWindow(days, limit int) ([]database.StoryVersion, error) {
	if days < 1 {
		days = 1
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	stories, err := s.db.StoriesSince(cutoff)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(stories) > limit {
		stories = stories[:limit]
	}
	return stories, nil
}

func storyDateRange(stories []database.StoryVersion) *DateRange {
	if len(stories) == 0 {
		return nil
	}
	r := &DateRange{Start: stories[0].CreatedAt, End: stories[0].CreatedAt}
	for _, story := range stories[1:] {
		if story.CreatedAt.Before(r.Start) {
			r.Start = story.CreatedAt
		}
		if story.CreatedAt.After(r.End) {
			r.End = story.CreatedAt
		}
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
