package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/singlnews/singl/internal/llm"
)

// Quote is one shareable snippet extracted from a story version.
type Quote struct {
	Text           string   `json:"text"`
	Category       string   `json:"category"`
	AbsurdityScore int      `json:"absurdity_score"`
	Keywords       []string `json:"keywords"`
}

const extractPrompt = `Extract %d of the most absurd, shareable, "out of context" quotes from this news story.

Story:
%s

For each quote:
1. It should be a complete sentence or short passage (15-40 words ideal)
2. It should sound surreal or impossible when read alone
3. It should highlight contradictions or absurd juxtapositions
4. It should be specific (include concrete names, numbers, places)

Return JSON array with format:
[
  {
    "text": "The exact quote from the story",
    "category": "One of: technology, politics, sports, climate, business, general",
    "absurdity_score": 1-10 (10 being most absurd),
    "keywords": ["key", "words", "for", "seo"]
  }
]

Prioritize quotes that would make someone do a double-take on social media.`

// Extractor pulls quotable snippets from story text.
type Extractor struct {
	provider llm.Provider
}

// NewExtractor creates an Extractor.
func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract returns up to count quotes from the story text. Provider failure
// falls back to a proper-noun heuristic so the endpoint always answers.
func (e *Extractor) Extract(ctx context.Context, storyText string, count int) []Quote {
	if count < 1 {
		count = 1
	}
	if e.provider == nil {
		return fallbackQuotes(storyText, count)
	}

	response, _, err := e.provider.Generate(ctx, fmt.Sprintf(extractPrompt, count, storyText), llm.Options{
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		log.Printf("Quote extraction failed, using heuristic fallback: %v", err)
		return fallbackQuotes(storyText, count)
	}

	quotes := parseQuotes(response)
	if len(quotes) == 0 {
		return fallbackQuotes(storyText, count)
	}
	if len(quotes) > count {
		quotes = quotes[:count]
	}
	return quotes
}

// parseQuotes accepts either a bare array or an object wrapping one under
// a "quotes" key.
func parseQuotes(response string) []Quote {
	var quotes []Quote

	if list := llm.ParseJSONList(response); list != nil {
		data, _ := json.Marshal(list)
		json.Unmarshal(data, &quotes)
		return quotes
	}

	if obj := llm.ParseJSONResponse(response); obj != nil {
		if wrapped, ok := obj["quotes"]; ok {
			data, _ := json.Marshal(wrapped)
			json.Unmarshal(data, &quotes)
		}
	}
	return quotes
}

var properNoun = regexp.MustCompile(`\b[A-Z][a-z]+`)
var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// fallbackQuotes scores sentences by proper-noun density. Sentences packed
// with names tend to be the most striking conflations.
func fallbackQuotes(storyText string, count int) []Quote {
	sentences := sentenceSplit.Split(storyText, -1)

	var quotes []Quote
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= 50 || len(sentence) >= 200 {
			continue
		}
		caps := properNoun.FindAllString(sentence, -1)
		if len(caps) < 3 {
			continue
		}
		keywords := caps
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		quotes = append(quotes, Quote{
			Text:           sentence,
			Category:       "general",
			AbsurdityScore: len(caps),
			Keywords:       keywords,
		})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].AbsurdityScore > quotes[j].AbsurdityScore
	})
	if len(quotes) > count {
		quotes = quotes[:count]
	}
	return quotes
}

// ShareText formats a quote for a social platform.
func ShareText(q Quote, platform string) string {
	switch platform {
	case "twitter":
		const prefix = "From THE STORY:"
		const hashtag = "#SinglNews"
		maxLength := 280 - len(hashtag) - 1

		if len(prefix)+len(q.Text)+3 <= maxLength {
			return fmt.Sprintf("%s %q %s", prefix, q.Text, hashtag)
		}
		available := maxLength - len(prefix) - 3 - 3
		return fmt.Sprintf("%s %q %s", prefix, q.Text[:available]+"...", hashtag)
	case "reddit":
		return fmt.Sprintf("%q\n\nFrom THE STORY - the world's only unified continuous news narrative\n\nhttps://singl.news", q.Text)
	default:
		return fmt.Sprintf("%q\n\n— THE STORY at Singl News\nhttps://singl.news", q.Text)
	}
}
