package story

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/singlnews/singl/internal/llm"
)

const (
	// summaryInputLimit caps how much story text feeds the summary call.
	summaryInputLimit = 2000
	// contextInputLimit caps the combined text fed to context compaction.
	contextInputLimit = 8000
	// contextFallbackLimit is the truncation length when compaction fails.
	contextFallbackLimit = 2000
)

// Writer turns narrative context and new events into the next story
// segment via an LLM provider.
type Writer struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
}

// NewWriter creates a Writer around a configured provider.
func NewWriter(provider llm.Provider, maxTokens int, temperature float64) *Writer {
	return &Writer{provider: provider, maxTokens: maxTokens, temperature: temperature}
}

// Continuation is the output of one story generation call.
type Continuation struct {
	Story   string
	Summary string
	Usage   llm.Usage
}

// ContinueStory generates the next story segment and its one-sentence
// summary. A failed summary call falls back to the story's first sentence.
func (w *Writer) ContinueStory(ctx context.Context, narrativeContext, recentExcerpts, newEvents string) (*Continuation, error) {
	if w.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	prompt := fmt.Sprintf(continuationPrompt, narrativeContext, recentExcerpts, newEvents)

	text, usage, err := w.provider.Generate(ctx, prompt, llm.Options{
		MaxTokens:   w.maxTokens,
		Temperature: w.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generating story continuation: %w", err)
	}

	story := strings.TrimSpace(text)
	if story == "" {
		return nil, fmt.Errorf("provider returned empty story")
	}

	summary, summaryUsage := w.summarize(ctx, story)
	usage.Add(summaryUsage)

	return &Continuation{Story: story, Summary: summary, Usage: usage}, nil
}

func (w *Writer) summarize(ctx context.Context, storyText string) (string, llm.Usage) {
	input := truncate(storyText, summaryInputLimit)
	text, usage, err := w.provider.Generate(ctx, fmt.Sprintf(summaryPrompt, input), llm.Options{
		MaxTokens:   100,
		Temperature: 0.5,
	})
	if err == nil {
		if s := strings.TrimSpace(text); s != "" {
			return s, usage
		}
	}
	if err != nil {
		log.Printf("Summary generation failed, using first sentence: %v", err)
	}
	return firstSentence(storyText), usage
}

// ContextSummary compresses several story texts into one compact context
// block. On provider failure the joined input is truncated instead.
func (w *Writer) ContextSummary(ctx context.Context, storyTexts []string) (string, llm.Usage) {
	combined := strings.Join(storyTexts, "\n\n")
	if w.provider == nil {
		return truncate(combined, contextFallbackLimit), llm.Usage{}
	}
	input := truncate(combined, contextInputLimit)

	text, usage, err := w.provider.Generate(ctx, fmt.Sprintf(contextSummaryPrompt, input), llm.Options{
		MaxTokens:   1000,
		Temperature: 0.5,
	})
	if err != nil {
		log.Printf("Context summary failed, truncating instead: %v", err)
		return truncate(combined, contextFallbackLimit), usage
	}

	summary := strings.TrimSpace(text)
	if summary == "" {
		return truncate(combined, contextFallbackLimit), usage
	}
	return summary, usage
}

func firstSentence(text string) string {
	if idx := strings.Index(text, ". "); idx >= 0 {
		return text[:idx+1]
	}
	if len(text) > 150 {
		return text[:150] + "..."
	}
	return text
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
