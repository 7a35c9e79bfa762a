package quotes

import (
	"context"
	"strings"
	"testing"

	"github.com/singlnews/singl/internal/llm"
)

type mockProvider struct {
	response string
	fail     bool
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ llm.Options) (string, llm.Usage, error) {
	if m.fail {
		return "", llm.Usage{}, context.DeadlineExceeded
	}
	return m.response, llm.Usage{}, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

const storyText = `The President of France scored the winning goal while Tesla announced quarterly earnings from the summit podium in Geneva. Meanwhile the hurricane, which analysts at Goldman Sachs had rated a strong buy, made landfall during the opera's second act. Nothing else happened. Short.`

func TestExtractFromArray(t *testing.T) {
	p := &mockProvider{response: `[{"text": "The hurricane was rated a strong buy.", "category": "business", "absurdity_score": 9, "keywords": ["hurricane", "buy"]}]`}
	e := NewExtractor(p)

	quotes := e.Extract(context.Background(), storyText, 5)
	if len(quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(quotes))
	}
	if quotes[0].AbsurdityScore != 9 || quotes[0].Category != "business" {
		t.Errorf("unexpected quote: %+v", quotes[0])
	}
}

func TestExtractFromWrappedObject(t *testing.T) {
	p := &mockProvider{response: `{"quotes": [{"text": "q1", "category": "general", "absurdity_score": 5}, {"text": "q2", "category": "general", "absurdity_score": 3}]}`}
	e := NewExtractor(p)

	quotes := e.Extract(context.Background(), storyText, 1)
	// Count clamps the result.
	if len(quotes) != 1 || quotes[0].Text != "q1" {
		t.Fatalf("expected clamped single quote, got %+v", quotes)
	}
}

func TestExtractFallsBackOnProviderError(t *testing.T) {
	e := NewExtractor(&mockProvider{fail: true})

	quotes := e.Extract(context.Background(), storyText, 5)
	if len(quotes) == 0 {
		t.Fatal("expected heuristic quotes")
	}
	// Highest proper-noun density first.
	for i := 1; i < len(quotes); i++ {
		if quotes[i].AbsurdityScore > quotes[i-1].AbsurdityScore {
			t.Error("expected descending absurdity order")
		}
	}
	for _, q := range quotes {
		if len(q.Text) <= 50 || len(q.Text) >= 200 {
			t.Errorf("quote outside length bounds: %q", q.Text)
		}
		if q.Category != "general" {
			t.Errorf("expected general category, got %q", q.Category)
		}
	}
}

func TestExtractFallsBackOnGarbage(t *testing.T) {
	e := NewExtractor(&mockProvider{response: "I cannot help with that."})

	quotes := e.Extract(context.Background(), storyText, 3)
	if len(quotes) == 0 {
		t.Fatal("expected heuristic fallback on unparseable response")
	}
}

func TestShareTextTwitter(t *testing.T) {
	q := Quote{Text: "The hurricane was rated a strong buy."}
	got := ShareText(q, "twitter")
	if !strings.HasPrefix(got, "From THE STORY:") {
		t.Errorf("unexpected prefix: %q", got)
	}
	if !strings.HasSuffix(got, "#SinglNews") {
		t.Errorf("expected hashtag suffix: %q", got)
	}
	if len(got) > 280 {
		t.Errorf("tweet too long: %d", len(got))
	}
}

func TestShareTextTwitterTruncates(t *testing.T) {
	q := Quote{Text: strings.Repeat("very long quote ", 30)}
	got := ShareText(q, "twitter")
	if len(got) > 280 {
		t.Errorf("tweet too long: %d", len(got))
	}
	if !strings.Contains(got, "...") {
		t.Error("expected truncation ellipsis")
	}
}

func TestShareTextGeneric(t *testing.T) {
	q := Quote{Text: "quote"}
	got := ShareText(q, "facebook")
	if !strings.Contains(got, "THE STORY at Singl News") {
		t.Errorf("unexpected share text: %q", got)
	}
}

func TestExtractWithoutProvider(t *testing.T) {
	e := NewExtractor(nil)

	quotes := e.Extract(context.Background(), storyText, 3)
	if len(quotes) == 0 {
		t.Fatal("expected heuristic quotes without a provider")
	}
}
