package imagegen

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

func TestBuildPromptUsesProvider(t *testing.T) {
	g := New(&mockProvider{response: "A melting clock presides over the summit."}, "UNSET_ENV", "dall-e-3", "1024x1024", "standard")

	got := g.buildPrompt(context.Background(), "full text", "the summary")
	if got != "A melting clock presides over the summit." {
		t.Errorf("unexpected prompt: %q", got)
	}
}

func TestBuildPromptFallsBackToCapitalizedWords(t *testing.T) {
	g := New(&mockProvider{fail: true}, "UNSET_ENV", "dall-e-3", "1024x1024", "standard")

	got := g.buildPrompt(context.Background(), "", "President Martin opened the Geneva Summit while Tesla watched")
	if !strings.Contains(got, "impossibly merging") {
		t.Errorf("expected keyword fallback, got %q", got)
	}
	if !strings.Contains(got, "Geneva") {
		t.Errorf("expected extracted proper noun, got %q", got)
	}
}

func TestBuildPromptEmptyInputs(t *testing.T) {
	g := New(&mockProvider{fail: true}, "UNSET_ENV", "dall-e-3", "1024x1024", "standard")

	got := g.buildPrompt(context.Background(), "", "")
	if !strings.Contains(got, "surreal") {
		t.Errorf("expected default prompt, got %q", got)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	g := New(&mockProvider{}, "SINGL_TEST_NO_SUCH_KEY", "dall-e-3", "1024x1024", "standard")
	if g.IsConfigured() {
		t.Fatal("expected unconfigured generator")
	}
}

func TestFallbackPromptNoCapitalizedWords(t *testing.T) {
	got := fallbackPrompt("nothing notable happened anywhere today at all")
	if !strings.Contains(got, "surreal artistic representation") {
		t.Errorf("expected summary-based fallback, got %q", got)
	}
}

func TestBuildPromptWithoutProvider(t *testing.T) {
	g := New(nil, "UNSET_ENV", "dall-e-3", "1024x1024", "standard")

	got := g.buildPrompt(context.Background(), "", "President Martin opened the Geneva Summit")
	if !strings.Contains(got, "Geneva") {
		t.Errorf("expected keyword fallback, got %q", got)
	}
}
