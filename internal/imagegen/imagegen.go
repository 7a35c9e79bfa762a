package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/llm"
)

// defaultPrompt is the emergency fallback when no usable prompt can be
// derived from the story.
const defaultPrompt = "A surreal, artistic representation of breaking news, vivid colors, dreamlike quality"

const visualPrompt = `You are an art director creating visual prompts for surrealist news imagery.

Given a news story summary, extract SPECIFIC elements (people, places, objects, events, themes) from the story and transform them into a surreal visual composition.

Your prompt MUST:
1. Identify concrete details from the story (specific names, locations, objects, actions)
2. Transform those specific elements into impossible, dreamlike visual metaphors
3. Combine them in a single surreal scene that would be impossible in reality
4. Use vivid, specific imagery (not generic themes)
5. Be 2-3 sentences describing an impossible but coherent surreal scene
6. Be suitable for image generation

IMPORTANT: Pull actual details from the story summary. If the story mentions a CEO, a hurricane, and a tech product - your scene should surreally merge THOSE specific elements, not generic business/weather imagery.

Do not include text, words, or letters in the image. Focus on transforming the story's specific content into surreal visual metaphors.

Extract specific elements from this story and create a surreal image prompt that impossibly merges them:

%s`

// Generator creates images for story versions via the OpenAI images API,
// with an LLM building the visual prompt.
type Generator struct {
	provider llm.Provider
	apiKey   string
	model    string
	size     string
	quality  string
	client   *http.Client
}

// New creates a Generator. The API key is read from the given environment
// variable.
func New(provider llm.Provider, apiKeyEnv, model, size, quality string) *Generator {
	return &Generator{
		provider: provider,
		apiKey:   os.Getenv(apiKeyEnv),
		model:    model,
		size:     size,
		quality:  quality,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured reports whether the images API key is set.
func (g *Generator) IsConfigured() bool {
	return g.apiKey != ""
}

// Generate creates and returns one image record for a story version.
// The record is not persisted; callers store it via the database layer.
func (g *Generator) Generate(ctx context.Context, story *database.StoryVersion) (*database.GeneratedImage, error) {
	if !g.IsConfigured() {
		return nil, fmt.Errorf("image generation not configured")
	}

	prompt := g.buildPrompt(ctx, story.FullText, story.Summary)
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultPrompt
	}

	log.Printf("Generating image for story %d: %.80s...", story.ID, prompt)

	imageURL, revisedPrompt, err := g.createImage(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &database.GeneratedImage{
		StoryVersionID: story.ID,
		Prompt:         prompt,
		ImageURL:       imageURL,
		RevisedPrompt:  revisedPrompt,
		Model:          g.model,
		Size:           g.size,
		Quality:        g.quality,
	}, nil
}

// buildPrompt asks the LLM for a visual prompt, falling back to a
// keyword-based prompt when the call fails.
func (g *Generator) buildPrompt(ctx context.Context, storyText, storySummary string) string {
	if storyText == "" && storySummary == "" {
		return "A surreal, artistic representation of breaking news emerging from abstract chaos, vivid colors, dreamlike quality"
	}

	summary := storySummary
	if summary == "" {
		summary = storyText
	}
	if len(summary) > 500 {
		summary = summary[:500]
	}
	if g.provider == nil {
		return fallbackPrompt(summary)
	}

	prompt, _, err := g.provider.Generate(ctx, fmt.Sprintf(visualPrompt, summary), llm.Options{
		MaxTokens:   150,
		Temperature: 0.9,
	})
	if err == nil {
		if p := strings.TrimSpace(prompt); p != "" {
			return p
		}
	}
	if err != nil {
		log.Printf("Visual prompt generation failed: %v", err)
	}
	return fallbackPrompt(summary)
}

var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]{3,}\b`)

func fallbackPrompt(summary string) string {
	if len(summary) > 200 {
		summary = summary[:200]
	}
	caps := capitalizedWord.FindAllString(summary, -1)
	if len(caps) > 5 {
		caps = caps[:5]
	}
	if len(caps) > 0 {
		return fmt.Sprintf("A surreal, dreamlike scene impossibly merging: %s, vivid colors, impossible perspective", strings.Join(caps, ", "))
	}
	if len(summary) > 150 {
		summary = summary[:150]
	}
	if summary != "" {
		return fmt.Sprintf("A surreal artistic representation of: %s, dreamlike quality", summary)
	}
	return defaultPrompt
}

func (g *Generator) createImage(ctx context.Context, prompt string) (string, *string, error) {
	body := map[string]any{
		"model":   g.model,
		"prompt":  prompt,
		"size":    g.size,
		"quality": g.quality,
		"n":       1,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/images/generations", bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("images API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("images API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data []struct {
			URL           string  `json:"url"`
			RevisedPrompt *string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", nil, fmt.Errorf("no image in response")
	}

	return result.Data[0].URL, result.Data[0].RevisedPrompt, nil
}
