package llm

import (
	"testing"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	text := "```json\n{\"key\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseWithPlainFence(t *testing.T) {
	text := "```\n{\"key\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseSalvage(t *testing.T) {
	text := `Here is the analysis you asked for: {"sentiment": "neutral"} Hope that helps!`
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected salvaged object")
	}
	if result["sentiment"] != "neutral" {
		t.Errorf("expected sentiment='neutral', got %v", result["sentiment"])
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	result := ParseJSONResponse("not json at all")
	if result != nil {
		t.Error("expected nil for invalid JSON")
	}
}

func TestParseJSONResponseEmpty(t *testing.T) {
	result := ParseJSONResponse("")
	if result != nil {
		t.Error("expected nil for empty string")
	}
}

func TestParseJSONListPlain(t *testing.T) {
	result := ParseJSONList(`[{"quote": "a"}, {"quote": "b"}]`)
	if len(result) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result))
	}
}

func TestParseJSONListSalvage(t *testing.T) {
	text := "Sure! ```json\n[\"one\", \"two\"]\n``` as requested."
	result := ParseJSONList(text)
	if len(result) != 2 || result[0] != "one" {
		t.Errorf("expected salvaged list, got %v", result)
	}
}

func TestUsageAdd(t *testing.T) {
	var total Usage
	total.Add(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	total.Add(Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	if total.TotalTokens != 18 || total.PromptTokens != 11 {
		t.Errorf("unexpected totals: %+v", total)
	}
}
