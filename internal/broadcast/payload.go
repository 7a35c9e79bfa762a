package broadcast

import (
	"encoding/json"
	"time"

	"github.com/singlnews/singl/internal/database"
)

// StoryPayload is the wire representation of a story version, shared by
// the REST API and the live update stream.
type StoryPayload struct {
	ID              int64                     `json:"id"`
	CreatedAt       time.Time                 `json:"created_at"`
	FullText        string                    `json:"full_text"`
	Summary         string                    `json:"summary"`
	ContextSummary  *string                   `json:"context_summary"`
	SourcesSnapshot *database.SourcesSnapshot `json:"sources_snapshot"`
	TokenStats      *database.TokenStats      `json:"token_stats"`
}

// NewStoryPayload converts a stored version to its wire form. Nil in,
// nil out.
func NewStoryPayload(v *database.StoryVersion) *StoryPayload {
	if v == nil {
		return nil
	}
	return &StoryPayload{
		ID:              v.ID,
		CreatedAt:       v.CreatedAt,
		FullText:        v.FullText,
		Summary:         v.Summary,
		ContextSummary:  v.ContextSummary,
		SourcesSnapshot: v.SourcesSnapshot,
		TokenStats:      v.TokenStats,
	}
}

// StoryMessage encodes a typed story envelope for the live stream.
// The story field is null when no version exists yet.
func StoryMessage(msgType string, v *database.StoryVersion) []byte {
	data, _ := json.Marshal(map[string]any{
		"type":  msgType,
		"story": NewStoryPayload(v),
	})
	return data
}
