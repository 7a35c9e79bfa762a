package server

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/singlnews/singl/internal/config"
	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/ingest"
)

// hashToken is the stored form of a session token. Only the hash ever
// touches the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	password := os.Getenv(s.cfg.Admin.PasswordEnv)
	if password == "" {
		writeError(w, http.StatusServiceUnavailable, "Admin access is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := newToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hours := s.cfg.Admin.SessionHours
	if hours < 1 {
		hours = 24
	}
	expiresAt := time.Now().UTC().Add(time.Duration(hours) * time.Hour)

	if err := s.db.InsertSession(hashToken(token), expiresAt); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Message:   "Store this token securely. Use it in the Authorization: Bearer header.",
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"message":       "Valid credentials",
	})
}

// requireAuth guards admin endpoints with a bearer token backed by a
// stored, unexpired session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Missing authentication credentials")
			return
		}

		valid, err := s.db.SessionValid(hashToken(token))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !valid {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r)
	}
}

type feedResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Category    *string    `json:"category"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastFetched *time.Time `json:"last_fetched"`
	FetchError  *string    `json:"fetch_error"`
	Priority    int        `json:"priority"`
}

func newFeedResponse(f *database.FeedConfiguration) feedResponse {
	return feedResponse{
		ID:          f.ID,
		Name:        f.Name,
		URL:         f.URL,
		Category:    f.Category,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		LastFetched: f.LastFetched,
		FetchError:  f.FetchError,
		Priority:    f.Priority,
	}
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	feeds, err := s.db.FeedConfigurations(activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	responses := make([]feedResponse, 0, len(feeds))
	for i := range feeds {
		responses = append(responses, newFeedResponse(&feeds[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

// feedParam resolves the {id} path parameter to a feed configuration.
// A nil return means the response has already been written.
func (s *Server) feedParam(w http.ResponseWriter, r *http.Request) *database.FeedConfiguration {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Feed %s not found", chi.URLParam(r, "id"))
		return nil
	}

	feed, err := s.db.FeedConfigurationByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	if feed == nil {
		writeError(w, http.StatusNotFound, "Feed %d not found", id)
		return nil
	}
	return feed
}

func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	feed := s.feedParam(w, r)
	if feed == nil {
		return
	}
	writeJSON(w, http.StatusOK, newFeedResponse(feed))
}

type createFeedRequest struct {
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Category *string `json:"category"`
	IsActive *bool   `json:"is_active"`
	Priority int     `json:"priority"`
}

func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "Feed name and url are required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	id, err := s.db.InsertFeedConfiguration(req.Name, req.URL, req.Category, isActive, req.Priority)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if id == 0 {
		writeError(w, http.StatusBadRequest, "Feed URL already exists")
		return
	}

	feed, err := s.db.FeedConfigurationByID(id)
	if err != nil || feed == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("Created new feed: %s (%s)", feed.Name, feed.URL)
	writeJSON(w, http.StatusOK, newFeedResponse(feed))
}

type updateFeedRequest struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	Category *string `json:"category"`
	IsActive *bool   `json:"is_active"`
	Priority *int    `json:"priority"`
}

func (s *Server) handleUpdateFeed(w http.ResponseWriter, r *http.Request) {
	feed := s.feedParam(w, r)
	if feed == nil {
		return
	}

	var req updateFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.URL != nil && *req.URL != feed.URL {
		existing, err := s.db.FeedConfigurationByURL(*req.URL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil && existing.ID != feed.ID {
			writeError(w, http.StatusBadRequest, "Feed URL already exists")
			return
		}
		feed.URL = *req.URL
	}
	if req.Name != nil {
		feed.Name = *req.Name
	}
	if req.Category != nil {
		feed.Category = req.Category
	}
	if req.IsActive != nil {
		feed.IsActive = *req.IsActive
	}
	if req.Priority != nil {
		feed.Priority = *req.Priority
	}

	if err := s.db.UpdateFeedConfiguration(feed); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("Updated feed: %s (%d)", feed.Name, feed.ID)
	writeJSON(w, http.StatusOK, newFeedResponse(feed))
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	feed := s.feedParam(w, r)
	if feed == nil {
		return
	}

	if err := s.db.DeleteFeedConfiguration(feed.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("Deleted feed: %s (%d)", feed.Name, feed.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Feed " + strconv.FormatInt(feed.ID, 10) + " deleted successfully",
	})
}

func (s *Server) handleImportDefaults(w http.ResponseWriter, r *http.Request) {
	defaults := make([]ingest.DefaultFeed, 0, len(s.cfg.Feeds))
	for _, f := range s.cfg.Feeds {
		defaults = append(defaults, ingest.DefaultFeed{
			Name:     f.Name,
			URL:      f.URL,
			Category: f.Category,
			Priority: f.Priority,
		})
	}

	imported, err := ingest.ImportDefaults(s.db, defaults)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": imported,
		"skipped":  len(defaults) - imported,
		"total":    len(defaults),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	topFeeds, err := s.db.TopFeeds(10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if topFeeds == nil {
		topFeeds = []database.TopFeed{}
	}

	var latestAt *time.Time
	if latest, err := s.db.LatestStory(); err == nil && latest != nil {
		latestAt = &latest.CreatedAt
	}

	avgTokens := 0
	if stats.TotalStories > 0 {
		avgTokens = stats.TotalTokens / stats.TotalStories
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stories": map[string]any{
			"total":     stats.TotalStories,
			"today":     stats.StoriesToday,
			"this_week": stats.StoriesThisWeek,
			"latest_at": latestAt,
		},
		"feeds": map[string]any{
			"total":          stats.TotalFeeds,
			"active":         stats.ActiveFeeds,
			"inactive":       stats.TotalFeeds - stats.ActiveFeeds,
			"with_errors":    stats.FeedsWithErrors,
			"unique_sources": stats.UniqueSources,
		},
		"feed_items": map[string]any{
			"total": stats.TotalFeedItems,
			"today": stats.FeedItemsToday,
		},
		"ai_usage": map[string]any{
			"total_tokens":         stats.TotalTokens,
			"avg_tokens_per_story": avgTokens,
		},
		"analytics_rows":   stats.AnalyticsRows,
		"generated_images": stats.GeneratedImages,
		"top_feeds":        topFeeds,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.db.AllSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate everything before writing anything.
	for key, value := range values {
		if err := config.ValidateSetting(key, value); err != nil {
			writeError(w, http.StatusBadRequest, "%s", err)
			return
		}
	}

	for key, value := range values {
		if err := s.db.SetSetting(key, value); err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	log.Printf("Updated %d runtime settings", len(values))
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(values)})
}
