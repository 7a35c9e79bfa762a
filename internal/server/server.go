package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/singlnews/singl/internal/broadcast"
	"github.com/singlnews/singl/internal/config"
	"github.com/singlnews/singl/internal/database"
	"github.com/singlnews/singl/internal/llm"
)

var md = goldmark.New()

// Server is the HTTP API for the story service.
type Server struct {
	db       *database.DB
	cfg      *config.Config
	provider llm.Provider
	hub      *broadcast.Hub
	router   chi.Router
	page     *template.Template
}

// New creates a Server. The hub may be nil; the live stream endpoint then
// serves only the initial snapshot.
func New(db *database.DB, cfg *config.Config, provider llm.Provider, hub *broadcast.Hub) *Server {
	s := &Server{
		db:       db,
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		router:   chi.NewRouter(),
		page:     template.Must(template.New("index").Parse(indexTemplate)),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/ws/story", s.handleStorySocket)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/story/current", s.handleCurrentStory)
		r.Get("/story/history", s.handleStoryHistory)
		r.Get("/story/{id}", s.handleStoryByID)
		r.Get("/story/{id}/quotes", s.handleStoryQuotes)
		r.Get("/story/{id}/sources", s.handleStorySources)
		r.Get("/story/{id}/seo", s.handleStorySEO)
		r.Get("/story/{id}/analytics", s.handleStoryAnalytics)
		r.Get("/story/{id}/images", s.handleStoryImages)
		r.Get("/analytics/timeline", s.handleTimeline)
		r.Get("/trends/sentiment", s.handleTrendsSentiment)
		r.Get("/trends/keywords", s.handleTrendsKeywords)
		r.Get("/trends/absurdity", s.handleTrendsAbsurdity)
		r.Get("/trends/sources", s.handleTrendsSources)
		r.Get("/trends/full", s.handleTrendsFull)
		r.Get("/meta", s.handleMeta)
		r.Get("/health", s.handleHealth)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/verify", s.requireAuth(s.handleVerify))

		r.Get("/feeds", s.requireAuth(s.handleListFeeds))
		r.Post("/feeds", s.requireAuth(s.handleCreateFeed))
		r.Post("/feeds/import-defaults", s.requireAuth(s.handleImportDefaults))
		r.Get("/feeds/{id}", s.requireAuth(s.handleGetFeed))
		r.Put("/feeds/{id}", s.requireAuth(s.handleUpdateFeed))
		r.Delete("/feeds/{id}", s.requireAuth(s.handleDeleteFeed))

		r.Get("/stats", s.requireAuth(s.handleStats))
		r.Get("/settings", s.requireAuth(s.handleGetSettings))
		r.Put("/settings", s.requireAuth(s.handlePutSettings))
	})
}

// effectiveConfig overlays stored runtime settings onto the static config,
// mirroring what the scheduler does at the start of each cycle.
func (s *Server) effectiveConfig() *config.Config {
	overrides, err := s.db.AllSettings()
	if err != nil {
		return s.cfg
	}
	return s.cfg.ApplyOverrides(overrides)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encoding response failed: %v", err)
	}
}

// writeError emits the error envelope used for every non-2xx response.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// queryInt reads an integer query parameter, falling back to a default on
// absence or garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// storyParam resolves the {id} path parameter to a stored story version.
// A nil return means the response has already been written.
func (s *Server) storyParam(w http.ResponseWriter, r *http.Request) *database.StoryVersion {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Story %s not found", chi.URLParam(r, "id"))
		return nil
	}

	story, err := s.db.StoryByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	if story == nil {
		writeError(w, http.StatusNotFound, "Story %d not found", id)
		return nil
	}
	return story
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: Georgia, serif; line-height: 1.6; }
header { border-bottom: 3px double #222; margin-bottom: 1.5rem; }
h1 { margin-bottom: 0.25rem; }
.meta { color: #666; font-size: 0.9rem; }
</style>
</head>
<body>
<header>
<h1>THE STORY</h1>
<p class="meta">{{.Subtitle}}</p>
</header>
<main>
{{if .Story}}
<article>{{.Story}}</article>
{{else}}
<p>No stories available yet. The first story is being generated.</p>
{{end}}
</main>
</body>
</html>
`

type indexData struct {
	Title       string
	Description string
	Subtitle    string
	Story       template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	data := indexData{
		Title:       "Singl News",
		Description: "The world's only unified continuous news story",
		Subtitle:    "All of the news. One story.",
	}

	story, err := s.db.LatestStory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if story != nil {
		data.Title = story.Summary + " - Singl News"
		data.Subtitle = "Version " + strconv.FormatInt(story.ID, 10) + " · " + story.CreatedAt.Format("2 Jan 2006 15:04 UTC")
		data.Story = renderMarkdown(story.FullText)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		log.Printf("Error rendering index page: %v", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, cfg *config.Config, provider llm.Provider, hub *broadcast.Hub) error {
	srv := New(db, cfg, provider, hub)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on http://localhost%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
