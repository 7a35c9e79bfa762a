package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/singlnews/singl/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertItem(t *testing.T, db *database.DB, link, title string) int64 {
	t.Helper()
	sum := sha256.Sum256([]byte(link + "|" + title))
	id, err := db.InsertFeedItem(&database.FeedItem{
		FeedURL:     "https://example.com/rss",
		FeedName:    "Example",
		Title:       title,
		Link:        link,
		PublishedAt: time.Now().UTC(),
		ContentHash: hex.EncodeToString(sum[:]),
	})
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	return id
}

func articlePage() string {
	body := strings.Repeat("The negotiations continued late into the night as delegates weighed the proposal. ", 10)
	return fmt.Sprintf(`<html><head><title>Article</title></head>
<body><article><h1>Article</h1><p>%s</p></article></body></html>`, body)
}

func TestFetchMissingStoresContent(t *testing.T) {
	db := openTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage()))
	}))
	t.Cleanup(srv.Close)

	id := insertItem(t, db, srv.URL+"/story", "Headline")

	f := NewContentFetcher(db, 5*time.Second, 50)
	result := f.FetchMissing()
	if result.Fetched != 1 || result.Failed != 0 {
		t.Fatalf("expected one fetch, got %+v", result)
	}

	item, err := db.FeedItemByID(id)
	if err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Content == nil || !strings.Contains(*item.Content, "negotiations") {
		t.Error("expected extracted content stored")
	}

	// Nothing left to fetch.
	again := f.FetchMissing()
	if again.Fetched != 0 || again.Failed != 0 {
		t.Errorf("expected no further work, got %+v", again)
	}
}

func TestFetchMissingMarksFailures(t *testing.T) {
	db := openTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	first := insertItem(t, db, srv.URL+"/gone", "Gone")
	second := insertItem(t, db, srv.URL+"/also-gone", "Also gone")

	f := NewContentFetcher(db, 5*time.Second, 50)
	result := f.FetchMissing()
	// First 404 poisons the domain; the second item is skipped outright.
	if result.Failed != 2 {
		t.Fatalf("expected 2 failures, got %+v", result)
	}

	for _, id := range []int64{first, second} {
		item, _ := db.FeedItemByID(id)
		if item.Content == nil || *item.Content != "" {
			t.Errorf("expected item %d marked attempted with empty content", id)
		}
	}

	// Marked items are not retried.
	again := f.FetchMissing()
	if again.Failed != 0 {
		t.Errorf("expected marked items excluded from retry, got %+v", again)
	}
}
