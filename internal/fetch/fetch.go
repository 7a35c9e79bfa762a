package fetch

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/singlnews/singl/internal/database"
)

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// ContentFetcher pulls full article text for stored feed items via HTTP
// and readability extraction. Items are marked attempted even on failure
// so they are not retried forever.
type ContentFetcher struct {
	db     *database.DB
	client *http.Client
	limit  int
}

// NewContentFetcher creates a new content fetcher. Limit caps how many
// items one run processes.
func NewContentFetcher(db *database.DB, timeout time.Duration, limit int) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if limit <= 0 {
		limit = 50
	}
	return &ContentFetcher{
		db:    db,
		limit: limit,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissing fetches full text for items without content. When one
// domain errors, the remaining items from that domain are skipped for
// this run.
func (f *ContentFetcher) FetchMissing() *Result {
	items, err := f.db.FeedItemsNeedingContent(f.limit)
	if err != nil {
		log.Printf("Error listing items needing content: %v", err)
		return &Result{}
	}

	if len(items) == 0 {
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, item := range items {
		u, _ := url.Parse(item.Link)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.db.UpdateFeedItemContent(item.ID, "")
			result.Failed++
			continue
		}

		content, httpErr := f.fetchItemContent(item.Link)
		if httpErr != nil {
			f.db.UpdateFeedItemContent(item.ID, "")
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s — skipping remaining from %s", item.Link, domain)
			continue
		}

		if content != "" {
			f.db.UpdateFeedItemContent(item.ID, content)
			result.Fetched++
			log.Printf("Fetched content for: %s", item.Title)
		} else {
			f.db.UpdateFeedItemContent(item.ID, "")
			result.Failed++
			log.Printf("No extractable content from: %s", item.Link)
		}
	}

	log.Printf("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

func (f *ContentFetcher) fetchItemContent(itemURL string) (string, error) {
	req, err := http.NewRequest("GET", itemURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "singl/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(itemURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
