package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/singlnews/singl/internal/database"
)

// maxPerFeed caps how many entries one fetch takes from a single feed.
const maxPerFeed = 50

// Result summarizes one ingestion pass.
type Result struct {
	FeedsFetched int
	FeedsFailed  int
	ItemsFound   int
	ItemsNew     int
}

// Ingestor pulls configured feeds and stores deduplicated items.
type Ingestor struct {
	db          *database.DB
	concurrency int
}

// New creates an Ingestor. Concurrency bounds the number of feeds fetched
// in parallel.
func New(db *database.DB, concurrency int) *Ingestor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingestor{db: db, concurrency: concurrency}
}

// Run fetches every active feed and stores new items. A failing feed is
// recorded on its configuration row and never aborts the pass.
func (in *Ingestor) Run(ctx context.Context) (*Result, error) {
	feeds, err := in.db.FeedConfigurations(true)
	if err != nil {
		return nil, err
	}
	if len(feeds) == 0 {
		log.Println("No active feeds configured")
		return &Result{}, nil
	}

	var mu sync.Mutex
	result := &Result{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			found, inserted, err := in.fetchFeed(ctx, &feed)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.FeedsFailed++
				log.Printf("Feed %s failed: %v", feed.URL, err)
				if markErr := in.db.MarkFeedError(feed.ID, err.Error()); markErr != nil {
					log.Printf("Failed to record feed error for %s: %v", feed.URL, markErr)
				}
				return nil
			}

			result.FeedsFetched++
			result.ItemsFound += found
			result.ItemsNew += inserted
			if markErr := in.db.MarkFeedFetched(feed.ID); markErr != nil {
				log.Printf("Failed to record feed fetch for %s: %v", feed.URL, markErr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("Ingested %d new items (%d found) from %d feeds (%d failed)",
		result.ItemsNew, result.ItemsFound, result.FeedsFetched, result.FeedsFailed)
	return result, nil
}

func (in *Ingestor) fetchFeed(ctx context.Context, feed *database.FeedConfiguration) (found, inserted int, err error) {
	parser := gofeed.NewParser()
	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return 0, 0, err
	}

	name := feed.Name
	if name == "" {
		name = extractSourceName(feed.URL)
	}

	for _, entry := range parsed.Items {
		if found >= maxPerFeed {
			break
		}

		item := normalizeItem(entry, feed.URL, name)
		if item == nil {
			continue
		}
		found++

		id, err := in.db.InsertFeedItem(item)
		if err != nil {
			return found, inserted, err
		}
		if id != 0 {
			inserted++
		}
	}

	return found, inserted, nil
}

// normalizeItem maps a parsed feed entry onto a storable item. Entries
// without both a title and a link are dropped.
func normalizeItem(entry *gofeed.Item, feedURL, feedName string) *database.FeedItem {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		link = strings.TrimSpace(entry.GUID)
	}
	title := strings.TrimSpace(entry.Title)
	if link == "" || title == "" {
		return nil
	}

	published := time.Now().UTC()
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC()
	}

	var summary *string
	if s := stripHTML(entry.Description); s != "" {
		summary = &s
	} else if s := stripHTML(entry.Content); s != "" {
		summary = &s
	}

	raw, _ := json.Marshal(map[string]any{
		"title":       entry.Title,
		"link":        entry.Link,
		"guid":        entry.GUID,
		"published":   entry.Published,
		"description": entry.Description,
	})

	return &database.FeedItem{
		FeedURL:     feedURL,
		FeedName:    feedName,
		Title:       title,
		Summary:     summary,
		Link:        link,
		PublishedAt: published,
		ContentHash: Fingerprint(link, title),
		Raw:         raw,
	}
}

// Fingerprint derives the deduplication key for a feed item from its link
// and title.
func Fingerprint(link, title string) string {
	sum := sha256.Sum256([]byte(link + "|" + title))
	return hex.EncodeToString(sum[:])
}

// ImportDefaults seeds feed configurations from the static config list.
// Existing URLs are left untouched. Returns the number of feeds created.
func ImportDefaults(db *database.DB, feeds []DefaultFeed) (int, error) {
	created := 0
	for _, f := range feeds {
		var category *string
		if f.Category != "" {
			c := f.Category
			category = &c
		}
		id, err := db.InsertFeedConfiguration(f.Name, f.URL, category, true, f.Priority)
		if err != nil {
			return created, err
		}
		if id != 0 {
			created++
		}
	}
	return created, nil
}

// DefaultFeed is a feed definition from the static configuration.
type DefaultFeed struct {
	Name     string
	URL      string
	Category string
	Priority int
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
