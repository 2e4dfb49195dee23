package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/johnrirwin/rightswatch/internal/models"
	"github.com/johnrirwin/rightswatch/internal/ratelimit"
)

// RSSFetcher parses RSS/Atom feeds directly, without the conversion endpoint.
type RSSFetcher struct {
	parser  *gofeed.Parser
	limiter *ratelimit.Limiter
	config  FetcherConfig
	now     func() time.Time
}

func NewRSSFetcher(limiter *ratelimit.Limiter, config FetcherConfig) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent
	parser.Client = &http.Client{Timeout: config.Timeout}

	return &RSSFetcher{
		parser:  parser,
		limiter: limiter,
		config:  config,
		now:     time.Now,
	}
}

func (f *RSSFetcher) Name() string {
	return "direct"
}

func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitContext(ctx, hostOf(feedURL)); err != nil {
			return nil, fmt.Errorf("rate limit wait for %s: %w", feedURL, err)
		}
	}

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &StatusError{URL: feedURL, Code: httpErr.StatusCode}
		}
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", feedURL, err)
	}

	source := feed.Title
	if source == "" {
		source = feedURL
	}

	now := f.now()
	items := make([]models.FeedItem, 0, len(feed.Items))
	for i, item := range feed.Items {
		if f.config.MaxItems > 0 && i >= f.config.MaxItems {
			break
		}

		timestamp := now
		if item.PublishedParsed != nil {
			timestamp = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			timestamp = *item.UpdatedParsed
		}

		items = append(items, models.FeedItem{
			ID:           NewItemID(now, i),
			Title:        StripMarkup(item.Title),
			Description:  CleanDescription(item.Description, f.config.DescriptionLimit),
			Timestamp:    timestamp,
			Source:       source,
			Severity:     models.SeverityMedium,
			Link:         item.Link,
			Verification: models.VerificationVerified,
		})
	}

	return items, nil
}

var _ Fetcher = (*RSSFetcher)(nil)
