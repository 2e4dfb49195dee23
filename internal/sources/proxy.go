package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/johnrirwin/rightswatch/internal/models"
	"github.com/johnrirwin/rightswatch/internal/ratelimit"
)

const DefaultProxyEndpoint = "https://api.rss2json.com/v1/api.json"

// maxProxyBody caps how much of a proxy response is decoded.
const maxProxyBody = 4 << 20

// ProxyFetcher reads feeds through an rss2json-compatible feed-to-JSON endpoint.
type ProxyFetcher struct {
	endpoint string
	apiKey   string
	limiter  *ratelimit.Limiter
	config   FetcherConfig
	client   *http.Client
	now      func() time.Time
}

type proxyResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Feed    proxyFeed   `json:"feed"`
	Items   []proxyItem `json:"items"`
}

type proxyFeed struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

type proxyItem struct {
	Title       string `json:"title"`
	PubDate     string `json:"pubDate"`
	Link        string `json:"link"`
	GUID        string `json:"guid"`
	Description string `json:"description"`
}

func NewProxyFetcher(endpoint, apiKey string, limiter *ratelimit.Limiter, config FetcherConfig) *ProxyFetcher {
	if endpoint == "" {
		endpoint = DefaultProxyEndpoint
	}
	return &ProxyFetcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		limiter:  limiter,
		config:   config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}
}

func (f *ProxyFetcher) Name() string {
	return "proxy"
}

func (f *ProxyFetcher) requestURL(feedURL string) (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid proxy endpoint %q: %w", f.endpoint, err)
	}
	q := u.Query()
	q.Set("rss_url", feedURL)
	if f.apiKey != "" {
		q.Set("api_key", f.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *ProxyFetcher) Fetch(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitContext(ctx, hostOf(f.endpoint)); err != nil {
			return nil, fmt.Errorf("rate limit wait for %s: %w", feedURL, err)
		}
	}

	reqURL, err := f.requestURL(feedURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: feedURL, Code: resp.StatusCode}
	}

	var payload proxyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProxyBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed %s: %w", feedURL, err)
	}

	if payload.Status != "ok" || payload.Items == nil {
		if payload.Message != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrFeedNotOK, feedURL, payload.Message)
		}
		return nil, fmt.Errorf("%w: %s (status %q)", ErrFeedNotOK, feedURL, payload.Status)
	}

	source := payload.Feed.Title
	if source == "" {
		source = feedURL
	}

	now := f.now()
	limit := len(payload.Items)
	if f.config.MaxItems > 0 && limit > f.config.MaxItems {
		limit = f.config.MaxItems
	}

	items := make([]models.FeedItem, 0, limit)
	for i, item := range payload.Items[:limit] {
		items = append(items, models.FeedItem{
			ID:           NewItemID(now, i),
			Title:        StripMarkup(item.Title),
			Description:  CleanDescription(item.Description, f.config.DescriptionLimit),
			Timestamp:    ParseTimestamp(item.PubDate, now),
			Source:       source,
			Severity:     models.SeverityMedium,
			Link:         item.Link,
			Verification: models.VerificationVerified,
		})
	}

	return items, nil
}

var _ Fetcher = (*ProxyFetcher)(nil)
