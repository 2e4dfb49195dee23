package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/johnrirwin/rightswatch/internal/logging"
	"github.com/johnrirwin/rightswatch/internal/models"
)

// Fetcher retrieves the current items of a single feed.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, feedURL string) ([]models.FeedItem, error)
}

type FetcherConfig struct {
	Timeout          time.Duration
	MaxItems         int
	DescriptionLimit int
	UserAgent        string
}

func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:          10 * time.Second,
		MaxItems:         5,
		DescriptionLimit: 200,
		UserAgent:        "RightsWatch/1.0",
	}
}

// ErrFeedNotOK is returned when the payload does not report an ok status
// or carries no item list.
var ErrFeedNotOK = errors.New("feed payload not ok")

// StatusError is returned for a non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed %s returned status %d", e.URL, e.Code)
}

// IsSoftFailure reports whether err is an expected upstream condition
// (bad status, non-ok payload) rather than a transport or decode failure.
func IsSoftFailure(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) || errors.Is(err, ErrFeedNotOK)
}

// LogFetchError logs a failed fetch at warn level for soft failures and
// error level for everything else.
func LogFetchError(logger *logging.Logger, feedURL string, err error) {
	fields := logging.WithFields(map[string]interface{}{
		"url":   feedURL,
		"error": err.Error(),
	})
	if IsSoftFailure(err) {
		logger.Warn("Feed returned no usable items", fields)
		return
	}
	logger.Error("Failed to fetch feed", fields)
}

// FetchItems fetches one feed and never fails: any error is logged and
// yields an empty list.
func FetchItems(ctx context.Context, f Fetcher, feedURL string, logger *logging.Logger) []models.FeedItem {
	items, err := f.Fetch(ctx, feedURL)
	if err != nil {
		LogFetchError(logger, feedURL, err)
		return []models.FeedItem{}
	}
	return items
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
