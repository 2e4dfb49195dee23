package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/rightswatch/internal/logging"
	"github.com/johnrirwin/rightswatch/internal/metrics"
	"github.com/johnrirwin/rightswatch/internal/models"
)

type Config struct {
	Timeout        time.Duration
	SlowThreshold  time.Duration
	UserAgent      string
	MaxConcurrency int
}

// Checker pings feed URLs and reports latency, reachability and the
// failure count accumulated by the Tracker.
type Checker struct {
	client  *http.Client
	tracker *Tracker
	metrics *metrics.Metrics
	logger  *logging.Logger
	config  Config
	now     func() time.Time
}

func NewChecker(tracker *Tracker, config Config, m *metrics.Metrics, logger *logging.Logger) *Checker {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	return &Checker{
		client:  &http.Client{Timeout: config.Timeout},
		tracker: tracker,
		metrics: m,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}
}

// Check pings a single feed.
func (c *Checker) Check(ctx context.Context, src models.FeedSource) models.FeedHealth {
	start := c.now()
	status, err := c.ping(ctx, src.URL)
	latency := c.now().Sub(start)

	if status == models.HealthOperational && c.config.SlowThreshold > 0 && latency > c.config.SlowThreshold {
		status = models.HealthDegraded
	}
	if err != nil {
		c.tracker.RecordFailure(src.ID, err)
		c.logger.Warn("Feed health check failed", logging.WithFields(map[string]interface{}{
			"feed":   src.ID,
			"status": string(status),
			"error":  err.Error(),
		}))
	}

	h := models.FeedHealth{
		FeedID:       src.ID,
		Status:       status,
		ResponseTime: latency.Milliseconds(),
		ErrorCount:   c.tracker.ErrorCount(src.ID),
		LastChecked:  start.UTC(),
		LastError:    c.tracker.LastError(src.ID),
	}

	c.tracker.Save(h)
	c.metrics.ObserveHealth(h)
	return h
}

// CheckAll checks every source concurrently; results keep the input order.
func (c *Checker) CheckAll(ctx context.Context, srcs []models.FeedSource) []models.FeedHealth {
	results := make([]models.FeedHealth, len(srcs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)

	for i, src := range srcs {
		g.Go(func() error {
			results[i] = c.Check(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Latest returns the last saved record for each source and only checks the
// sources that have never been checked. Failure counters are read fresh
// since fetch failures keep accruing between checks. Results keep the input
// order.
func (c *Checker) Latest(ctx context.Context, srcs []models.FeedSource) []models.FeedHealth {
	results := make([]models.FeedHealth, len(srcs))

	var missing []int
	for i, src := range srcs {
		h, ok := c.tracker.Last(src.ID)
		if !ok {
			missing = append(missing, i)
			continue
		}
		h.ErrorCount = c.tracker.ErrorCount(src.ID)
		h.LastError = c.tracker.LastError(src.ID)
		results[i] = h
	}
	if len(missing) == 0 {
		return results
	}

	pending := make([]models.FeedSource, len(missing))
	for j, i := range missing {
		pending[j] = srcs[i]
	}
	for j, h := range c.CheckAll(ctx, pending) {
		results[missing[j]] = h
	}
	return results
}

// Summarize folds per-feed results into one status: operational when every
// feed is, down when every feed is, degraded otherwise.
func Summarize(results []models.FeedHealth) models.HealthStatus {
	if len(results) == 0 {
		return models.HealthDown
	}

	up, down := 0, 0
	for _, h := range results {
		switch h.Status {
		case models.HealthOperational:
			up++
		case models.HealthDown:
			down++
		}
	}

	switch {
	case up == len(results):
		return models.HealthOperational
	case down == len(results):
		return models.HealthDown
	default:
		return models.HealthDegraded
	}
}

func (c *Checker) ping(ctx context.Context, feedURL string) (models.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return models.HealthDown, fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.HealthDown, fmt.Errorf("failed to reach feed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500:
		return models.HealthDown, fmt.Errorf("feed returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return models.HealthDegraded, fmt.Errorf("feed returned status %d", resp.StatusCode)
	default:
		return models.HealthOperational, nil
	}
}
