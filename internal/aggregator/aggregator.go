package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/johnrirwin/rightswatch/internal/health"
	"github.com/johnrirwin/rightswatch/internal/logging"
	"github.com/johnrirwin/rightswatch/internal/metrics"
	"github.com/johnrirwin/rightswatch/internal/models"
	"github.com/johnrirwin/rightswatch/internal/sources"
)

const aggregateKey = "aggregate"

type Config struct {
	AggregateTimeout time.Duration
	FeedTimeout      time.Duration
	MaxConcurrency   int
}

func DefaultConfig() Config {
	return Config{
		AggregateTimeout: 15 * time.Second,
		FeedTimeout:      10 * time.Second,
		MaxConcurrency:   8,
	}
}

type group int

const (
	groupNews group = iota
	groupThreats
)

// Aggregator merges the configured news and human-rights feeds into one
// report per call. It keeps no items between calls.
type Aggregator struct {
	fetcher sources.Fetcher
	sources []models.FeedSource
	news    []models.FeedSource
	threats []models.FeedSource
	tracker *health.Tracker
	metrics *metrics.Metrics
	logger  *logging.Logger
	config  Config
	flight  singleflight.Group
	now     func() time.Time
}

func New(fetcher sources.Fetcher, srcs []models.FeedSource, config Config, tracker *health.Tracker, m *metrics.Metrics, logger *logging.Logger) *Aggregator {
	if config.AggregateTimeout <= 0 {
		config.AggregateTimeout = DefaultConfig().AggregateTimeout
	}
	if config.FeedTimeout <= 0 || config.FeedTimeout > config.AggregateTimeout {
		config.FeedTimeout = config.AggregateTimeout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}

	a := &Aggregator{
		fetcher: fetcher,
		sources: srcs,
		tracker: tracker,
		metrics: m,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}

	for _, src := range srcs {
		if !src.Enabled {
			continue
		}
		switch src.Category {
		case models.CategoryNews:
			a.news = append(a.news, src)
		case models.CategoryHumanRights:
			a.threats = append(a.threats, src)
		default:
			logger.Debug("Source is display-only, not aggregated", logging.WithFields(map[string]interface{}{
				"source":   src.ID,
				"category": string(src.Category),
			}))
		}
	}

	return a
}

// AggregateFeeds fetches every configured feed and merges the results.
// Concurrent callers share a single in-flight run. It always returns a
// report; failures are expressed through the report status.
func (a *Aggregator) AggregateFeeds(ctx context.Context) models.AggregateReport {
	// The shared run must not die with whichever caller started it.
	runCtx := context.WithoutCancel(ctx)

	v, _, shared := a.flight.Do(aggregateKey, func() (interface{}, error) {
		return a.aggregate(runCtx), nil
	})

	report := v.(models.AggregateReport)
	if shared {
		report = cloneReport(report)
	}
	return report
}

func (a *Aggregator) aggregate(ctx context.Context) (report models.AggregateReport) {
	start := a.now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("aggregation failed: %v", r)
			a.logger.Error("Aggregation failed", logging.WithField("error", err.Error()))
			report = errorReport(a.now(), err)
		}
		a.metrics.ObserveReport(report, a.now().Sub(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, a.config.AggregateTimeout)
	defer cancel()

	newsResults := newCollector(len(a.news))
	threatResults := newCollector(len(a.threats))

	g := new(errgroup.Group)
	g.SetLimit(a.config.MaxConcurrency)

	// Feeds not yet started when the deadline passes are never fetched.
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = g.Wait() }()

		for i, src := range a.news {
			if ctx.Err() != nil {
				return
			}
			g.Go(a.fetchInto(ctx, newsResults, i, src, groupNews))
		}
		for i, src := range a.threats {
			if ctx.Err() != nil {
				return
			}
			g.Go(a.fetchInto(ctx, threatResults, i, src, groupThreats))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Aggregation deadline reached, dropping pending feeds", logging.WithFields(map[string]interface{}{
			"timeout":         a.config.AggregateTimeout.String(),
			"pending_news":    newsResults.pending(),
			"pending_threats": threatResults.pending(),
		}))
	}

	report = models.AggregateReport{
		News:        mergeResults(newsResults.snapshot()),
		Threats:     mergeResults(threatResults.snapshot()),
		Campaigns:   []models.FeedItem{},
		LastUpdated: a.now().UTC(),
	}
	report.FeedsLoaded = models.FeedsLoaded{
		News:      len(report.News),
		Threats:   len(report.Threats),
		Campaigns: len(report.Campaigns),
	}
	report.Status = statusFor(report)

	a.logger.Info("Aggregation complete", logging.WithFields(map[string]interface{}{
		"news":     report.FeedsLoaded.News,
		"threats":  report.FeedsLoaded.Threats,
		"status":   string(report.Status),
		"duration": a.now().Sub(start).String(),
	}))

	return report
}

// fetchInto returns a task that fills slot i of results. A task that only
// gets a worker after the deadline does nothing.
func (a *Aggregator) fetchInto(ctx context.Context, results *collector, i int, src models.FeedSource, g group) func() error {
	return func() error {
		if ctx.Err() != nil {
			return nil
		}
		results.set(i, a.fetchSource(ctx, src, g))
		return nil
	}
}

// fetchSource fetches one feed under its own deadline and annotates the
// items with the source's display data. A failure yields nil.
func (a *Aggregator) fetchSource(ctx context.Context, src models.FeedSource, g group) (items []models.FeedItem) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("fetcher panic: %v", r)
			a.logger.Error("Failed to fetch feed", logging.WithFields(map[string]interface{}{
				"source": src.ID,
				"error":  err.Error(),
			}))
			a.tracker.RecordFailure(src.ID, err)
			a.metrics.ObserveFetch(src.ID, metrics.OutcomeError)
			items = nil
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.config.FeedTimeout)
	defer cancel()

	items, err := a.fetcher.Fetch(fetchCtx, src.URL)
	if err != nil {
		a.recordFailure(src, err, fetchCtx.Err() != nil)
		return nil
	}

	for i := range items {
		items[i].Region = src.Region
		items[i].Source = src.Name
		if g == groupThreats {
			items[i].Severity = models.SeverityHigh
		}
	}

	a.metrics.ObserveFetch(src.ID, metrics.OutcomeOK)
	a.logger.Debug("Fetched items from source", logging.WithFields(map[string]interface{}{
		"source": src.ID,
		"count":  len(items),
	}))

	return items
}

func (a *Aggregator) recordFailure(src models.FeedSource, err error, timedOut bool) {
	fields := logging.WithFields(map[string]interface{}{
		"source": src.ID,
		"url":    src.URL,
		"error":  err.Error(),
	})

	outcome := metrics.OutcomeError
	switch {
	case timedOut || errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
		a.logger.Warn("Feed fetch timed out", fields)
	case sources.IsSoftFailure(err):
		outcome = metrics.OutcomeSoftFail
		a.logger.Warn("Feed returned no usable items", fields)
	default:
		a.logger.Error("Failed to fetch feed", fields)
	}

	a.tracker.RecordFailure(src.ID, err)
	a.metrics.ObserveFetch(src.ID, outcome)
}

// GetSources returns every configured source, including display-only ones.
func (a *Aggregator) GetSources() []models.FeedSource {
	out := make([]models.FeedSource, len(a.sources))
	copy(out, a.sources)
	return out
}

// SourceItems fetches a single configured source outside a full run.
func (a *Aggregator) SourceItems(ctx context.Context, id string) ([]models.FeedItem, bool) {
	for _, src := range a.sources {
		if src.ID != id {
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, a.config.FeedTimeout)
		defer cancel()

		items := sources.FetchItems(fetchCtx, a.fetcher, src.URL, a.logger)
		for i := range items {
			items[i].Region = src.Region
			items[i].Source = src.Name
			if src.Category == models.CategoryHumanRights {
				items[i].Severity = models.SeverityHigh
			}
		}
		return items, true
	}
	return nil, false
}

func statusFor(report models.AggregateReport) models.ReportStatus {
	if len(report.News) > 0 || len(report.Threats) > 0 {
		return models.StatusOperational
	}
	return models.StatusFeedsUnavailable
}

func errorReport(now time.Time, err error) models.AggregateReport {
	return models.AggregateReport{
		News:        []models.FeedItem{},
		Threats:     []models.FeedItem{},
		Campaigns:   []models.FeedItem{},
		LastUpdated: now.UTC(),
		Status:      models.StatusError,
		Error:       err.Error(),
	}
}

// mergeResults combines one bucket's per-feed results.
var mergeResults = flattenResults

// flattenResults concatenates per-feed results in source order.
func flattenResults(results [][]models.FeedItem) []models.FeedItem {
	total := 0
	for _, r := range results {
		total += len(r)
	}

	out := make([]models.FeedItem, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func cloneReport(r models.AggregateReport) models.AggregateReport {
	r.News = append([]models.FeedItem{}, r.News...)
	r.Threats = append([]models.FeedItem{}, r.Threats...)
	r.Campaigns = append([]models.FeedItem{}, r.Campaigns...)
	return r
}

// collector holds per-feed results. Once snapshotted it ignores late
// writes from feeds that missed the deadline.
type collector struct {
	mu      sync.Mutex
	closed  bool
	results [][]models.FeedItem
	settled []bool
}

func newCollector(n int) *collector {
	return &collector{
		results: make([][]models.FeedItem, n),
		settled: make([]bool, n),
	}
}

func (c *collector) set(i int, items []models.FeedItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.results[i] = items
	c.settled[i] = true
}

func (c *collector) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.settled {
		if !s {
			n++
		}
	}
	return n
}

func (c *collector) snapshot() [][]models.FeedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := make([][]models.FeedItem, len(c.results))
	copy(out, c.results)
	return out
}
