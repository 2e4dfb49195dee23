package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/rightswatch/internal/cache"
	"github.com/johnrirwin/rightswatch/internal/metrics"
	"github.com/johnrirwin/rightswatch/internal/models"
	"github.com/johnrirwin/rightswatch/internal/testutil"
)

func newTestChecker(t *testing.T, slow time.Duration) (*Checker, *Tracker) {
	t.Helper()
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)

	tracker := NewTracker(c)
	checker := NewChecker(tracker, Config{Timeout: time.Second, SlowThreshold: slow}, metrics.New(), testutil.NullLogger())
	return checker, tracker
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		slow       time.Duration
		wantStatus models.HealthStatus
		wantErrors int64
	}{
		{
			name:       "operational",
			handler:    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<rss/>")) },
			wantStatus: models.HealthOperational,
		},
		{
			name: "slow is degraded",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(30 * time.Millisecond)
			},
			slow:       10 * time.Millisecond,
			wantStatus: models.HealthDegraded,
		},
		{
			name:       "client error is degraded",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			wantStatus: models.HealthDegraded,
			wantErrors: 1,
		},
		{
			name:       "server error is down",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: models.HealthDown,
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			checker, tracker := newTestChecker(t, tt.slow)
			src := models.FeedSource{ID: "hrw", URL: server.URL}

			h := checker.Check(context.Background(), src)

			assert.Equal(t, "hrw", h.FeedID)
			assert.Equal(t, tt.wantStatus, h.Status)
			assert.Equal(t, tt.wantErrors, h.ErrorCount)
			assert.GreaterOrEqual(t, h.ResponseTime, int64(0))
			assert.False(t, h.LastChecked.IsZero())

			saved, ok := tracker.Last("hrw")
			require.True(t, ok)
			assert.Equal(t, h.Status, saved.Status)
		})
	}
}

func TestChecker_Check_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker, _ := newTestChecker(t, 0)
	h := checker.Check(context.Background(), models.FeedSource{ID: "gone", URL: url})

	assert.Equal(t, models.HealthDown, h.Status)
	assert.Equal(t, int64(1), h.ErrorCount)
	assert.NotEmpty(t, h.LastError)
}

func TestChecker_Check_IncludesFetchFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	checker, tracker := newTestChecker(t, 0)
	tracker.RecordFailure("amnesty", errors.New("feed returned status 500"))
	tracker.RecordFailure("amnesty", errors.New("feed returned status 502"))

	h := checker.Check(context.Background(), models.FeedSource{ID: "amnesty", URL: server.URL})

	assert.Equal(t, models.HealthOperational, h.Status)
	assert.Equal(t, int64(2), h.ErrorCount)
	assert.Equal(t, "feed returned status 502", h.LastError)
}

func TestChecker_CheckAll_KeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	checker, _ := newTestChecker(t, 0)
	srcs := []models.FeedSource{
		{ID: "a", URL: server.URL},
		{ID: "b", URL: server.URL},
		{ID: "c", URL: server.URL},
	}

	results := checker.CheckAll(context.Background(), srcs)
	require.Len(t, results, 3)
	for i, src := range srcs {
		assert.Equal(t, src.ID, results[i].FeedID)
	}
}

func TestChecker_Latest(t *testing.T) {
	var hits sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)
	}))
	defer server.Close()

	checker, tracker := newTestChecker(t, 0)
	checked := models.FeedSource{ID: "hrw", URL: server.URL + "/hrw"}
	fresh := models.FeedSource{ID: "amnesty", URL: server.URL + "/amnesty"}

	first := checker.Check(context.Background(), checked)
	tracker.RecordFailure("hrw", errors.New("feed returned status 503"))

	results := checker.Latest(context.Background(), []models.FeedSource{checked, fresh})
	require.Len(t, results, 2)

	assert.Equal(t, "hrw", results[0].FeedID)
	assert.Equal(t, first.Status, results[0].Status)
	assert.True(t, first.LastChecked.Equal(results[0].LastChecked))
	assert.Equal(t, int64(1), results[0].ErrorCount)
	assert.Equal(t, "feed returned status 503", results[0].LastError)

	assert.Equal(t, "amnesty", results[1].FeedID)
	assert.Equal(t, models.HealthOperational, results[1].Status)

	n, _ := hits.Load("/hrw")
	assert.Equal(t, int32(1), n.(*atomic.Int32).Load())
	n, _ = hits.Load("/amnesty")
	assert.Equal(t, int32(1), n.(*atomic.Int32).Load())

	_, ok := tracker.Last("amnesty")
	assert.True(t, ok)
}

func TestChecker_Latest_NoTracker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	checker := NewChecker(nil, Config{Timeout: time.Second}, nil, testutil.NullLogger())
	results := checker.Latest(context.Background(), []models.FeedSource{{ID: "a", URL: server.URL}})

	require.Len(t, results, 1)
	assert.Equal(t, models.HealthOperational, results[0].Status)
}

func TestSummarize(t *testing.T) {
	op := models.FeedHealth{Status: models.HealthOperational}
	deg := models.FeedHealth{Status: models.HealthDegraded}
	down := models.FeedHealth{Status: models.HealthDown}

	tests := []struct {
		name    string
		results []models.FeedHealth
		want    models.HealthStatus
	}{
		{"empty", nil, models.HealthDown},
		{"all operational", []models.FeedHealth{op, op}, models.HealthOperational},
		{"all down", []models.FeedHealth{down, down}, models.HealthDown},
		{"mixed", []models.FeedHealth{op, down}, models.HealthDegraded},
		{"one degraded", []models.FeedHealth{op, deg}, models.HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.results))
		})
	}
}

func TestTracker_NilSafe(t *testing.T) {
	var tracker *Tracker
	tracker.RecordFailure("x", errors.New("boom"))
	tracker.Save(models.FeedHealth{FeedID: "x"})

	assert.Equal(t, int64(0), tracker.ErrorCount("x"))
	assert.Equal(t, "", tracker.LastError("x"))
	_, ok := tracker.Last("x")
	assert.False(t, ok)
}
