package health

import (
	"github.com/johnrirwin/rightswatch/internal/cache"
	"github.com/johnrirwin/rightswatch/internal/models"
)

const (
	errorCountPrefix = "feed:errors:"
	lastErrorPrefix  = "feed:last_error:"
	lastHealthPrefix = "feed:health:"
)

// Tracker keeps per-feed failure counters and the latest health record in
// a cache backend, so counters survive across aggregation runs and are
// shared between instances when the backend is Redis.
type Tracker struct {
	cache cache.Cache
}

func NewTracker(c cache.Cache) *Tracker {
	return &Tracker{cache: c}
}

// RecordFailure counts a failed fetch or check for feedID.
func (t *Tracker) RecordFailure(feedID string, err error) {
	if t == nil || t.cache == nil {
		return
	}
	t.cache.Incr(errorCountPrefix + feedID)
	if err != nil {
		t.cache.Set(lastErrorPrefix+feedID, err.Error())
	}
}

func (t *Tracker) ErrorCount(feedID string) int64 {
	if t == nil {
		return 0
	}
	return cache.Counter(t.cache, errorCountPrefix+feedID)
}

func (t *Tracker) LastError(feedID string) string {
	if t == nil || t.cache == nil {
		return ""
	}
	v, ok := t.cache.Get(lastErrorPrefix + feedID)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (t *Tracker) Save(h models.FeedHealth) {
	if t == nil || t.cache == nil {
		return
	}
	t.cache.Set(lastHealthPrefix+h.FeedID, h)
}

// Last returns the most recent health record saved for feedID.
func (t *Tracker) Last(feedID string) (models.FeedHealth, bool) {
	var h models.FeedHealth
	if t == nil || !cache.Load(t.cache, lastHealthPrefix+feedID, &h) {
		return models.FeedHealth{}, false
	}
	return h, true
}
