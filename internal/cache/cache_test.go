package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/johnrirwin/rightswatch/internal/models"
)

func TestNewMemory(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	if c.items == nil {
		t.Fatal("NewMemory() returned cache with nil items map")
	}
	if c.ttl != time.Minute {
		t.Errorf("NewMemory() ttl = %v, want %v", c.ttl, time.Minute)
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("health:bbc-world", "operational")

	got, ok := c.Get("health:bbc-world")
	if !ok {
		t.Fatal("Get() returned false for existing key")
	}
	if got != "operational" {
		t.Errorf("Get() = %v, want %v", got, "operational")
	}

	if _, ok := c.Get("health:missing"); ok {
		t.Error("Get() should return false for non-existent key")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	tests := []struct {
		name      string
		defaultTT time.Duration
		customTTL time.Duration
		wantAlive bool
	}{
		{name: "default ttl expires", defaultTT: 30 * time.Millisecond, wantAlive: false},
		{name: "custom ttl expires", defaultTT: time.Minute, customTTL: 30 * time.Millisecond, wantAlive: false},
		{name: "custom ttl outlives default", defaultTT: 30 * time.Millisecond, customTTL: time.Minute, wantAlive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemory(tt.defaultTT)
			defer c.Stop()

			if tt.customTTL > 0 {
				c.SetWithTTL("key", "value", tt.customTTL)
			} else {
				c.Set("key", "value")
			}

			time.Sleep(50 * time.Millisecond)

			if _, ok := c.Get("key"); ok != tt.wantAlive {
				t.Errorf("Get() ok = %v, want %v", ok, tt.wantAlive)
			}
		})
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("nonexistent")

	if _, ok := c.Get("a"); ok {
		t.Error("Get() should return false after Delete()")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Delete() removed an unrelated key")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("Get() should return false after Clear()")
	}
}

func TestMemoryCache_Incr(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	for i := int64(1); i <= 3; i++ {
		if got := c.Incr("errors:amnesty"); got != i {
			t.Errorf("Incr() = %d, want %d", got, i)
		}
	}

	if got := Counter(c, "errors:amnesty"); got != 3 {
		t.Errorf("Counter() = %d, want 3", got)
	}
	if got := Counter(c, "errors:unknown"); got != 0 {
		t.Errorf("Counter() on missing key = %d, want 0", got)
	}
}

func TestMemoryCache_Incr_ReplacesNonInteger(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("counter", "not a number")
	if got := c.Incr("counter"); got != 1 {
		t.Errorf("Incr() over a string = %d, want 1", got)
	}
}

func TestMemoryCache_Incr_Concurrent(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Incr("shared")
			}
		}()
	}
	wg.Wait()

	if got := Counter(c, "shared"); got != 1000 {
		t.Errorf("Counter() after concurrent Incr = %d, want 1000", got)
	}
}

func TestLoad(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	now := time.Now().UTC().Truncate(time.Second)
	c.Set("health:hrw", models.FeedHealth{FeedID: "hrw", Status: models.HealthDegraded, ResponseTime: 420, LastChecked: now})

	var got models.FeedHealth
	if !Load(c, "health:hrw", &got) {
		t.Fatal("Load() returned false for existing key")
	}
	if got.FeedID != "hrw" || got.Status != models.HealthDegraded || got.ResponseTime != 420 {
		t.Errorf("Load() = %+v", got)
	}
	if !got.LastChecked.Equal(now) {
		t.Errorf("Load().LastChecked = %v, want %v", got.LastChecked, now)
	}

	// Redis hands back generic JSON maps.
	c.Set("health:generic", map[string]interface{}{"feedId": "amnesty", "status": "down", "errorCount": float64(2)})
	var generic models.FeedHealth
	if !Load(c, "health:generic", &generic) {
		t.Fatal("Load() returned false for generic map")
	}
	if generic.FeedID != "amnesty" || generic.ErrorCount != 2 {
		t.Errorf("Load() generic = %+v", generic)
	}

	if Load(nil, "anything", &got) {
		t.Error("Load() on nil cache should return false")
	}
}

func TestCacheImplementations(t *testing.T) {
	var _ Cache = (*MemoryCache)(nil)
	var _ Cache = (*RedisCache)(nil)
}
