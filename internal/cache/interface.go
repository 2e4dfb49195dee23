package cache

import "time"

// Cache defines the interface for cache backends
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	// Incr atomically adds one to the counter stored at key and returns the new value.
	Incr(key string) int64
	Delete(key string)
	Clear()
}
