package cache

import "encoding/json"

// Load reads key into dst. Values that come back as generic JSON (Redis)
// or as a different Go type are round-tripped through encoding/json.
func Load(c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}

	cached, ok := c.Get(key)
	if !ok || cached == nil {
		return false
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return false
	}

	return json.Unmarshal(raw, dst) == nil
}

// Counter reads an integer counter written by Incr, whatever the backend.
func Counter(c Cache, key string) int64 {
	if c == nil {
		return 0
	}

	cached, ok := c.Get(key)
	if !ok {
		return 0
	}

	switch v := cached.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
