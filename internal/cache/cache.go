package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/fakhrymubarak/farm-weather/internal/model"
)

// Entry is one cached lookup outcome. A nil Result records a failed lookup.
type Entry struct {
	Result    *model.WeatherResult `json:"result"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// Cache maps a (city, key) slot to its last lookup outcome for a fixed window.
// Backend errors surface as misses.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, entry Entry)
}

// Key derives the slot key from the exact city and credential. The credential is
// hashed so it never appears in a cache key.
func Key(city, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "weather:" + city + ":" + hex.EncodeToString(sum[:8])
}
