// README: Redis read-through cache in front of a calendar Source, keyed by month.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shuttle/internal/types"
)

const cacheKeyPrefix = "calendar:events:%s"

type CachedSource struct {
	next  Source
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedSource(next Source, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, redis: client, ttl: ttl}
}

type cachedEvent struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func (c *CachedSource) EventsBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	from, to = types.Day(from), types.Day(to)
	var out []Event
	for _, month := range monthsBetween(from, to) {
		events, err := c.month(ctx, month)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if e.Date.Before(from) || e.Date.After(to) {
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *CachedSource) month(ctx context.Context, start time.Time) ([]Event, error) {
	key := fmt.Sprintf(cacheKeyPrefix, start.Format("2006-01"))
	// Cache errors are not fatal; any miss or failure falls through to the source.
	if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		if events, decodeErr := decodeEvents(raw); decodeErr == nil {
			return events, nil
		}
	}

	events, err := c.next.EventsBetween(ctx, start, start.AddDate(0, 1, -1))
	if err != nil {
		return nil, err
	}
	if encoded, err := encodeEvents(events); err == nil {
		_ = c.redis.Set(ctx, key, encoded, c.ttl).Err()
	}
	return events, nil
}

// Invalidate drops the cached month holding date.
func (c *CachedSource) Invalidate(ctx context.Context, date time.Time) error {
	d := types.Day(date)
	return c.redis.Del(ctx, fmt.Sprintf(cacheKeyPrefix, d.Format("2006-01"))).Err()
}

// Writer persists calendar events.
type Writer interface {
	Create(ctx context.Context, e *Event) error
}

// InvalidatingWriter stores events through next, then drops the event's month from the cache.
type InvalidatingWriter struct {
	next  Writer
	cache *CachedSource
}

func NewInvalidatingWriter(next Writer, cache *CachedSource) *InvalidatingWriter {
	return &InvalidatingWriter{next: next, cache: cache}
}

func (w *InvalidatingWriter) Create(ctx context.Context, e *Event) error {
	if err := w.next.Create(ctx, e); err != nil {
		return err
	}
	// A failed delete leaves the month stale until its TTL runs out.
	_ = w.cache.Invalidate(ctx, e.Date)
	return nil
}

func monthsBetween(from, to time.Time) []time.Time {
	var out []time.Time
	m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(to) {
		out = append(out, m)
		m = m.AddDate(0, 1, 0)
	}
	return out
}

func encodeEvents(events []Event) ([]byte, error) {
	out := make([]cachedEvent, len(events))
	for i, e := range events {
		out[i] = cachedEvent{ID: e.ID, Date: types.FormatDay(e.Date), Kind: string(e.Kind), Description: e.Description}
	}
	return json.Marshal(out)
}

func decodeEvents(raw []byte) ([]Event, error) {
	var in []cachedEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(in))
	for _, ce := range in {
		d, err := types.ParseDay(ce.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, Event{ID: ce.ID, Date: d, Kind: Kind(ce.Kind), Description: ce.Description})
	}
	return out, nil
}
