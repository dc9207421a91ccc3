package analytics

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shuttle/internal/types"
)

func TestFoldCountsFailuresAndKeepsGoing(t *testing.T) {
	results := []Result[int]{
		ok("a", 2),
		failed[int]("b", errors.New("no rule")),
		ok("c", 3),
		failed[int]("d", errRouteMissing),
	}
	sum := 0
	skipped := fold(context.Background(), slog.New(slog.DiscardHandler), "test", results, func(v int) { sum += v })
	assert.Equal(t, 5, sum)
	assert.Equal(t, 2, skipped)
}

func TestBucketStart(t *testing.T) {
	wed := mustDay("2025-03-05")
	assert.Equal(t, mustDay("2025-03-03"), bucketStart(wed, BucketWeek))
	assert.Equal(t, mustDay("2025-03-03"), bucketStart(mustDay("2025-03-03"), BucketWeek))
	assert.Equal(t, mustDay("2025-03-03"), bucketStart(mustDay("2025-03-09"), BucketWeek), "sunday closes the week")
	assert.Equal(t, mustDay("2025-03-01"), bucketStart(wed, BucketMonth))
	assert.Equal(t, wed, bucketStart(wed, BucketDay))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 70.0, percent(7, 10))
	assert.Equal(t, 66.67, percent(2, 3))
	assert.Zero(t, percent(3, 0))
}

func mustDay(s string) time.Time {
	d, err := types.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}
