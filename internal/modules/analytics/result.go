package analytics

import (
	"context"
	"log/slog"
)

// Result is the outcome of evaluating one record for a report.
type Result[T any] struct {
	Item  string
	Value T
	Err   error
}

func ok[T any](item string, v T) Result[T] { return Result[T]{Item: item, Value: v} }

func failed[T any](item string, err error) Result[T] { return Result[T]{Item: item, Err: err} }

// fold passes successful values to add and returns how many results failed.
// Failures are logged; they never abort the report.
func fold[T any](ctx context.Context, logger *slog.Logger, report string, results []Result[T], add func(T)) int {
	skipped := 0
	for _, r := range results {
		if r.Err != nil {
			skipped++
			logger.WarnContext(ctx, "report record skipped", "report", report, "item", r.Item, "error", r.Err)
			continue
		}
		add(r.Value)
	}
	return skipped
}
