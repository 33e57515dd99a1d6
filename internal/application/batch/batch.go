// Package batch runs per-item work in fixed-size batches: every item of a batch
// runs concurrently, the batch is joined, and a fixed pause separates batches.
// It keeps fan-out against the upstream services bounded and paced.
package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options controls batching.
type Options struct {
	// Size is the number of items per batch. Values below 1 mean one batch.
	Size int

	// Pause is waited between consecutive batches, never after the last one.
	Pause time.Duration

	// Sleep replaces the real timer (tests).
	Sleep SleepFunc

	// OnBatch is called after each batch is joined.
	OnBatch func(index, size int, took time.Duration)

	// OnPanic is called with the item's position and the recovered value when
	// fn panics. The item's result is left as the zero value. If nil, the panic
	// is logged with slog.Default.
	OnPanic func(item int, recovered any)
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Partition splits items into consecutive chunks of at most size elements.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = len(items)
	}

	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// Run calls fn for every item and returns the results in item order. fn cannot
// fail: it reports problems through its result, so one item never cancels its
// siblings. If ctx ends during a pause, Run returns the results of the batches
// that finished together with ctx's error. A panic in fn is recovered and
// yields the zero R for that item.
func Run[T, R any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, item T) R) ([]R, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	onPanic := opts.OnPanic
	if onPanic == nil {
		onPanic = func(item int, v any) {
			slog.Default().Error("batch item panicked", slog.Int("item", item), slog.Any("panic", v))
		}
	}

	batches := Partition(items, opts.Size)
	results := make([]R, 0, len(items))
	offset := 0

	for i, b := range batches {
		if i > 0 {
			if err := sleep(ctx, opts.Pause); err != nil {
				return results, err
			}
		}

		start := time.Now()
		out := make([]R, len(b))

		var g errgroup.Group
		for j, item := range b {
			g.Go(func() error {
				defer func() {
					if v := recover(); v != nil {
						onPanic(offset+j, v)
					}
				}()
				out[j] = fn(ctx, item)
				return nil
			})
		}
		_ = g.Wait()

		if opts.OnBatch != nil {
			opts.OnBatch(i, len(b), time.Since(start))
		}
		results = append(results, out...)
		offset += len(b)
	}

	return results, nil
}
