package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Partition(items, 2))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, Partition(items, 0))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, Partition(items, 20))
	assert.Nil(t, Partition([]int{}, 3))
}

func TestRun_PausesOnlyBetweenBatches(t *testing.T) {
	var pauses []time.Duration
	var batchSizes []int

	items := make([]int, 45)
	for i := range items {
		items[i] = i
	}

	results, err := Run(context.Background(), items, Options{
		Size:  20,
		Pause: 200 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		},
		OnBatch: func(_, size int, _ time.Duration) {
			batchSizes = append(batchSizes, size)
		},
	}, func(_ context.Context, i int) int { return i * 2 })

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, pauses)
	assert.Equal(t, []int{20, 20, 5}, batchSizes)
	require.Len(t, results, 45)
	for i, r := range results {
		assert.Equal(t, i*2, r)
	}
}

func TestRun_SingleBatchNeverPauses(t *testing.T) {
	slept := false
	_, err := Run(context.Background(), []string{"a", "b"}, Options{
		Size:  20,
		Pause: time.Hour,
		Sleep: func(context.Context, time.Duration) error { slept = true; return nil },
	}, func(_ context.Context, s string) string { return s })

	require.NoError(t, err)
	assert.False(t, slept)
}

func TestRun_BatchMembersRunConcurrently(t *testing.T) {
	const size = 5
	var running, peak atomic.Int32
	release := make(chan struct{})
	var once sync.Once

	items := make([]int, size)
	_, err := Run(context.Background(), items, Options{Size: size}, func(_ context.Context, _ int) int {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if n == size {
			once.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		running.Add(-1)
		return 0
	})

	require.NoError(t, err)
	assert.EqualValues(t, size, peak.Load())
}

func TestRun_NextBatchStartsAfterJoin(t *testing.T) {
	var mu sync.Mutex
	var timeline []string

	items := []int{0, 1, 2, 3}
	_, err := Run(context.Background(), items, Options{
		Size:  2,
		Sleep: func(context.Context, time.Duration) error { return nil },
	}, func(_ context.Context, i int) int {
		if i < 2 {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		if i < 2 {
			timeline = append(timeline, "first")
		} else {
			timeline = append(timeline, "second")
		}
		mu.Unlock()
		return i
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "first", "second", "second"}, timeline)
}

func TestRun_OneItemFailingDoesNotAffectSiblings(t *testing.T) {
	type result struct {
		v   int
		err error
	}

	results, err := Run(context.Background(), []int{1, 2, 3}, Options{Size: 3}, func(_ context.Context, i int) result {
		if i == 2 {
			return result{err: assert.AnError}
		}
		return result{v: i}
	})

	require.NoError(t, err)
	assert.Equal(t, 1, results[0].v)
	assert.Error(t, results[1].err)
	assert.Equal(t, 3, results[2].v)
}

func TestRun_PanicYieldsZeroResult(t *testing.T) {
	var mu sync.Mutex
	panicked := map[int]any{}

	results, err := Run(context.Background(), []int{1, 2, 3, 4}, Options{
		Size:  2,
		Sleep: func(context.Context, time.Duration) error { return nil },
		OnPanic: func(item int, v any) {
			mu.Lock()
			panicked[item] = v
			mu.Unlock()
		},
	}, func(_ context.Context, i int) int {
		if i == 3 {
			panic("upstream exploded")
		}
		return i * 10
	})

	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 0, 40}, results)
	assert.Equal(t, map[int]any{2: "upstream exploded"}, panicked)
}

func TestRun_CancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Run(ctx, []int{1, 2, 3}, Options{Size: 1, Pause: time.Second}, func(_ context.Context, i int) int { return i })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1}, results)
}
