package aggregate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/sourcegraph/conc/pool"
)

// job is one probe task in a fan-out. Its slot starts as fallback and is
// overwritten with run's result, or with recovered's if run panics. A job the
// pool never got to before the deadline reports unstarted instead, when set.
type job[T any] struct {
	name      string
	timeout   time.Duration
	run       func(ctx context.Context) T
	fallback  T
	recovered func(msg string) T
	unstarted func() T
}

// fanOut runs jobs on a pool of at most maxParallel goroutines and returns
// their results in job order. The whole call is bounded by the longest job
// timeout plus grace; slots still running at that point keep their fallback
// and slots that never left the queue take their unstarted value.
func fanOut[T any](ctx context.Context, jobs []job[T], maxParallel int, grace time.Duration, log logger.Logger) []T {
	results := make([]T, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	var longest time.Duration
	for i, j := range jobs {
		results[i] = j.fallback
		if j.timeout > longest {
			longest = j.timeout
		}
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	ctx, cancel := context.WithTimeout(ctx, longest+grace)
	defer cancel()

	type outcome struct {
		slot  int
		value T
	}
	// Buffered so late finishers never block once the caller has returned.
	done := make(chan outcome, len(jobs))
	// A slot is claimed exactly once, by its worker or by the deadline.
	claimed := make([]atomic.Bool, len(jobs))

	p := pool.New().WithMaxGoroutines(maxParallel)
	go func() {
		for i, j := range jobs {
			p.Go(func() {
				if ctx.Err() != nil || !claimed[i].CompareAndSwap(false, true) {
					return
				}
				defer func() {
					if r := recover(); r != nil {
						log.Error("probe %s panicked: %v", j.name, r)
						v := j.fallback
						if j.recovered != nil {
							v = j.recovered(fmt.Sprint(r))
						}
						done <- outcome{slot: i, value: v}
					}
				}()

				jctx, jcancel := context.WithTimeout(ctx, j.timeout)
				defer jcancel()
				done <- outcome{slot: i, value: j.run(jctx)}
			})
		}
		p.Wait()
		close(done)
	}()

	filled := 0
	for {
		select {
		case o, ok := <-done:
			if !ok {
				return results
			}
			results[o.slot] = o.value
			filled++
		case <-ctx.Done():
		drain:
			for {
				select {
				case o, ok := <-done:
					if !ok {
						break drain
					}
					results[o.slot] = o.value
					filled++
				default:
					break drain
				}
			}
			queued := 0
			for i, j := range jobs {
				if claimed[i].CompareAndSwap(false, true) {
					queued++
					if j.unstarted != nil {
						results[i] = j.unstarted()
					}
				}
			}
			log.Warn("probe deadline reached with %d of %d probe(s) pending, %d never started",
				len(jobs)-filled, len(jobs), queued)
			return results
		}
	}
}
