package scan

import (
	"context"
	"sync"
	"time"
)

// Task is an in-flight upload with observable progress. Progress percentages
// arrive on a channel as a finite increasing sequence; the channel closes
// when the task finishes or is cancelled. Wait blocks until then and
// returns the outcome.
type Task struct {
	progress chan int
	done     chan struct{}

	mu  sync.Mutex
	err error
}

// StartUpload runs work in the background while emitting progress on a fixed
// interval. Progress climbs toward (but never reaches) 100 while the work
// runs, then 100 is emitted once it completes. Cancelling the context stops
// both the work and the progress stream; Wait then reports the context error.
func StartUpload(ctx context.Context, interval time.Duration, work func(ctx context.Context) error) *Task {
	t := &Task{
		progress: make(chan int, 16),
		done:     make(chan struct{}),
	}

	workDone := make(chan error, 1)
	go func() { workDone <- work(ctx) }()

	go func() {
		defer close(t.done)
		defer close(t.progress)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		pct := 0
		for {
			select {
			case <-ctx.Done():
				t.setErr(ctx.Err())
				return
			case err := <-workDone:
				if err != nil {
					t.setErr(err)
					return
				}
				t.emit(100)
				return
			case <-ticker.C:
				if pct < 90 {
					pct += 10
					t.emit(pct)
				}
			}
		}
	}()

	return t
}

// Progress returns the stream of progress percentages. The channel is
// closed when the task ends.
func (t *Task) Progress() <-chan int { return t.progress }

// Wait blocks until the task ends and returns its outcome.
func (t *Task) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

func (t *Task) emit(pct int) {
	select {
	case t.progress <- pct:
	default:
	}
}
