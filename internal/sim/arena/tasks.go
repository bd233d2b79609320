package arena

import (
	"sort"
	"time"

	"arenacraft.gg/internal/sim/game"
)

// task is a deferred action on the arena's simulated clock. Tasks never use
// wall timers: they run inside the tick step, so disposing the arena or
// cancelling them is race-free on the loop goroutine.
type task struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

type taskQueue struct {
	tasks []*task
	seq   uint64
}

// After schedules fn to run once now+d is reached. The returned CancelFunc is
// idempotent.
func (q *taskQueue) After(now, d time.Duration, fn func()) game.CancelFunc {
	q.seq++
	t := &task{at: now + d, seq: q.seq, fn: fn}
	q.tasks = append(q.tasks, t)
	return func() { t.cancelled = true }
}

// RunDue fires every non-cancelled task whose deadline passed, in deadline
// then schedule order.
func (q *taskQueue) RunDue(now time.Duration) {
	if len(q.tasks) == 0 {
		return
	}
	var due, rest []*task
	for _, t := range q.tasks {
		if t.cancelled {
			continue
		}
		if t.at <= now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	q.tasks = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if t.cancelled {
			continue
		}
		t.fn()
	}
}

func (q *taskQueue) CancelAll() {
	for _, t := range q.tasks {
		t.cancelled = true
	}
	q.tasks = nil
}

func (q *taskQueue) Pending() int {
	n := 0
	for _, t := range q.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}
