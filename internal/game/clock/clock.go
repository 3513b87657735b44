// Package clock provides the cooperative scheduler that drives every deferred
// callback in a session.
//
// Simulation time is a duration since session start that only moves when the
// fixed-step loop calls Advance. Nothing here is safe for concurrent use; the
// whole simulation runs on one goroutine.
package clock

import (
	"container/heap"
	"time"
)

// Liveness is a generation counter owned by an entity. Tokens captured from it
// go stale as soon as Invalidate is called.
type Liveness struct {
	gen uint64
}

// Token captures the current generation.
func (l *Liveness) Token() Token { return Token{owner: l, gen: l.gen} }

// Invalidate makes every previously captured token stale.
func (l *Liveness) Invalidate() { l.gen++ }

// Token is a captured liveness generation. The zero Token never goes stale.
type Token struct {
	owner *Liveness
	gen   uint64
}

// Always is a token for session-scoped work that is never cancelled.
var Always = Token{}

// Valid reports whether the owner has not been invalidated since capture.
func (t Token) Valid() bool {
	return t.owner == nil || t.owner.gen == t.gen
}

type task struct {
	due      time.Duration
	seq      uint64
	interval time.Duration
	token    Token
	fn       func()
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x any)   { *q = append(*q, x.(*task)) }
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Scheduler runs deferred and repeating callbacks against simulation time.
//
// Invariant: callbacks run in due-time order; equal due times run in the
// order they were scheduled.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue taskQueue
}

// NewScheduler returns a scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Pending returns the number of queued callbacks, stale ones included.
func (s *Scheduler) Pending() int { return len(s.queue) }

// After schedules fn to run once delay from now.
//
// Precondition: fn must not be nil.
// Postcondition: fn runs during the Advance that reaches Now()+delay, unless
// token has gone stale by then, in which case it is dropped silently.
func (s *Scheduler) After(delay time.Duration, token Token, fn func()) {
	if fn == nil {
		panic("clock.Scheduler.After: fn must not be nil")
	}
	if delay < 0 {
		delay = 0
	}
	s.push(&task{due: s.now + delay, token: token, fn: fn})
}

// Every schedules fn to run each interval, starting one interval from now.
//
// Precondition: interval > 0; fn must not be nil.
// Postcondition: fn stops repeating forever once token goes stale.
func (s *Scheduler) Every(interval time.Duration, token Token, fn func()) {
	if interval <= 0 {
		panic("clock.Scheduler.Every: interval must be > 0")
	}
	if fn == nil {
		panic("clock.Scheduler.Every: fn must not be nil")
	}
	s.push(&task{due: s.now + interval, interval: interval, token: token, fn: fn})
}

func (s *Scheduler) push(t *task) {
	s.seq++
	t.seq = s.seq
	heap.Push(&s.queue, t)
}

// Advance moves simulation time forward by dt and runs every callback that
// comes due, including ones scheduled by callbacks during this call.
//
// Precondition: dt >= 0.
// Postcondition: Now() has increased by exactly dt.
func (s *Scheduler) Advance(dt time.Duration) {
	if dt < 0 {
		panic("clock.Scheduler.Advance: dt must be >= 0")
	}
	target := s.now + dt
	for len(s.queue) > 0 && s.queue[0].due <= target {
		t := heap.Pop(&s.queue).(*task)
		s.now = t.due
		if !t.token.Valid() {
			continue
		}
		t.fn()
		if t.interval > 0 && t.token.Valid() {
			t.due += t.interval
			s.push(t)
		}
	}
	s.now = target
}
