package scheduler

import (
	"context"
	"math"
	"sync"
	"time"
)

type Priority uint8

const (
	NoPriority Priority = iota
	ImmediatePriority
	UserBlockingPriority
	NormalPriority
	LowPriority
	IdlePriority
)

func (p Priority) String() string {
	switch p {
	case ImmediatePriority:
		return "immediate"
	case UserBlockingPriority:
		return "user-blocking"
	case NormalPriority:
		return "normal"
	case LowPriority:
		return "low"
	case IdlePriority:
		return "idle"
	}
	return "none"
}

// Timeout is how long a task of priority p may wait before it is considered expired.
func (p Priority) Timeout() time.Duration {
	switch p {
	case ImmediatePriority:
		return -time.Millisecond
	case UserBlockingPriority:
		return 250 * time.Millisecond
	case LowPriority:
		return 10 * time.Second
	case IdlePriority:
		return math.MaxInt32 * time.Millisecond
	default:
		return 5 * time.Second
	}
}

const DefaultYieldInterval = 5 * time.Millisecond

// Callback is a unit of scheduled work. didTimeout reports that the task's deadline has passed.
// Returning a non-nil continuation keeps the task queued with the same identity.
type Callback func(didTimeout bool) Callback

type Task struct {
	id       uint64
	callback Callback
	priority Priority

	startTime      time.Duration
	expirationTime time.Duration
	sortIndex      time.Duration
}

func (t *Task) Priority() Priority {
	return t.priority
}

func (t *Task) ExpirationTime() time.Duration {
	return t.expirationTime
}

// Cancelled reports whether the task has no callback left to run.
func (t *Task) Cancelled() bool {
	return t.callback == nil
}

type Scheduler struct {
	clock         Clock
	yieldInterval time.Duration

	tasks  *taskHeap
	timers *taskHeap
	nextID uint64

	current         *Task
	currentPriority Priority

	performing bool
	deadline   time.Duration

	wake chan struct{}

	inboxMu sync.Mutex
	inbox   []func()
}

func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = NewRealClock()
	}

	return &Scheduler{
		clock:           clock,
		yieldInterval:   DefaultYieldInterval,
		tasks:           newTaskHeap(),
		timers:          newTaskHeap(),
		currentPriority: NormalPriority,
		wake:            make(chan struct{}, 1),
	}
}

func (s *Scheduler) SetYieldInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultYieldInterval
	}
	s.yieldInterval = d
}

func (s *Scheduler) Now() time.Duration {
	return s.clock.Now()
}

// Schedule queues cb at priority p. With a positive delay the task waits in the timer queue
// until its start time.
func (s *Scheduler) Schedule(p Priority, cb Callback, delay time.Duration) *Task {
	now := s.clock.Now()

	start := now
	if delay > 0 {
		start += delay
	}

	s.nextID++
	task := &Task{
		id:             s.nextID,
		callback:       cb,
		priority:       p,
		startTime:      start,
		expirationTime: start + p.Timeout(),
	}

	if start > now {
		task.sortIndex = start
		s.timers.Insert(task)
	} else {
		task.sortIndex = task.expirationTime
		s.tasks.Insert(task)
	}

	s.notify()
	return task
}

// Cancel turns the task into a no-op. It is dropped when it reaches the top of its queue.
func (s *Scheduler) Cancel(t *Task) {
	if t != nil {
		t.callback = nil
	}
}

func (s *Scheduler) CurrentPriority() Priority {
	return s.currentPriority
}

// CurrentTask is the task whose callback is running, if any.
func (s *Scheduler) CurrentTask() *Task {
	return s.current
}

// RunWithPriority runs fn with p as the current priority.
func (s *Scheduler) RunWithPriority(p Priority, fn func()) {
	prev := s.currentPriority
	s.currentPriority = p
	defer func() { s.currentPriority = prev }()

	fn()
}

// ShouldYield reports whether the current time slice has run out.
func (s *Scheduler) ShouldYield() bool {
	return s.clock.Now() >= s.deadline
}

// Pending reports whether any task is queued or waiting on a timer.
func (s *Scheduler) Pending() bool {
	return s.tasks.Len() > 0 || s.timers.Len() > 0
}

// NextTimer returns the start time of the earliest delayed task.
func (s *Scheduler) NextTimer() (time.Duration, bool) {
	for t := s.timers.Peek(); t != nil; t = s.timers.Peek() {
		if t.callback != nil {
			return t.startTime, true
		}
		s.timers.Pop()
	}
	return 0, false
}

// FlushSlice runs tasks for one time slice and reports whether ready tasks remain.
// Expired tasks run even when the slice is exhausted.
func (s *Scheduler) FlushSlice() bool {
	if s.performing {
		return s.tasks.Len() > 0
	}

	now := s.clock.Now()
	s.deadline = now + s.yieldInterval

	s.performing = true
	prevPriority := s.currentPriority
	defer func() {
		s.current = nil
		s.currentPriority = prevPriority
		s.performing = false
	}()

	return s.workLoop(now)
}

// Flush runs slices until no ready task remains.
func (s *Scheduler) Flush() {
	for s.FlushSlice() {
	}
}

func (s *Scheduler) workLoop(now time.Duration) bool {
	s.advanceTimers(now)

	for s.current = s.tasks.Peek(); s.current != nil; s.current = s.tasks.Peek() {
		task := s.current
		if task.expirationTime > now && s.ShouldYield() {
			break
		}

		cb := task.callback
		if cb == nil {
			s.tasks.Pop()
			continue
		}

		task.callback = nil
		s.currentPriority = task.priority

		next := cb(task.expirationTime <= now)
		now = s.clock.Now()

		if next != nil {
			task.callback = next
		} else if task == s.tasks.Peek() {
			s.tasks.Pop()
		}

		s.advanceTimers(now)
	}

	return s.tasks.Len() > 0
}

func (s *Scheduler) advanceTimers(now time.Duration) {
	for t := s.timers.Peek(); t != nil; t = s.timers.Peek() {
		switch {
		case t.callback == nil:
			s.timers.Pop()
		case t.startTime <= now:
			s.timers.Pop()
			t.sortIndex = t.expirationTime
			s.tasks.Insert(t)
		default:
			return
		}
	}
}

// Post queues fn to run on the goroutine that drives Run. It is safe to call from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, fn)
	s.inboxMu.Unlock()

	s.notify()
}

// DrainPosted runs every function queued with Post.
func (s *Scheduler) DrainPosted() {
	s.inboxMu.Lock()
	fns := s.inbox
	s.inbox = nil
	s.inboxMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run is the host loop. It interleaves posted functions with time slices and sleeps
// until the next timer or wake-up when there is nothing to do.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.DrainPosted()
		if s.FlushSlice() {
			continue
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if start, ok := s.NextTimer(); ok {
			timer = time.NewTimer(max(start-s.clock.Now(), 0))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
		case <-s.wake:
		case <-fire:
		}

		if timer != nil {
			timer.Stop()
		}
	}
}
