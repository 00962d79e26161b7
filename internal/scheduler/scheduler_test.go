package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(log *[]string, name string) Callback {
	return func(didTimeout bool) Callback {
		*log = append(*log, name)
		return nil
	}
}

func TestScheduler(t *testing.T) {
	t.Run("runs tasks by expiration time", func(t *testing.T) {
		log := []string{}
		s := NewScheduler(NewManualClock())

		s.Schedule(IdlePriority, record(&log, "idle"), 0)
		s.Schedule(NormalPriority, record(&log, "normal"), 0)
		s.Schedule(ImmediatePriority, record(&log, "immediate"), 0)
		s.Schedule(UserBlockingPriority, record(&log, "user-blocking"), 0)
		s.Schedule(NormalPriority, record(&log, "normal 2"), 0)

		s.Flush()

		assert.Equal(t, []string{"immediate", "user-blocking", "normal", "normal 2", "idle"}, log)
		assert.False(t, s.Pending())
	})

	t.Run("cancelled tasks never run", func(t *testing.T) {
		log := []string{}
		s := NewScheduler(NewManualClock())

		a := s.Schedule(NormalPriority, record(&log, "a"), 0)
		s.Schedule(NormalPriority, record(&log, "b"), 0)
		s.Cancel(a)
		assert.True(t, a.Cancelled())

		s.Flush()
		assert.Equal(t, []string{"b"}, log)
	})

	t.Run("continuations keep the task", func(t *testing.T) {
		log := []string{}
		s := NewScheduler(NewManualClock())

		steps := 0
		var work Callback
		work = func(didTimeout bool) Callback {
			steps++
			log = append(log, fmt.Sprintf("step %d", steps))
			if steps < 3 {
				return work
			}
			return nil
		}

		task := s.Schedule(NormalPriority, work, 0)
		s.Schedule(LowPriority, record(&log, "low"), 0)

		s.Flush()
		assert.Equal(t, []string{"step 1", "step 2", "step 3", "low"}, log)
		assert.True(t, task.Cancelled())
	})

	t.Run("yields when the slice runs out", func(t *testing.T) {
		log := []string{}
		clock := NewManualClock()
		s := NewScheduler(clock)

		s.Schedule(NormalPriority, func(bool) Callback {
			log = append(log, "a")
			clock.Advance(10 * time.Millisecond)
			return nil
		}, 0)
		s.Schedule(NormalPriority, record(&log, "b"), 0)

		assert.True(t, s.FlushSlice())
		assert.Equal(t, []string{"a"}, log)

		assert.False(t, s.FlushSlice())
		assert.Equal(t, []string{"a", "b"}, log)
	})

	t.Run("expired tasks run past the slice", func(t *testing.T) {
		log := []string{}
		clock := NewManualClock()
		s := NewScheduler(clock)

		s.Schedule(ImmediatePriority, func(didTimeout bool) Callback {
			log = append(log, fmt.Sprintf("first timeout=%v", didTimeout))
			clock.Advance(10 * time.Millisecond)
			return nil
		}, 0)
		s.Schedule(ImmediatePriority, func(didTimeout bool) Callback {
			log = append(log, fmt.Sprintf("second timeout=%v", didTimeout))
			return nil
		}, 0)

		assert.False(t, s.FlushSlice())
		assert.Equal(t, []string{"first timeout=true", "second timeout=true"}, log)
	})

	t.Run("delayed tasks wait for their start time", func(t *testing.T) {
		log := []string{}
		clock := NewManualClock()
		s := NewScheduler(clock)

		s.Schedule(UserBlockingPriority, record(&log, "delayed"), 100*time.Millisecond)
		s.Schedule(NormalPriority, record(&log, "now"), 0)

		s.Flush()
		assert.Equal(t, []string{"now"}, log)
		assert.True(t, s.Pending())

		start, ok := s.NextTimer()
		require.True(t, ok)
		assert.Equal(t, 100*time.Millisecond, start)

		clock.Advance(100 * time.Millisecond)
		s.Flush()
		assert.Equal(t, []string{"now", "delayed"}, log)
		assert.False(t, s.Pending())
	})

	t.Run("run with priority scopes the current priority", func(t *testing.T) {
		s := NewScheduler(NewManualClock())
		assert.Equal(t, NormalPriority, s.CurrentPriority())

		s.RunWithPriority(ImmediatePriority, func() {
			assert.Equal(t, ImmediatePriority, s.CurrentPriority())
			s.RunWithPriority(IdlePriority, func() {
				assert.Equal(t, IdlePriority, s.CurrentPriority())
			})
			assert.Equal(t, ImmediatePriority, s.CurrentPriority())
		})
		assert.Equal(t, NormalPriority, s.CurrentPriority())
	})

	t.Run("tasks see their own priority", func(t *testing.T) {
		s := NewScheduler(NewManualClock())

		var got Priority
		s.Schedule(UserBlockingPriority, func(bool) Callback {
			got = s.CurrentPriority()
			return nil
		}, 0)
		s.Flush()

		assert.Equal(t, UserBlockingPriority, got)
		assert.Equal(t, NormalPriority, s.CurrentPriority())
	})

	t.Run("tasks scheduled from a task run in the same flush", func(t *testing.T) {
		log := []string{}
		s := NewScheduler(NewManualClock())

		s.Schedule(NormalPriority, func(bool) Callback {
			log = append(log, "outer")
			s.Schedule(ImmediatePriority, record(&log, "inner"), 0)
			return nil
		}, 0)
		s.Schedule(NormalPriority, record(&log, "sibling"), 0)

		s.Flush()
		assert.Equal(t, []string{"outer", "inner", "sibling"}, log)
	})

	t.Run("host loop runs posted work", func(t *testing.T) {
		s := NewScheduler(nil)
		ctx, cancel := context.WithCancel(context.Background())

		var mu sync.Mutex
		log := []string{}
		done := make(chan struct{})

		go func() {
			assert.ErrorIs(t, s.Run(ctx), context.Canceled)
			close(done)
		}()

		s.Post(func() {
			s.Schedule(NormalPriority, func(bool) Callback {
				mu.Lock()
				log = append(log, "task")
				mu.Unlock()
				s.Schedule(NormalPriority, func(bool) Callback {
					mu.Lock()
					log = append(log, "timer")
					mu.Unlock()
					cancel()
					return nil
				}, time.Millisecond)
				return nil
			}, 0)
		})

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("host loop did not stop")
		}

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"task", "timer"}, log)
	})
}

func TestTaskHeap(t *testing.T) {
	h := newTaskHeap()
	for i, idx := range []time.Duration{5, 1, 4, 1, 3, 2} {
		h.Insert(&Task{id: uint64(i), sortIndex: idx})
	}

	var got []string
	for h.Len() > 0 {
		task := h.Pop()
		got = append(got, fmt.Sprintf("%d/%d", task.sortIndex, task.id))
	}

	assert.Equal(t, []string{"1/1", "1/3", "2/5", "3/4", "4/2", "5/0"}, got)
	assert.Nil(t, h.Pop())
	assert.Nil(t, h.Peek())
}

func TestManualClock(t *testing.T) {
	t.Run("without a step time only moves when told", func(t *testing.T) {
		c := NewManualClock()

		assert.Equal(t, time.Duration(0), c.Now())
		assert.Equal(t, time.Duration(0), c.Now())

		c.Advance(3 * time.Millisecond)
		assert.Equal(t, 3*time.Millisecond, c.Now())

		c.Set(time.Second)
		assert.Equal(t, time.Second, c.Now())
	})

	t.Run("every read moves a stepping clock", func(t *testing.T) {
		c := NewManualClock()
		s := NewScheduler(c)
		c.Step = time.Millisecond

		assert.Equal(t, time.Duration(0), c.Now())
		s.ShouldYield()
		s.ShouldYield()

		assert.Equal(t, 3*time.Millisecond, c.Now())
	})
}
