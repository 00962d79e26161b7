package internal

import "github.com/AnatoleLucet/reconcile/internal/scheduler"

type EffectType int

const (
	PassiveUnmount EffectType = iota
	PassiveMount
)

type EffectQueue struct {
	effects map[EffectType][]func()
}

func NewEffectQueue() *EffectQueue {
	effects := make(map[EffectType][]func())
	effects[PassiveUnmount] = make([]func(), 0)
	effects[PassiveMount] = make([]func(), 0)

	return &EffectQueue{effects}
}

func (q *EffectQueue) Enqueue(typ EffectType, fn func()) {
	q.effects[typ] = append(q.effects[typ], fn)
}

func (q *EffectQueue) RunEffects(typ EffectType) {
	effects := q.effects[typ]
	q.effects[typ] = nil

	for _, effect := range effects {
		effect()
	}
}

func (q *EffectQueue) Len(typ EffectType) int {
	return len(q.effects[typ])
}

type syncCallback struct {
	fn        func()
	cancelled bool
}

// SyncQueue holds sync-lane root work. It is flushed at the end of the outermost
// batch or commit, or by an immediate-priority task if nobody flushes it first.
type SyncQueue struct {
	callbacks []*syncCallback
	flushing  bool
	task      *scheduler.Task
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) Len() int {
	return len(q.callbacks)
}

func (r *Runtime) scheduleSyncCallback(fn func()) *syncCallback {
	cb := &syncCallback{fn: fn}
	q := r.syncQueue
	q.callbacks = append(q.callbacks, cb)

	if q.task == nil {
		q.task = r.scheduler.Schedule(scheduler.ImmediatePriority, func(bool) scheduler.Callback {
			r.syncQueue.task = nil
			r.flushSyncCallbackQueue()
			return nil
		}, 0)
	}
	return cb
}

func (r *Runtime) flushSyncCallbackQueue() {
	q := r.syncQueue
	if q.task != nil {
		r.scheduler.Cancel(q.task)
		q.task = nil
	}

	if q.flushing || len(q.callbacks) == 0 {
		return
	}

	q.flushing = true
	defer func() { q.flushing = false }()

	r.scheduler.RunWithPriority(scheduler.ImmediatePriority, func() {
		// callbacks may queue more callbacks
		for i := 0; i < len(q.callbacks); i++ {
			if cb := q.callbacks[i]; !cb.cancelled {
				cb.fn()
			}
		}
		q.callbacks = nil
	})
}
