package internal

import (
	"time"

	"github.com/AnatoleLucet/reconcile/internal/lane"
	"github.com/AnatoleLucet/reconcile/internal/scheduler"
)

// schedulerPriority maps a lane priority to the scheduler priority of the task that renders it.
func schedulerPriority(p lane.Priority) scheduler.Priority {
	switch {
	case p >= lane.SyncBatchedPriority:
		return scheduler.ImmediatePriority
	case p >= lane.InputContinuousPriority:
		return scheduler.UserBlockingPriority
	case p >= lane.SelectiveHydrationPriority:
		return scheduler.NormalPriority
	case p >= lane.OffscreenPriority:
		return scheduler.IdlePriority
	}
	return scheduler.NoPriority
}

// ensureRootIsScheduled makes sure root has exactly one callback queued, at the priority
// of its most urgent pending lanes. An existing callback at the same priority is kept.
func (r *Runtime) ensureRootIsScheduled(root *RenderRoot, now time.Duration) {
	existing := root.callbackNode

	root.lanes.MarkStarvedAsExpired(now)
	next, priority := root.lanes.NextLanes(r.wipLanesFor(root))

	if next == lane.NoLanes {
		if existing != nil {
			r.cancelCallback(existing)
		}
		root.callbackNode = nil
		root.callbackPriority = lane.NoPriority
		return
	}

	if existing != nil {
		if root.callbackPriority == priority {
			return
		}
		r.cancelCallback(existing)
	}

	switch priority {
	case lane.SyncPriority:
		var cb *syncCallback
		cb = r.scheduleSyncCallback(func() {
			if root.callbackNode == cb {
				root.callbackNode = nil
			}
			r.performSyncWorkOnRoot(root)
		})
		root.callbackNode = cb

	case lane.SyncBatchedPriority:
		var task *scheduler.Task
		task = r.scheduler.Schedule(scheduler.ImmediatePriority, func(bool) scheduler.Callback {
			if root.callbackNode == task {
				root.callbackNode = nil
			}
			r.performSyncWorkOnRoot(root)
			return nil
		}, 0)
		root.callbackNode = task

	default:
		root.callbackNode = r.scheduler.Schedule(schedulerPriority(priority), r.performConcurrentWorkOnRoot(root), 0)
	}
	root.callbackPriority = priority

	r.logger.Debug().
		Str("root", root.ID).
		Stringer("lanes", next).
		Stringer("priority", priority).
		Log("root scheduled")
}

func (r *Runtime) cancelCallback(cb any) {
	switch c := cb.(type) {
	case *scheduler.Task:
		r.scheduler.Cancel(c)
	case *syncCallback:
		c.cancelled = true
	}
}
