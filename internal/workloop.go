package internal

import (
	"time"

	"github.com/AnatoleLucet/reconcile/internal/lane"
	"github.com/AnatoleLucet/reconcile/internal/scheduler"
)

type executionContext uint8

const (
	noContext     executionContext = 0
	renderContext executionContext = 1 << 0
	commitContext executionContext = 1 << 1
)

type exitStatus uint8

const (
	rootIncomplete exitStatus = iota
	rootErrored
	rootCompleted
)

func (r *Runtime) requestEventTime() time.Duration {
	return r.scheduler.Now()
}

// requestUpdateLane picks the lane for an update scheduled right now.
func (r *Runtime) requestUpdateLane() lane.Lane {
	if r.executionContext&renderContext != 0 && r.wipRootRenderLanes != lane.NoLanes {
		return lane.PickArbitraryLane(r.wipRootRenderLanes)
	}

	if r.inTransition {
		if r.transitionLane == lane.NoLane {
			var pending lane.Lanes
			for _, root := range r.roots.ToSlice() {
				pending |= root.lanes.Pending
			}
			r.transitionLane = lane.FindTransitionLane(r.wipRootIncludedLanes, pending)
		}
		return r.transitionLane
	}

	if r.updatePriority != lane.NoPriority {
		return lane.FindUpdateLane(r.updatePriority, r.wipRootIncludedLanes)
	}

	return lane.SyncLane
}

// scheduleUpdateOnNode records an update on lane for n and makes sure its root gets a pass.
// It returns nil when the update was dropped.
func (r *Runtime) scheduleUpdateOnNode(n *Node, ln lane.Lane, eventTime time.Duration) *RenderRoot {
	if err := r.checkForNestedUpdates(); err != nil {
		r.report(err)
		return nil
	}

	root := r.markUpdateLaneFromNodeToRoot(n, ln)
	if root == nil {
		r.logger.Warning().Str("node", n.name()).Log("update on a node that is no longer mounted")
		return nil
	}

	root.lanes.MarkUpdated(ln, eventTime)

	if root == r.wipRoot && r.executionContext&renderContext == 0 {
		// an interleaved update on the tree being rendered
		r.wipRootUpdatedLanes |= ln
	}

	r.ensureRootIsScheduled(root, eventTime)

	if ln == lane.SyncLane && r.executionContext == noContext {
		if r.batcher.IsBatching() {
			r.batcher.Defer()
		} else {
			r.flushSyncCallbackQueue()
		}
	}

	return root
}

func (r *Runtime) checkForNestedUpdates() error {
	if r.nestedUpdateCount > r.limits.NestedUpdates {
		r.nestedUpdateCount = 0
		r.rootWithNestedUpdates = nil
		return ErrNestedUpdateLimit
	}
	if r.nestedPassiveUpdateCount > r.limits.NestedPassiveUpdates {
		r.nestedPassiveUpdateCount = 0
		return ErrNestedPassiveUpdateLimit
	}
	return nil
}

// markUpdateLaneFromNodeToRoot adds ln to n and to the child lanes of its ancestors.
func (r *Runtime) markUpdateLaneFromNodeToRoot(n *Node, ln lane.Lane) *RenderRoot {
	n.Lanes |= ln
	if alt := r.node(n.Alternate); alt != nil {
		alt.Lanes |= ln
	}

	node := n
	for parent := r.parentOf(node); parent != nil; parent = r.parentOf(node) {
		parent.ChildLanes |= ln
		if alt := r.node(parent.Alternate); alt != nil {
			alt.ChildLanes |= ln
		}
		node = parent
	}

	role, ok := node.Role.(*RootRole)
	if !ok || role.Root.unmounted {
		return nil
	}
	return role.Root
}

// prepareFreshStack throws away any pass in progress and starts a new one on root.
func (r *Runtime) prepareFreshStack(root *RenderRoot, lanes lane.Lanes) {
	root.finishedWork = NoNode
	root.finishedLanes = lane.NoLanes

	r.abandonPass()

	r.wipRoot = root
	wip := r.createWorkInProgress(r.node(root.current), nil)
	r.wip = wip.ID

	r.wipRootRenderLanes = lanes
	r.subtreeRenderLanes = lanes
	r.wipRootIncludedLanes = lanes
	r.wipRootSkippedLanes = lane.NoLanes
	r.wipRootUpdatedLanes = lane.NoLanes
	r.exitStatus = rootIncomplete
	r.renderErr = nil
}

// abandonPass throws away the pass in progress, if any.
func (r *Runtime) abandonPass() {
	if r.wip != NoNode {
		r.unwindInterruptedWork(r.node(r.wip))
	}
	if r.wipRoot != nil && r.wip != NoNode {
		r.logger.Debug().
			Str("root", r.wipRoot.ID).
			Stringer("lanes", r.wipRootRenderLanes).
			Log("discarding pass in progress")
	}
	r.discardPass()
	r.contexts.Reset()
	r.resetPass()
}

// unwindInterruptedWork pops the provider values pushed by n and its in-progress ancestors.
func (r *Runtime) unwindInterruptedWork(n *Node) {
	for ; n != nil; n = r.node(n.Parent) {
		if _, ok := n.Role.(*ProviderRole); ok {
			r.contexts.Pop(n.ID)
		}
	}
}

// discardPass frees every node the abandoned pass allocated.
func (r *Runtime) discardPass() {
	for _, id := range r.passCreated {
		n := r.node(id)
		if n == nil {
			continue
		}
		if alt := r.node(n.Alternate); alt != nil && alt.Alternate == id {
			alt.Alternate = NoNode
		}
		r.nodes.Free(id)
	}
	r.passCreated = r.passCreated[:0]
}

func (r *Runtime) resetPass() {
	r.wipRoot = nil
	r.wip = NoNode
	r.wipRootRenderLanes = lane.NoLanes
	r.subtreeRenderLanes = lane.NoLanes
}

func (r *Runtime) performUnitOfWork(unit *Node) {
	current := r.node(unit.Alternate)
	next := r.beginWork(current, unit, r.subtreeRenderLanes)
	unit.MemoizedProps = unit.PendingProps

	if next == nil {
		r.completeUnitOfWork(unit)
		return
	}
	r.wip = next.ID
}

func (r *Runtime) completeUnitOfWork(unit *Node) {
	completed := unit
	for {
		r.completeWork(r.node(completed.Alternate), completed)

		if sib := r.node(completed.Sibling); sib != nil {
			r.wip = sib.ID
			return
		}

		parent := r.node(completed.Parent)
		if parent == nil {
			r.wip = NoNode
			r.exitStatus = rootCompleted
			return
		}
		completed = parent
		r.wip = parent.ID
	}
}

func (r *Runtime) handleError(err *RenderError) {
	r.unwindInterruptedWork(r.node(r.wip))
	r.contexts.Reset()
	r.wip = NoNode
	r.exitStatus = rootErrored
	r.renderErr = err
}

func (r *Runtime) renderRootSync(root *RenderRoot, lanes lane.Lanes) exitStatus {
	prev := r.executionContext
	r.executionContext |= renderContext
	defer func() { r.executionContext = prev }()

	if r.wipRoot != root || r.wipRootRenderLanes != lanes {
		r.prepareFreshStack(root, lanes)
	}

	for r.wip != NoNode {
		if err := r.performUnitOfWorkSafe(r.node(r.wip)); err != nil {
			r.handleError(err)
		}
	}

	r.resetPass()
	return r.exitStatus
}

func (r *Runtime) renderRootConcurrent(root *RenderRoot, lanes lane.Lanes) exitStatus {
	prev := r.executionContext
	r.executionContext |= renderContext
	defer func() { r.executionContext = prev }()

	if r.wipRoot != root || r.wipRootRenderLanes != lanes {
		r.prepareFreshStack(root, lanes)
	}

	for r.wip != NoNode && !r.scheduler.ShouldYield() {
		if err := r.performUnitOfWorkSafe(r.node(r.wip)); err != nil {
			r.handleError(err)
		}
	}

	if r.wip != NoNode {
		return rootIncomplete
	}
	r.resetPass()
	return r.exitStatus
}

// finishRender commits a completed pass or gives up on an errored one.
func (r *Runtime) finishRender(root *RenderRoot, status exitStatus, lanes lane.Lanes) {
	switch status {
	case rootErrored:
		err := r.renderErr
		r.discardPass()
		r.renderErr = nil

		// parked until a new update arrives
		root.lanes.MarkSuspended(lanes)
		r.report(err)

	case rootCompleted:
		root.finishedWork = r.node(root.current).Alternate
		root.finishedLanes = lanes
		r.commitRoot(root)
	}
}

// performSyncWorkOnRoot renders and commits root without yielding.
func (r *Runtime) performSyncWorkOnRoot(root *RenderRoot) {
	if root.unmounted || r.executionContext&(renderContext|commitContext) != 0 {
		return
	}

	r.flushPassiveEffects()

	var lanes lane.Lanes
	var status exitStatus

	if root == r.wipRoot && lane.IncludesSome(root.lanes.Expired, r.wipRootRenderLanes) {
		// finish the expired pass first
		lanes = r.wipRootRenderLanes
		status = r.renderRootSync(root, lanes)
		if lane.IncludesSome(r.wipRootIncludedLanes, r.wipRootUpdatedLanes) {
			lanes, _ = root.lanes.NextLanes(lanes)
			status = r.renderRootSync(root, lanes)
		}
	} else {
		lanes, _ = root.lanes.NextLanes(lane.NoLanes)
		if lanes == lane.NoLanes {
			r.ensureRootIsScheduled(root, r.scheduler.Now())
			return
		}
		status = r.renderRootSync(root, lanes)
	}

	start := r.scheduler.Now()
	r.logger.Debug().
		Str("root", root.ID).
		Stringer("lanes", lanes).
		Bool("sync", true).
		Log("render finished")

	r.finishRender(root, status, lanes)
	r.ensureRootIsScheduled(root, start)
}

// performConcurrentWorkOnRoot is the scheduler task of a root. It renders in slices
// and returns itself as a continuation while the same pass is in progress.
func (r *Runtime) performConcurrentWorkOnRoot(root *RenderRoot) scheduler.Callback {
	var work scheduler.Callback
	work = func(didTimeout bool) scheduler.Callback {
		if root.unmounted {
			return nil
		}
		original := root.callbackNode
		done := func() scheduler.Callback {
			if root.callbackNode == original {
				root.callbackNode = nil
				root.callbackPriority = lane.NoPriority
			}
			return nil
		}

		if r.executionContext&(renderContext|commitContext) != 0 {
			return done()
		}

		if r.flushPassiveEffects() && root.callbackNode != original {
			// the passive flush scheduled something else
			return nil
		}

		lanes, _ := root.lanes.NextLanes(r.wipLanesFor(root))
		if lanes == lane.NoLanes {
			return done()
		}

		if didTimeout {
			// starved: render the lanes synchronously
			root.lanes.MarkExpired(lanes)
			r.ensureRootIsScheduled(root, r.scheduler.Now())
			return done()
		}

		status := r.renderRootConcurrent(root, lanes)

		if status == rootIncomplete {
			if lane.IncludesSome(r.wipRootIncludedLanes, r.wipRootUpdatedLanes) {
				// something rendered in this pass changed under it, start over
				r.abandonPass()
			}
			r.logger.Debug().
				Str("root", root.ID).
				Stringer("lanes", lanes).
				Log("render yielded")
		} else {
			r.logger.Debug().
				Str("root", root.ID).
				Stringer("lanes", lanes).
				Bool("sync", false).
				Log("render finished")
			r.finishRender(root, status, lanes)
		}

		r.ensureRootIsScheduled(root, r.scheduler.Now())
		if root.callbackNode == original {
			return work
		}
		return done()
	}
	return work
}

func (r *Runtime) wipLanesFor(root *RenderRoot) lane.Lanes {
	if root == r.wipRoot {
		return r.wipRootRenderLanes
	}
	return lane.NoLanes
}
