package internal

import (
	"time"

	"github.com/AnatoleLucet/reconcile/internal/lane"
	"github.com/AnatoleLucet/reconcile/internal/scheduler"
)

// CommitStats describes the host work done by one commit.
type CommitStats struct {
	Lanes      lane.Lanes
	Placements int
	Moves      int
	Updates    int
	Deletions  int
	Duration   time.Duration
}

func (r *Runtime) commitRoot(root *RenderRoot) {
	r.scheduler.RunWithPriority(scheduler.ImmediatePriority, func() {
		r.commitRootImpl(root)
	})
}

func (r *Runtime) commitRootImpl(root *RenderRoot) {
	// effects of the previous commit run before this one mutates anything
	for r.rootWithPendingPassiveEffects != nil {
		r.flushPassiveEffects()
	}

	finished := r.node(root.finishedWork)
	lanes := root.finishedLanes
	if finished == nil {
		return
	}

	root.finishedWork = NoNode
	root.finishedLanes = lane.NoLanes
	root.callbackNode = nil
	root.callbackPriority = lane.NoPriority

	root.lanes.MarkFinished(finished.Lanes | finished.ChildLanes)

	if root == r.wipRoot {
		r.resetPass()
	}
	// nodes of the finished pass now belong to the committed tree
	r.passCreated = r.passCreated[:0]

	start := r.scheduler.Now()
	r.stats = &CommitStats{Lanes: lanes}

	if (finished.SubtreeFlags|finished.Flags)&PassiveMask != 0 && !r.rootDoesHavePassiveEffects {
		r.rootDoesHavePassiveEffects = true
		r.scheduler.Schedule(scheduler.NormalPriority, func(bool) scheduler.Callback {
			r.flushPassiveEffects()
			return nil
		}, 0)
	}

	all := BeforeMutationMask | MutationMask | LayoutMask | PassiveMask
	if (finished.SubtreeFlags|finished.Flags)&all != 0 {
		prev := r.executionContext
		r.executionContext |= commitContext

		observer, _ := root.host.(CommitObserver)
		if observer != nil {
			r.hostCall("prepare for commit", func() { observer.PrepareForCommit(root.container) })
		}

		r.commitBeforeMutationEffects(root, finished)
		r.commitMutationEffects(root, finished)

		if observer != nil {
			r.hostCall("reset after commit", func() { observer.ResetAfterCommit(root.container) })
		}

		// the finished tree is current from here on, layout effects observe it
		root.current = finished.ID

		r.commitLayoutEffects(root, finished)

		r.executionContext = prev
	} else {
		root.current = finished.ID
	}

	if r.rootDoesHavePassiveEffects {
		r.rootDoesHavePassiveEffects = false
		r.rootWithPendingPassiveEffects = root
		r.pendingPassiveEffectsLanes = lanes
	}

	if root.lanes.Pending == lane.SyncLane {
		if root == r.rootWithNestedUpdates {
			r.nestedUpdateCount++
		} else {
			r.nestedUpdateCount = 0
			r.rootWithNestedUpdates = root
		}
	} else {
		r.nestedUpdateCount = 0
	}

	r.stats.Duration = r.scheduler.Now() - start
	root.lastCommit = *r.stats
	r.stats = nil

	root.logger.Debug().
		Stringer("lanes", lanes).
		Int("placements", root.lastCommit.Placements).
		Int("moves", root.lastCommit.Moves).
		Int("updates", root.lastCommit.Updates).
		Int("deletions", root.lastCommit.Deletions).
		Dur("duration", root.lastCommit.Duration).
		Log("commit")

	r.ensureRootIsScheduled(root, r.scheduler.Now())

	// sync work scheduled by layout effects
	r.flushSyncCallbackQueue()
}

func (r *Runtime) commitBeforeMutationEffects(root *RenderRoot, finished *Node) {
	if !finished.Flags.has(Snapshot) {
		return
	}
	if clearer, ok := root.host.(ContainerClearer); ok {
		r.hostCall("clear container", func() { clearer.ClearContainer(root.container) })
	}
}

// commitMutationEffects applies deletions, then the subtree, then n itself.
func (r *Runtime) commitMutationEffects(root *RenderRoot, n *Node) {
	for _, id := range n.Deletions {
		if child := r.node(id); child != nil {
			r.commitDeletion(root, child, n)
		}
	}
	n.Deletions = nil

	if n.SubtreeFlags&MutationMask != 0 {
		for child := r.node(n.Child); child != nil; child = r.node(child.Sibling) {
			child.Parent = n.ID
			r.commitMutationEffects(root, child)
		}
	}

	if n.Flags.has(Placement) {
		r.commitPlacement(root, n)
		n.Flags.clear(Placement)
	}
	if n.Flags.has(UpdateFlag) {
		r.commitWork(root, n)
	}
}

func isHostParent(n *Node) bool {
	switch n.Role.(type) {
	case *HostRole, *RootRole:
		return true
	}
	return false
}

// hostParentOf returns the host instance the host nodes below n are attached to.
func (r *Runtime) hostParentOf(root *RenderRoot, n *Node) any {
	for p := r.node(n.Parent); p != nil; p = r.node(p.Parent) {
		switch role := p.Role.(type) {
		case *HostRole:
			return role.Instance
		case *RootRole:
			return root.container
		}
	}
	return root.container
}

// hostSiblingOf finds the host instance n has to be inserted before, skipping
// nodes that are themselves being placed. nil means append.
func (r *Runtime) hostSiblingOf(n *Node) any {
	node := n
siblings:
	for {
		for node.Sibling == NoNode {
			parent := r.node(node.Parent)
			if parent == nil || isHostParent(parent) {
				return nil
			}
			node = parent
		}

		sib := r.node(node.Sibling)
		sib.Parent = node.Parent
		node = sib

		for {
			if _, ok := hostInstance(node); ok {
				break
			}
			if node.Flags.has(Placement) || node.Child == NoNode {
				continue siblings
			}
			child := r.node(node.Child)
			child.Parent = node.ID
			node = child
		}

		if !node.Flags.has(Placement) {
			inst, _ := hostInstance(node)
			return inst
		}
	}
}

func (r *Runtime) commitPlacement(root *RenderRoot, n *Node) {
	parent := r.hostParentOf(root, n)
	before := r.hostSiblingOf(n)
	r.insertOrAppend(root, n, before, parent)

	if n.Alternate != NoNode {
		r.stats.Moves++
	} else {
		r.stats.Placements++
	}
}

func (r *Runtime) insertOrAppend(root *RenderRoot, n *Node, before, parent any) {
	if inst, ok := hostInstance(n); ok {
		if before != nil {
			r.hostCall("insert before", func() { root.host.InsertBefore(parent, inst, before) })
		} else {
			r.hostCall("append child", func() { root.host.AppendChild(parent, inst) })
		}
		return
	}

	for child := r.node(n.Child); child != nil; child = r.node(child.Sibling) {
		r.insertOrAppend(root, child, before, parent)
	}
}

func (r *Runtime) commitWork(root *RenderRoot, n *Node) {
	switch role := n.Role.(type) {
	case *ComponentRole:
		r.commitHookEffectListUnmount(HasEffect|LayoutEffect, n, "layout cleanup")

	case *HostRole:
		payload := role.Payload
		role.Payload = nil
		if payload == nil || role.Instance == nil {
			return
		}
		r.hostCall("commit update", func() { root.host.CommitUpdate(role.Instance, payload) })
		r.stats.Updates++

	case *TextRole:
		text, _ := n.MemoizedProps.(string)
		r.hostCall("commit text update", func() { root.host.CommitUpdate(role.Instance, text) })
		r.stats.Updates++
	}
}

// commitDeletion removes the host instances of the subtree at n from the host tree and
// queues its passive cleanups. The nodes are freed once those cleanups ran.
func (r *Runtime) commitDeletion(root *RenderRoot, n, parent *Node) {
	n.Parent = parent.ID
	r.unmountHostComponents(root, n)

	n.Parent = NoNode
	if alt := r.node(n.Alternate); alt != nil {
		alt.Parent = NoNode
	}
	r.pendingDeletions = append(r.pendingDeletions, n.ID)
	r.stats.Deletions++
}

func (r *Runtime) unmountHostComponents(root *RenderRoot, n *Node) {
	parent := r.hostParentOf(root, n)

	node := n
	for {
		if inst, ok := hostInstance(node); ok {
			r.commitNestedUnmounts(node)
			r.hostCall("remove child", func() { root.host.RemoveChild(parent, inst) })
		} else {
			r.commitUnmount(node)
			if child := r.node(node.Child); child != nil {
				child.Parent = node.ID
				node = child
				continue
			}
		}

		if node == n {
			return
		}
		for node.Sibling == NoNode {
			if node.Parent == NoNode || node.Parent == n.ID {
				return
			}
			node = r.node(node.Parent)
		}
		sib := r.node(node.Sibling)
		sib.Parent = node.Parent
		node = sib
	}
}

// commitNestedUnmounts runs the cleanups of every node below a removed host instance.
func (r *Runtime) commitNestedUnmounts(n *Node) {
	stack := []*Node{n}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r.commitUnmount(node)
		for child := r.node(node.Child); child != nil; child = r.node(child.Sibling) {
			stack = append(stack, child)
		}
	}
}

// commitLayoutEffects visits the finished tree children first.
func (r *Runtime) commitLayoutEffects(root *RenderRoot, n *Node) {
	if n.SubtreeFlags&(LayoutMask|Passive) != 0 {
		for child := r.node(n.Child); child != nil; child = r.node(child.Sibling) {
			r.commitLayoutEffects(root, child)
		}
	}

	current := r.node(n.Alternate)

	switch role := n.Role.(type) {
	case *ComponentRole:
		if n.Flags.has(UpdateFlag) {
			r.commitHookEffectListMount(HasEffect|LayoutEffect, n, "layout")
		}
		if n.Flags.has(Passive) {
			r.schedulePassiveEffects(n)
		}

	case *RootRole:
		if !n.Flags.has(Callback) || n.UpdateQueue == nil {
			break
		}
		updates := n.UpdateQueue.Effects
		n.UpdateQueue.Effects = nil
		for _, u := range updates {
			r.safeCleanup("root", "commit callback", u.Callback)
		}

	case *HostRole:
		if current != nil || !n.Flags.has(UpdateFlag) {
			break
		}
		mounter, ok := root.host.(Mounter)
		if !ok {
			break
		}
		el := n.MemoizedProps.(*Element)
		r.hostCall("commit mount", func() { mounter.CommitMount(role.Instance, el.Type.(string), el.Props) })
	}
}

// flushPassiveEffects runs the pending passive effects, if any, and reports whether there were some.
func (r *Runtime) flushPassiveEffects() bool {
	if r.rootWithPendingPassiveEffects == nil {
		return false
	}

	flushed := false
	r.scheduler.RunWithPriority(scheduler.NormalPriority, func() {
		flushed = r.flushPassiveEffectsImpl()
	})
	return flushed
}

func (r *Runtime) flushPassiveEffectsImpl() bool {
	root := r.rootWithPendingPassiveEffects
	if root == nil {
		return false
	}
	lanes := r.pendingPassiveEffectsLanes
	r.rootWithPendingPassiveEffects = nil
	r.pendingPassiveEffectsLanes = lane.NoLanes

	prev := r.executionContext
	r.executionContext |= commitContext

	cleanups, mounts := r.passive.Len(PassiveUnmount), r.passive.Len(PassiveMount)

	// every cleanup runs before any mount
	r.passive.RunEffects(PassiveUnmount)
	r.passive.RunEffects(PassiveMount)

	deletions := r.pendingDeletions
	r.pendingDeletions = nil
	for _, id := range deletions {
		r.freeSubtree(id)
	}

	r.executionContext = prev

	root.logger.Debug().
		Stringer("lanes", lanes).
		Int("cleanups", cleanups).
		Int("mounts", mounts).
		Log("passive effects flushed")

	r.flushSyncCallbackQueue()

	if r.rootWithPendingPassiveEffects == nil {
		r.nestedPassiveUpdateCount = 0
	} else {
		r.nestedPassiveUpdateCount++
	}

	return true
}
