package internal

import (
	"fmt"

	"github.com/AnatoleLucet/reconcile/internal/lane"
)

// beginWork renders wip and returns the child to work on next, or nil when wip has no more work below it.
func (r *Runtime) beginWork(current, wip *Node, renderLanes lane.Lanes) *Node {
	r.didReceiveUpdate = false

	if current != nil {
		switch {
		case !identical(current.MemoizedProps, wip.PendingProps):
			r.didReceiveUpdate = true
		case !lane.IncludesSome(renderLanes, wip.Lanes):
			// nothing to do on this node; the provider value still has to be visible below
			if _, ok := wip.Role.(*ProviderRole); ok {
				r.pushProvider(wip)
			}
			return r.bailoutOnAlreadyFinishedWork(current, wip, renderLanes)
		}
	}

	wip.Lanes = lane.NoLanes

	switch wip.Role.(type) {
	case *RootRole:
		return r.updateHostRoot(current, wip, renderLanes)
	case *HostRole:
		return r.updateHostComponent(current, wip, renderLanes)
	case *TextRole:
		return nil
	case *ComponentRole:
		return r.updateComponent(current, wip, renderLanes)
	case *ProviderRole:
		return r.updateProvider(current, wip, renderLanes)
	}

	panic(fmt.Sprintf("unknown role %T", wip.Role))
}

func (r *Runtime) markSkipped(lanes lane.Lanes) {
	r.wipRootSkippedLanes |= lanes
}

func (r *Runtime) bailoutOnAlreadyFinishedWork(current, wip *Node, renderLanes lane.Lanes) *Node {
	if current != nil {
		wip.Dependencies = current.Dependencies
	}
	r.markSkipped(wip.Lanes)

	if !lane.IncludesSome(renderLanes, wip.ChildLanes) {
		return nil
	}

	r.cloneChildNodes(wip)
	return r.node(wip.Child)
}

// cloneChildNodes gives wip in-progress copies of its committed children, without rendering them.
func (r *Runtime) cloneChildNodes(wip *Node) {
	current := r.node(wip.Child)
	if current == nil {
		return
	}

	child := r.createWorkInProgress(current, current.PendingProps)
	child.Parent = wip.ID
	wip.Child = child.ID

	for current.Sibling != NoNode {
		current = r.node(current.Sibling)
		next := r.createWorkInProgress(current, current.PendingProps)
		next.Parent = wip.ID
		child.Sibling = next.ID
		child = next
	}
	child.Sibling = NoNode
}

func (r *Runtime) updateHostRoot(current, wip *Node, renderLanes lane.Lanes) *Node {
	cloneUpdateQueue(current, wip)

	prevState, _ := wip.MemoizedState.(State)
	prevChild := prevState[stateElement]

	var currentQueue *UpdateQueue
	if current != nil {
		currentQueue = current.UpdateQueue
	}
	res := wip.UpdateQueue.Process(currentQueue, renderLanes, reduceRootState)

	wip.MemoizedState = res.State
	wip.Lanes = res.Skipped
	r.markSkipped(res.Skipped)
	if len(wip.UpdateQueue.Effects) > 0 {
		wip.Flags.set(Callback)
	}

	nextState, _ := res.State.(State)
	nextChild := nextState[stateElement]
	if !res.Forced && identical(prevChild, nextChild) {
		return r.bailoutOnAlreadyFinishedWork(current, wip, renderLanes)
	}

	r.reconcileChildren(current, wip, nextChild, renderLanes)
	return r.node(wip.Child)
}

func (r *Runtime) updateHostComponent(current, wip *Node, renderLanes lane.Lanes) *Node {
	el := wip.PendingProps.(*Element)
	r.reconcileChildren(current, wip, childrenOf(el.Children), renderLanes)
	return r.node(wip.Child)
}

func (r *Runtime) updateComponent(current, wip *Node, renderLanes lane.Lanes) *Node {
	el := wip.PendingProps.(*Element)
	comp := wip.Type.(*Component)

	r.prepareToReadContext(wip, renderLanes)
	children := r.renderWithHooks(current, wip, comp, el, renderLanes)

	if current != nil && !r.didReceiveUpdate {
		r.bailoutHooks(current, wip, renderLanes)
		return r.bailoutOnAlreadyFinishedWork(current, wip, renderLanes)
	}

	wip.Flags.set(PerformedWork)
	r.reconcileChildren(current, wip, children, renderLanes)
	return r.node(wip.Child)
}

func (r *Runtime) updateProvider(current, wip *Node, renderLanes lane.Lanes) *Node {
	ctx := wip.Type.(*Context)
	el := wip.PendingProps.(*Element)

	r.pushProvider(wip)

	if current != nil {
		old := current.MemoizedProps.(*Element)
		if identical(old.Props["value"], el.Props["value"]) {
			if sameChildren(old.Children, el.Children) {
				return r.bailoutOnAlreadyFinishedWork(current, wip, renderLanes)
			}
		} else {
			r.propagateContextChange(wip, ctx, renderLanes)
		}
	}

	r.reconcileChildren(current, wip, childrenOf(el.Children), renderLanes)
	return r.node(wip.Child)
}
