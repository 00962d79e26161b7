package internal

import (
	"github.com/AnatoleLucet/reconcile/internal/lane"
	"github.com/AnatoleLucet/reconcile/internal/logging"
	"github.com/google/uuid"
)

// RenderRoot is one mount point: a container, the committed tree rendered into it,
// and its lane bookkeeping.
type RenderRoot struct {
	ID string

	host      Host
	container any
	current   NodeID

	finishedWork  NodeID
	finishedLanes lane.Lanes

	// *scheduler.Task or *syncCallback
	callbackNode     any
	callbackPriority lane.Priority

	lanes      *lane.Bookkeeping
	lastCommit CommitStats
	unmounted  bool

	logger *logging.Logger
}

func (r *Runtime) CreateRoot(host Host, container any) *RenderRoot {
	root := &RenderRoot{
		ID:        uuid.NewString(),
		host:      host,
		container: container,
		lanes:     lane.NewBookkeeping(),
	}
	root.logger = r.logger.Clone().Str("root", root.ID).Logger()

	n := r.nodes.New(&RootRole{Root: root}, "", nil, nil)
	n.UpdateQueue = NewUpdateQueue(State{})
	n.MemoizedState = State{}
	root.current = n.ID

	r.roots.Add(root)
	root.logger.Debug().Log("root created")
	return root
}

// UpdateContainer schedules child as the new content of root.
// Callbacks run in the layout phase of the commit that applies it.
func (r *Runtime) UpdateContainer(root *RenderRoot, child Child, callbacks ...func()) error {
	return r.entry(func() error {
		if root.unmounted {
			return ErrRootUnmounted
		}
		r.enqueueRootUpdate(root, UpdateState, State{stateElement: child}, callbacks)
		return nil
	})
}

// ForceUpdate guarantees a render pass on the root even if its content did not change.
func (r *Runtime) ForceUpdate(root *RenderRoot) error {
	return r.entry(func() error {
		if root.unmounted {
			return ErrRootUnmounted
		}
		r.enqueueRootUpdate(root, ForceUpdate, nil, nil)
		return nil
	})
}

func (r *Runtime) enqueueRootUpdate(root *RenderRoot, tag UpdateTag, payload any, callbacks []func()) {
	n := r.node(root.current)
	eventTime := r.requestEventTime()
	ln := r.requestUpdateLane()

	u := &Update{EventTime: eventTime, Lane: ln, Tag: tag, Payload: payload}
	if len(callbacks) > 0 {
		u.Callback = func() {
			for _, cb := range callbacks {
				cb()
			}
		}
	}

	n.UpdateQueue.Enqueue(u)
	r.scheduleUpdateOnNode(n, ln, eventTime)
}

// Unmount removes the tree of root from its container, runs every cleanup and frees its nodes.
func (r *Runtime) Unmount(root *RenderRoot) error {
	return r.entry(func() error {
		if root.unmounted {
			return nil
		}
		if r.executionContext&(renderContext|commitContext) != 0 {
			return ErrRenderInProgress
		}

		prevPriority, prevTransition := r.updatePriority, r.inTransition
		r.updatePriority, r.inTransition = lane.SyncPriority, false
		r.enqueueRootUpdate(root, ReplaceState, State{}, nil)
		r.updatePriority, r.inTransition = prevPriority, prevTransition

		// the removal is applied now, even inside a batch
		r.flushSyncCallbackQueue()

		// sync commit above queued the passive cleanups of the removed tree
		r.flushPassiveEffects()

		if root == r.wipRoot {
			r.abandonPass()
		}
		if root.callbackNode != nil {
			r.cancelCallback(root.callbackNode)
			root.callbackNode = nil
		}

		r.freeSubtree(root.current)
		root.unmounted = true
		r.roots.Remove(root)

		root.logger.Debug().Log("root unmounted")
		return nil
	})
}

func (root *RenderRoot) LastCommit() CommitStats {
	return root.lastCommit
}

func (root *RenderRoot) Unmounted() bool {
	return root.unmounted
}

// PendingLanes returns the lanes that still have work scheduled on the root.
func (root *RenderRoot) PendingLanes() lane.Lanes {
	return root.lanes.Pending
}
