package internal

import (
	"maps"
	"slices"
	"time"

	"github.com/AnatoleLucet/reconcile/internal/lane"
)

type UpdateTag uint8

const (
	UpdateState UpdateTag = iota
	ReplaceState
	ForceUpdate
)

// Update is one state transition. It is never mutated after it is enqueued.
type Update struct {
	EventTime time.Duration
	Lane      lane.Lane
	Tag       UpdateTag
	Payload   any
	Callback  func()

	// precomputed by the dispatcher when the queue was empty
	HasEager   bool
	EagerState any
}

// rebased is the copy of an applied update kept after a skipped one, so the
// skipped update replays on top of the same history. It always applies.
func (u *Update) rebased() *Update {
	return &Update{
		EventTime:  u.EventTime,
		Lane:       lane.NoLane,
		Tag:        u.Tag,
		Payload:    u.Payload,
		HasEager:   u.HasEager,
		EagerState: u.EagerState,
	}
}

// SharedQueue is the part of a queue both alternates see.
type SharedQueue struct {
	Pending []*Update
	// transition lanes of updates on this queue that may still be pending on the root
	Lanes lane.Lanes
	// last rendered state, used for eager bailouts
	LastState any
}

type UpdateQueue struct {
	BaseState   any
	BaseUpdates []*Update
	Shared      *SharedQueue
	Effects     []*Update
}

func NewUpdateQueue(state any) *UpdateQueue {
	return &UpdateQueue{
		BaseState: state,
		Shared:    &SharedQueue{LastState: state},
	}
}

func (q *UpdateQueue) Enqueue(u *Update) {
	q.Shared.Pending = append(q.Shared.Pending, u)
}

func (q *UpdateQueue) clone() *UpdateQueue {
	return &UpdateQueue{
		BaseState:   q.BaseState,
		BaseUpdates: q.BaseUpdates,
		Shared:      q.Shared,
	}
}

// cloneUpdateQueue gives wip its own queue so processing never touches the committed one.
func cloneUpdateQueue(current, wip *Node) {
	if current != nil && wip.UpdateQueue == current.UpdateQueue {
		wip.UpdateQueue = current.UpdateQueue.clone()
	}
}

type Reducer func(state any, u *Update) any

type ProcessResult struct {
	State   any
	Skipped lane.Lanes
	// a ForceUpdate was applied
	Forced bool
}

// Process moves pending updates onto the base list of q and of current, then folds
// every update whose lane is in renderLanes into the base state. Skipped updates stay
// in the base list, in order, together with everything after them.
func (q *UpdateQueue) Process(current *UpdateQueue, renderLanes lane.Lanes, reduce Reducer) ProcessResult {
	var res ProcessResult

	updates := q.takePending(current, q.BaseUpdates)
	state := q.BaseState

	var newBase []*Update
	var newBaseState any

	for i := 0; ; i++ {
		if i == len(updates) {
			// updates enqueued while processing join this pass
			if len(q.Shared.Pending) == 0 {
				break
			}
			updates = q.takePending(current, updates)
		}

		u := updates[i]
		if !lane.IsSubset(renderLanes, u.Lane) {
			if len(newBase) == 0 {
				newBaseState = state
			}
			newBase = append(newBase, u)
			res.Skipped |= u.Lane
			continue
		}

		if len(newBase) > 0 {
			newBase = append(newBase, u.rebased())
		}

		if u.Tag == ForceUpdate {
			res.Forced = true
		}
		state = reduce(state, u)

		if u.Callback != nil {
			q.Effects = append(q.Effects, u)
		}
	}

	if len(newBase) == 0 {
		newBaseState = state
	}

	q.BaseState = newBaseState
	q.BaseUpdates = newBase
	res.State = state
	return res
}

func (q *UpdateQueue) takePending(current *UpdateQueue, base []*Update) []*Update {
	pending := q.Shared.Pending
	if len(pending) == 0 {
		return base
	}
	q.Shared.Pending = nil

	// the committed queue keeps them too, so an interrupted pass cannot lose them
	if current != nil && current != q {
		current.BaseUpdates = slices.Concat(current.BaseUpdates, pending)
	}
	return slices.Concat(base, pending)
}

// State is the root's state. The rendered tree is under "element".
type State = map[string]any

const stateElement = "element"

func reduceRootState(state any, u *Update) any {
	prev, _ := state.(State)

	payload := u.Payload
	if fn, ok := payload.(func(State) State); ok {
		payload = fn(prev)
	}
	next, _ := payload.(State)

	switch u.Tag {
	case ReplaceState:
		return maps.Clone(next)
	case UpdateState:
		if next == nil {
			return prev
		}
		merged := maps.Clone(prev)
		if merged == nil {
			merged = State{}
		}
		maps.Copy(merged, next)
		return merged
	}
	return prev
}
