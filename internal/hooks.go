package internal

import (
	"github.com/AnatoleLucet/reconcile/internal/lane"
)

type hookKind uint8

const (
	stateHook hookKind = iota
	effectHook
	layoutEffectHook
	refHook
	memoHook
)

func (k hookKind) String() string {
	switch k {
	case stateHook:
		return "UseState"
	case effectHook:
		return "UseEffect"
	case layoutEffectHook:
		return "UseLayoutEffect"
	case refHook:
		return "UseRef"
	case memoHook:
		return "UseMemo"
	}
	return "unknown hook"
}

// hook is one stateful cell of a component, addressed by call order.
type hook struct {
	kind hookKind

	state    any
	queue    *UpdateQueue
	reduce   func(state, action any) any
	dispatch func(action any)

	effect *Effect
	deps   []any
}

func (h *hook) clone() *hook {
	c := *h
	if h.queue != nil {
		c.queue = h.queue.clone()
	}
	return &c
}

// Ref is a mutable box that survives renders.
type Ref struct {
	Current any
}

func basicStateReducer(state, action any) any {
	if fn, ok := action.(func(any) any); ok {
		return fn(state)
	}
	return action
}

// Hooks is handed to a component's render function. It is only valid during that render.
type Hooks struct {
	r     *Runtime
	state *renderState
}

func (h *Hooks) render() *renderState {
	if h.r.tracker.Rendering() != h.state {
		panic(ErrInvalidHookCall)
	}
	return h.state
}

// Children returns the children the component's element was created with.
func (h *Hooks) Children() Child {
	return childrenOf(h.render().element.Children)
}

func (h *Hooks) UseState(initial any) (any, func(action any)) {
	return h.useReducer(basicStateReducer, initial, true)
}

func (h *Hooks) UseReducer(reduce func(state, action any) any, initial any) (any, func(action any)) {
	return h.useReducer(reduce, initial, false)
}

func (h *Hooks) useReducer(reduce func(state, action any) any, initial any, basic bool) (any, func(action any)) {
	s := h.render()
	r := h.r

	hk, current, fresh := s.nextHook(stateHook)
	hk.reduce = reduce

	switch {
	case fresh:
		hk.state = initial
		hk.queue = NewUpdateQueue(initial)
		hk.dispatch = r.newDispatcher(s.node.ID, hk.queue.Shared, basic)

	case s.reused:
		updates := s.phaseUpdates[hk.queue.Shared]
		if len(updates) == 0 {
			break
		}
		delete(s.phaseUpdates, hk.queue.Shared)

		state := hk.state
		for _, u := range updates {
			state = reduce(state, u.Payload)
		}
		if !identical(state, hk.state) {
			r.didReceiveUpdate = true
		}
		hk.state = state
		if len(hk.queue.BaseUpdates) == 0 {
			hk.queue.BaseState = state
		}

	case current != nil:
		res := hk.queue.Process(current.queue, s.lanes, func(state any, u *Update) any {
			if u.HasEager {
				return u.EagerState
			}
			return reduce(state, u.Payload)
		})
		if !identical(res.State, current.state) {
			r.didReceiveUpdate = true
		}
		hk.state = res.State
		s.node.Lanes |= res.Skipped
		r.markSkipped(res.Skipped)
	}

	hk.queue.Shared.LastState = hk.state
	return hk.state, hk.dispatch
}

func (h *Hooks) UseEffect(create func() func(), deps []any) {
	h.useEffect(effectHook, Passive, PassiveEffect, create, deps)
}

func (h *Hooks) UseLayoutEffect(create func() func(), deps []any) {
	h.useEffect(layoutEffectHook, UpdateFlag, LayoutEffect, create, deps)
}

func (h *Hooks) useEffect(kind hookKind, flag Flags, tag EffectTag, create func() func(), deps []any) {
	s := h.render()

	hk, current, _ := s.nextHook(kind)

	var destroy func()
	if current != nil && current.effect != nil {
		destroy = current.effect.Destroy
		if depsEqual(deps, current.effect.Deps) {
			hk.effect = s.pushEffect(tag, create, destroy, deps)
			return
		}
	}

	s.node.Flags.set(flag)
	hk.effect = s.pushEffect(HasEffect|tag, create, destroy, deps)
}

func (h *Hooks) UseRef(initial any) *Ref {
	s := h.render()

	hk, _, fresh := s.nextHook(refHook)
	if fresh {
		hk.state = &Ref{Current: initial}
	}
	return hk.state.(*Ref)
}

func (h *Hooks) UseMemo(compute func() any, deps []any) any {
	s := h.render()

	hk, _, fresh := s.nextHook(memoHook)
	if !fresh && depsEqual(deps, hk.deps) {
		return hk.state
	}

	hk.state = compute()
	hk.deps = deps
	return hk.state
}

// UseContext reads the nearest provider value for ctx. It takes no hook slot.
func (h *Hooks) UseContext(ctx *Context) any {
	s := h.render()
	return h.r.readContext(s.node, ctx)
}

func (r *Runtime) newDispatcher(id NodeID, shared *SharedQueue, basic bool) func(any) {
	return func(action any) {
		r.dispatchAction(id, shared, basic, action)
	}
}

func (r *Runtime) dispatchAction(id NodeID, shared *SharedQueue, basic bool, action any) {
	if err := r.checkOwner(); err != nil {
		panic(err)
	}

	n := r.node(id)
	if n == nil {
		r.logger.Warning().Log("state update on an unmounted component")
		return
	}

	eventTime := r.requestEventTime()
	ln := r.requestUpdateLane()
	u := &Update{EventTime: eventTime, Lane: ln, Tag: UpdateState, Payload: action}

	if r.tracker.IsRendering(n) {
		s := r.tracker.Rendering()
		if s.phaseUpdates == nil {
			s.phaseUpdates = make(map[*SharedQueue][]*Update)
		}
		s.phaseUpdates[shared] = append(s.phaseUpdates[shared], u)
		s.didPhaseUpdate = true
		return
	}

	alt := r.node(n.Alternate)
	if basic && n.Lanes == lane.NoLanes && (alt == nil || alt.Lanes == lane.NoLanes) {
		eager := basicStateReducer(shared.LastState, action)
		if identical(eager, shared.LastState) {
			return
		}
		u.HasEager, u.EagerState = true, eager
	}

	shared.Pending = append(shared.Pending, u)

	root := r.scheduleUpdateOnNode(n, ln, eventTime)
	if root != nil && lane.IncludesSome(ln, lane.TransitionLanes) {
		queueLanes := shared.Lanes&root.lanes.Pending | ln
		shared.Lanes = queueLanes
		root.lanes.MarkEntangled(queueLanes)
	}
}

// renderWithHooks runs a component, re-running it while it updates its own state.
func (r *Runtime) renderWithHooks(current, wip *Node, comp *Component, el *Element, renderLanes lane.Lanes) Child {
	s := &renderState{
		node:    wip,
		element: el,
		lanes:   renderLanes,
	}
	if current != nil {
		s.updating = true
		if role, ok := current.Role.(*ComponentRole); ok {
			s.currentHooks = role.Hooks
		}
	}

	wip.Lanes = lane.NoLanes

	var children Child
	r.tracker.RunWithRender(s, func() {
		hooks := &Hooks{r: r, state: s}
		for {
			s.beginAttempt()
			children = comp.Render(hooks, el.Props)
			if !s.didPhaseUpdate {
				break
			}
			s.attempt++
			if s.attempt >= r.limits.Rerenders {
				panic(ErrTooManyRerenders)
			}
		}
		s.finish()
	})

	role := wip.Role.(*ComponentRole)
	role.Hooks = s.hooks
	role.Effects = s.effects
	return children
}

// bailoutHooks drops the effects of a render whose output is known to be unchanged.
func (r *Runtime) bailoutHooks(current, wip *Node, renderLanes lane.Lanes) {
	wip.Role.(*ComponentRole).Effects = current.Role.(*ComponentRole).Effects
	wip.Flags.clear(Passive | UpdateFlag)
	current.Lanes = lane.Remove(current.Lanes, renderLanes)
}
