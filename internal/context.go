package internal

import (
	"github.com/AnatoleLucet/reconcile/internal/lane"
	mapset "github.com/deckarep/golang-set/v2"
)

// Context is a value passed down the tree by providers.
type Context struct {
	Name    string
	Default any
}

func NewContext(name string, def any) *Context {
	return &Context{Name: name, Default: def}
}

type contextEntry struct {
	ctx   *Context
	owner NodeID
	prev  any
	had   bool
}

// ContextStack holds the provider values visible to the node being rendered.
type ContextStack struct {
	entries []contextEntry
	values  map[*Context]any
}

func NewContextStack() *ContextStack {
	return &ContextStack{
		values: make(map[*Context]any),
	}
}

func (s *ContextStack) Push(ctx *Context, value any, owner NodeID) {
	prev, had := s.values[ctx]
	s.entries = append(s.entries, contextEntry{ctx: ctx, owner: owner, prev: prev, had: had})
	s.values[ctx] = value
}

func (s *ContextStack) Pop(owner NodeID) {
	if len(s.entries) == 0 {
		return
	}
	top := s.entries[len(s.entries)-1]
	if top.owner != owner {
		return
	}
	s.entries = s.entries[:len(s.entries)-1]

	if top.had {
		s.values[top.ctx] = top.prev
	} else {
		delete(s.values, top.ctx)
	}
}

func (s *ContextStack) Read(ctx *Context) any {
	if v, ok := s.values[ctx]; ok {
		return v
	}
	return ctx.Default
}

func (s *ContextStack) Depth() int {
	return len(s.entries)
}

func (s *ContextStack) Reset() {
	s.entries = s.entries[:0]
	clear(s.values)
}

func providerValue(n *Node) any {
	el, _ := n.PendingProps.(*Element)
	if el == nil {
		return nil
	}
	return el.Props["value"]
}

func (r *Runtime) pushProvider(n *Node) {
	r.contexts.Push(n.Type.(*Context), providerValue(n), n.ID)
}

// prepareToReadContext starts a fresh dependency list for a component about to render.
func (r *Runtime) prepareToReadContext(wip *Node, renderLanes lane.Lanes) {
	if deps := wip.Dependencies; deps != nil && lane.IncludesSome(deps.Lanes, renderLanes) {
		r.didReceiveUpdate = true
	}
	wip.Dependencies = &Dependencies{Contexts: mapset.NewThreadUnsafeSet[*Context]()}
}

func (r *Runtime) readContext(n *Node, ctx *Context) any {
	if n.Dependencies == nil {
		n.Dependencies = &Dependencies{Contexts: mapset.NewThreadUnsafeSet[*Context]()}
	}
	n.Dependencies.Contexts.Add(ctx)
	return r.contexts.Read(ctx)
}

// propagateContextChange schedules renderLanes on every consumer of ctx below the provider,
// stopping at nested providers of the same context.
func (r *Runtime) propagateContextChange(provider *Node, ctx *Context, renderLanes lane.Lanes) {
	var stack []*Node
	if child := r.node(provider.Child); child != nil {
		stack = append(stack, child)
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if sib := r.node(n.Sibling); sib != nil {
			stack = append(stack, sib)
		}

		if deps := n.Dependencies; deps != nil && deps.Contexts != nil && deps.Contexts.Contains(ctx) {
			n.Lanes |= renderLanes
			if alt := r.node(n.Alternate); alt != nil {
				alt.Lanes |= renderLanes
			}
			deps.Lanes |= renderLanes
			r.scheduleWorkOnParentPath(r.parentOf(n), renderLanes)
		}

		if n.Type == ctx {
			continue
		}
		if child := r.node(n.Child); child != nil {
			stack = append(stack, child)
		}
	}
}

func (r *Runtime) scheduleWorkOnParentPath(n *Node, renderLanes lane.Lanes) {
	for ; n != nil; n = r.parentOf(n) {
		alt := r.node(n.Alternate)
		if lane.IsSubset(n.ChildLanes, renderLanes) && (alt == nil || lane.IsSubset(alt.ChildLanes, renderLanes)) {
			return
		}
		n.ChildLanes |= renderLanes
		if alt != nil {
			alt.ChildLanes |= renderLanes
		}
	}
}
