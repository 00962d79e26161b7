package internal

import (
	"fmt"

	"github.com/AnatoleLucet/reconcile/internal/lane"
)

// renderState is the bookkeeping of one component render.
type renderState struct {
	node    *Node
	element *Element
	lanes   lane.Lanes

	// nil on mount
	currentHooks []*hook
	updating     bool

	hooks       []*hook
	prevAttempt []*hook
	effects     []*Effect
	index       int
	attempt     int

	// the last hook came from the previous attempt of this render
	reused bool

	phaseUpdates   map[*SharedQueue][]*Update
	didPhaseUpdate bool
}

func (s *renderState) beginAttempt() {
	s.prevAttempt = s.hooks
	s.hooks = nil
	s.effects = nil
	s.index = 0
	s.didPhaseUpdate = false
}

// nextHook returns the hook for the next call site, and the committed hook at the same
// position. fresh reports that the hook has to be initialized.
func (s *renderState) nextHook(kind hookKind) (h *hook, current *hook, fresh bool) {
	i := s.index
	s.index++

	if s.updating {
		if i >= len(s.currentHooks) {
			panic(fmt.Errorf("%w: %s rendered more hooks than before", ErrHookOrder, s.node.name()))
		}
		current = s.currentHooks[i]
		if current.kind != kind {
			panic(fmt.Errorf("%w: %s called %s where it called %s", ErrHookOrder, s.node.name(), kind, current.kind))
		}
	}

	s.reused = false
	switch {
	case s.attempt > 0 && i < len(s.prevAttempt):
		h = s.prevAttempt[i]
		s.reused = true
		if h.kind != kind {
			panic(fmt.Errorf("%w: %s called %s where it called %s", ErrHookOrder, s.node.name(), kind, h.kind))
		}
	case current != nil:
		h = current.clone()
	default:
		h = &hook{kind: kind}
		fresh = true
	}

	s.hooks = append(s.hooks, h)
	return h, current, fresh
}

func (s *renderState) finish() {
	if s.updating && s.index < len(s.currentHooks) {
		panic(fmt.Errorf("%w: %s rendered fewer hooks than before", ErrHookOrder, s.node.name()))
	}
}

// Tracker knows which component, if any, is rendering.
type Tracker struct {
	current *renderState
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) RunWithRender(s *renderState, fn func()) {
	prev := t.current
	t.current = s
	defer func() { t.current = prev }()

	fn()
}

func (t *Tracker) Rendering() *renderState {
	return t.current
}

// IsRendering reports whether id is the node rendering right now, or its alternate.
func (t *Tracker) IsRendering(n *Node) bool {
	if t.current == nil {
		return false
	}
	id := t.current.node.ID
	return n.ID == id || n.Alternate == id
}
