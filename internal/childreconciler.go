package internal

import (
	"github.com/AnatoleLucet/reconcile/internal/lane"
	mapset "github.com/deckarep/golang-set/v2"
)

// reconcileChildren sets wip.Child to the new children of wip.
func (r *Runtime) reconcileChildren(current, wip *Node, next Child, renderLanes lane.Lanes) {
	next = normalizeChild(next)
	if current == nil {
		wip.Child = r.mountChildren(wip, next, renderLanes)
		return
	}
	wip.Child = r.reconcileChildNodes(wip, current.Child, next, renderLanes)
}

// mountChildren builds the children of a new node. Nothing is flagged: the
// nearest placed ancestor inserts the whole subtree at once.
func (r *Runtime) mountChildren(parent *Node, next Child, renderLanes lane.Lanes) NodeID {
	var children []Child
	if list, ok := next.([]Child); ok {
		children = list
	} else if next != nil {
		children = []Child{next}
	}

	var first, prev *Node
	for i, c := range children {
		n := r.createChild(parent, c, renderLanes)
		n.Index = i
		if prev == nil {
			first = n
		} else {
			prev.Sibling = n.ID
		}
		prev = n
	}

	if first == nil {
		return NoNode
	}
	return first.ID
}

func (r *Runtime) reconcileChildNodes(parent *Node, currentFirst NodeID, next Child, renderLanes lane.Lanes) NodeID {
	switch c := next.(type) {
	case *Element:
		return r.placeSingleChild(r.reconcileSingleElement(parent, currentFirst, c, renderLanes)).ID
	case string:
		return r.placeSingleChild(r.reconcileSingleText(parent, currentFirst, c, renderLanes)).ID
	case []Child:
		return r.reconcileChildrenArray(parent, currentFirst, c, renderLanes)
	}

	r.deleteRemainingChildren(parent, currentFirst)
	return NoNode
}

func (r *Runtime) deleteChild(parent, child *Node) {
	parent.Deletions = append(parent.Deletions, child.ID)
	parent.Flags.set(ChildDeletion)
}

func (r *Runtime) deleteRemainingChildren(parent *Node, first NodeID) {
	for child := r.node(first); child != nil; child = r.node(child.Sibling) {
		r.deleteChild(parent, child)
	}
}

// useNode reuses current for a new description at the head of a sibling run.
func (r *Runtime) useNode(current *Node, pendingProps any) *Node {
	clone := r.createWorkInProgress(current, pendingProps)
	clone.Index = 0
	clone.Sibling = NoNode
	return clone
}

func (r *Runtime) placeSingleChild(n *Node) *Node {
	if n.Alternate == NoNode {
		n.Flags.set(Placement)
	}
	return n
}

func (r *Runtime) reconcileSingleElement(parent *Node, currentFirst NodeID, el *Element, renderLanes lane.Lanes) *Node {
	for child := r.node(currentFirst); child != nil; child = r.node(child.Sibling) {
		if child.Key != el.Key {
			r.deleteChild(parent, child)
			continue
		}

		if _, text := child.Role.(*TextRole); !text && child.Type == el.Type {
			r.deleteRemainingChildren(parent, child.Sibling)
			existing := r.useNode(child, el)
			existing.Parent = parent.ID
			return existing
		}

		// same key, different type: nothing in this run can be reused
		r.deleteRemainingChildren(parent, child.ID)
		break
	}

	created := r.createNodeFromElement(el, renderLanes)
	created.Parent = parent.ID
	return created
}

func (r *Runtime) reconcileSingleText(parent *Node, currentFirst NodeID, text string, renderLanes lane.Lanes) *Node {
	if child := r.node(currentFirst); child != nil {
		if _, ok := child.Role.(*TextRole); ok {
			r.deleteRemainingChildren(parent, child.Sibling)
			existing := r.useNode(child, text)
			existing.Parent = parent.ID
			return existing
		}
	}

	r.deleteRemainingChildren(parent, currentFirst)
	created := r.createTextNode(text, renderLanes)
	created.Parent = parent.ID
	return created
}

func (r *Runtime) createChild(parent *Node, c Child, renderLanes lane.Lanes) *Node {
	var n *Node
	switch v := c.(type) {
	case string:
		n = r.createTextNode(v, renderLanes)
	case *Element:
		n = r.createNodeFromElement(v, renderLanes)
	default:
		panic(ErrInvalidChild)
	}
	n.Parent = parent.ID
	return n
}

func (r *Runtime) updateTextNode(parent, current *Node, text string, renderLanes lane.Lanes) *Node {
	if current != nil {
		if _, ok := current.Role.(*TextRole); ok {
			existing := r.useNode(current, text)
			existing.Parent = parent.ID
			return existing
		}
	}

	created := r.createTextNode(text, renderLanes)
	created.Parent = parent.ID
	return created
}

func (r *Runtime) updateElement(parent, current *Node, el *Element, renderLanes lane.Lanes) *Node {
	if current != nil && current.Type == el.Type {
		if _, text := current.Role.(*TextRole); !text {
			existing := r.useNode(current, el)
			existing.Parent = parent.ID
			return existing
		}
	}

	created := r.createNodeFromElement(el, renderLanes)
	created.Parent = parent.ID
	return created
}

// updateSlot reuses or replaces old for c when their keys match, and returns nil when they don't.
func (r *Runtime) updateSlot(parent, old *Node, c Child, renderLanes lane.Lanes) *Node {
	oldKey := ""
	if old != nil {
		oldKey = old.Key
	}

	switch v := c.(type) {
	case string:
		if oldKey != "" {
			return nil
		}
		return r.updateTextNode(parent, old, v, renderLanes)
	case *Element:
		if v.Key != oldKey {
			return nil
		}
		return r.updateElement(parent, old, v, renderLanes)
	}
	return nil
}

// placeChild records where n lands and flags it when it has to be inserted or moved.
// lastPlaced is the highest old index kept in place so far.
func (r *Runtime) placeChild(n *Node, lastPlaced, newIndex int) int {
	n.Index = newIndex

	current := r.node(n.Alternate)
	if current == nil {
		n.Flags.set(Placement)
		return lastPlaced
	}
	if current.Index < lastPlaced {
		n.Flags.set(Placement)
		return lastPlaced
	}
	return current.Index
}

type childKey struct {
	key   string
	index int
}

func keyOf(key string, index int) childKey {
	if key != "" {
		return childKey{key: key, index: -1}
	}
	return childKey{index: index}
}

type remainingChildren struct {
	byKey map[childKey]*Node
	order []*Node
}

func (r *Runtime) mapRemainingChildren(first *Node) *remainingChildren {
	m := &remainingChildren{byKey: make(map[childKey]*Node)}
	for child := first; child != nil; child = r.node(child.Sibling) {
		m.byKey[keyOf(child.Key, child.Index)] = child
		m.order = append(m.order, child)
	}
	return m
}

func (r *Runtime) updateFromMap(m *remainingChildren, parent *Node, newIndex int, c Child, renderLanes lane.Lanes) *Node {
	switch v := c.(type) {
	case string:
		return r.updateTextNode(parent, m.byKey[keyOf("", newIndex)], v, renderLanes)
	case *Element:
		return r.updateElement(parent, m.byKey[keyOf(v.Key, newIndex)], v, renderLanes)
	}
	return nil
}

func (r *Runtime) reconcileChildrenArray(parent *Node, currentFirst NodeID, children []Child, renderLanes lane.Lanes) NodeID {
	r.warnDuplicateKeys(parent, children)

	var first, prev *Node
	link := func(n *Node) {
		if prev == nil {
			first = n
		} else {
			prev.Sibling = n.ID
		}
		prev = n
	}
	result := func() NodeID {
		if first == nil {
			return NoNode
		}
		return first.ID
	}

	old := r.node(currentFirst)
	lastPlaced := 0
	i := 0

	// walk both runs while keys line up
	for ; old != nil && i < len(children); i++ {
		var nextOld *Node
		if old.Index > i {
			nextOld = old
			old = nil
		} else {
			nextOld = r.node(old.Sibling)
		}

		n := r.updateSlot(parent, old, children[i], renderLanes)
		if n == nil {
			if old == nil {
				old = nextOld
			}
			break
		}
		if old != nil && n.Alternate == NoNode {
			r.deleteChild(parent, old)
		}

		lastPlaced = r.placeChild(n, lastPlaced, i)
		link(n)
		old = nextOld
	}

	if i == len(children) {
		if old != nil {
			r.deleteRemainingChildren(parent, old.ID)
		}
		return result()
	}

	if old == nil {
		for ; i < len(children); i++ {
			n := r.createChild(parent, children[i], renderLanes)
			lastPlaced = r.placeChild(n, lastPlaced, i)
			link(n)
		}
		return result()
	}

	remaining := r.mapRemainingChildren(old)
	for ; i < len(children); i++ {
		n := r.updateFromMap(remaining, parent, i, children[i], renderLanes)
		if n == nil {
			continue
		}
		if current := r.node(n.Alternate); current != nil {
			delete(remaining.byKey, keyOf(current.Key, current.Index))
		}
		lastPlaced = r.placeChild(n, lastPlaced, i)
		link(n)
	}

	for _, child := range remaining.order {
		if remaining.byKey[keyOf(child.Key, child.Index)] == child {
			r.deleteChild(parent, child)
		}
	}

	return result()
}

func (r *Runtime) warnDuplicateKeys(parent *Node, children []Child) {
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, c := range children {
		el, ok := c.(*Element)
		if !ok || el.Key == "" {
			continue
		}
		if seen.Contains(el.Key) {
			r.logger.Warning().
				Str("parent", parent.name()).
				Str("key", el.Key).
				Log("duplicate child key, only the first is reused")
			continue
		}
		seen.Add(el.Key)
	}
}
