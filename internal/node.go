package internal

import (
	"github.com/AnatoleLucet/reconcile/internal/lane"
	mapset "github.com/deckarep/golang-set/v2"
)

// NodeID indexes a node in the arena. Ids are never reused.
type NodeID uint32

const NoNode NodeID = 0

// Role is the closed set of node kinds.
type Role interface {
	Name() string
	clone() Role
}

type RootRole struct {
	Root *RenderRoot
}

type HostRole struct {
	Instance any
	// set by complete, consumed by commit
	Payload any
}

type TextRole struct {
	Instance any
}

type ComponentRole struct {
	Hooks   []*hook
	Effects []*Effect
}

type ProviderRole struct{}

func (r *RootRole) Name() string      { return "root" }
func (r *HostRole) Name() string      { return "host" }
func (r *TextRole) Name() string      { return "text" }
func (r *ComponentRole) Name() string { return "component" }
func (r *ProviderRole) Name() string  { return "provider" }

func (r *RootRole) clone() Role      { return &RootRole{Root: r.Root} }
func (r *HostRole) clone() Role      { return &HostRole{Instance: r.Instance} }
func (r *TextRole) clone() Role      { return &TextRole{Instance: r.Instance} }
func (r *ProviderRole) clone() Role  { return &ProviderRole{} }
func (r *ComponentRole) clone() Role { return &ComponentRole{Hooks: r.Hooks, Effects: r.Effects} }

// Dependencies are the contexts a component read during its last render.
type Dependencies struct {
	Lanes    lane.Lanes
	Contexts mapset.Set[*Context]
}

// Node is one position of the render tree for one pass.
// Tree links hold ids; Alternate pairs a committed node with its in-progress counterpart.
type Node struct {
	ID   NodeID
	Role Role
	Key  string
	Type any

	Parent    NodeID
	Child     NodeID
	Sibling   NodeID
	Alternate NodeID
	Index     int

	// *Element for host, component and provider nodes, string for text, nil for the root
	PendingProps  any
	MemoizedProps any
	MemoizedState any
	UpdateQueue   *UpdateQueue

	Lanes      lane.Lanes
	ChildLanes lane.Lanes

	Flags        Flags
	SubtreeFlags Flags
	Deletions    []NodeID

	Dependencies *Dependencies
}

func (n *Node) name() string {
	if name := typeName(n.Type); name != "" {
		return name
	}
	return n.Role.Name()
}

// Arena owns every node of a runtime.
type Arena struct {
	nodes map[NodeID]*Node
	next  NodeID
}

func NewArena() *Arena {
	return &Arena{
		nodes: make(map[NodeID]*Node),
	}
}

func (a *Arena) New(role Role, key string, typ any, pendingProps any) *Node {
	a.next++
	n := &Node{
		ID:           a.next,
		Role:         role,
		Key:          key,
		Type:         typ,
		PendingProps: pendingProps,
	}
	a.nodes[n.ID] = n
	return n
}

// Get returns nil for NoNode and for freed ids.
func (a *Arena) Get(id NodeID) *Node {
	if id == NoNode {
		return nil
	}
	return a.nodes[id]
}

func (a *Arena) Free(id NodeID) {
	delete(a.nodes, id)
}

func (a *Arena) Len() int {
	return len(a.nodes)
}

func (r *Runtime) node(id NodeID) *Node {
	return r.nodes.Get(id)
}

// newNode allocates a node for the pass in progress. If the pass is thrown away, so is the node.
func (r *Runtime) newNode(role Role, key string, typ any, pendingProps any) *Node {
	n := r.nodes.New(role, key, typ, pendingProps)
	r.passCreated = append(r.passCreated, n.ID)
	return n
}

func (r *Runtime) createNodeFromElement(el *Element, lanes lane.Lanes) *Node {
	var role Role
	switch el.Type.(type) {
	case string:
		role = &HostRole{}
	case *Component:
		role = &ComponentRole{}
	case *Context:
		role = &ProviderRole{}
	default:
		panic(ErrInvalidElementType)
	}

	n := r.newNode(role, el.Key, el.Type, el)
	n.Lanes = lanes
	return n
}

func (r *Runtime) createTextNode(text string, lanes lane.Lanes) *Node {
	n := r.newNode(&TextRole{}, "", nil, text)
	n.Lanes = lanes
	return n
}

// createWorkInProgress returns the in-progress counterpart of current, reusing its alternate when there is one.
func (r *Runtime) createWorkInProgress(current *Node, pendingProps any) *Node {
	wip := r.node(current.Alternate)
	if wip == nil {
		wip = r.newNode(current.Role.clone(), current.Key, current.Type, pendingProps)
		wip.Alternate = current.ID
		current.Alternate = wip.ID
	} else {
		wip.PendingProps = pendingProps
		wip.Type = current.Type
		wip.Role = current.Role.clone()
		wip.Flags = NoFlags
		wip.SubtreeFlags = NoFlags
		wip.Deletions = nil
	}

	wip.Lanes = current.Lanes
	wip.ChildLanes = current.ChildLanes
	wip.Child = current.Child
	wip.Sibling = current.Sibling
	wip.Index = current.Index
	wip.MemoizedProps = current.MemoizedProps
	wip.MemoizedState = current.MemoizedState
	wip.UpdateQueue = current.UpdateQueue

	wip.Dependencies = nil
	if deps := current.Dependencies; deps != nil {
		wip.Dependencies = &Dependencies{Lanes: deps.Lanes, Contexts: deps.Contexts}
	}

	return wip
}

// parentOf follows Parent, falling back to the alternate's parent when the link is stale.
func (r *Runtime) parentOf(n *Node) *Node {
	if p := r.node(n.Parent); p != nil {
		return p
	}
	if alt := r.node(n.Alternate); alt != nil {
		return r.node(alt.Parent)
	}
	return nil
}

// freeSubtree releases n, its descendants and their alternates.
func (r *Runtime) freeSubtree(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := r.node(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}

		for child := r.node(n.Child); child != nil; child = r.node(child.Sibling) {
			stack = append(stack, child.ID)
		}

		if alt := r.node(n.Alternate); alt != nil {
			r.nodes.Free(alt.ID)
		}
		r.nodes.Free(n.ID)
	}
}
