package internal

import "github.com/AnatoleLucet/reconcile/internal/lane"

// TreeNode is a read-only copy of one committed node.
type TreeNode struct {
	Role     string
	Type     string
	Key      string
	Text     string
	Lanes    lane.Lanes
	Flags    Flags
	Children []*TreeNode
}

// Walk calls fn on n and its descendants, parents first.
func (n *TreeNode) Walk(fn func(n *TreeNode, depth int)) {
	var walk func(n *TreeNode, depth int)
	walk = func(n *TreeNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// Tree snapshots the committed tree of root. It returns nil once the root is unmounted.
func (r *Runtime) Tree(root *RenderRoot) *TreeNode {
	if root.unmounted {
		return nil
	}
	return r.snapshot(r.node(root.current))
}

func (r *Runtime) snapshot(n *Node) *TreeNode {
	t := &TreeNode{
		Role:  n.Role.Name(),
		Type:  typeName(n.Type),
		Key:   n.Key,
		Lanes: n.Lanes | n.ChildLanes,
		Flags: n.Flags,
	}
	if text, ok := n.MemoizedProps.(string); ok {
		t.Text = text
	}

	for child := r.node(n.Child); child != nil; child = r.node(child.Sibling) {
		t.Children = append(t.Children, r.snapshot(child))
	}
	return t
}
