package internal

import "github.com/AnatoleLucet/reconcile/internal/lane"

// completeWork finalizes wip once all of its children are done.
func (r *Runtime) completeWork(current, wip *Node) {
	host := r.wipRoot.host

	switch role := wip.Role.(type) {
	case *RootRole:
		if current == nil || current.Child == NoNode {
			// first tree placed in this container
			wip.Flags.set(Snapshot)
		}

	case *HostRole:
		el := wip.PendingProps.(*Element)
		typ := el.Type.(string)

		if current != nil && role.Instance != nil {
			old := current.MemoizedProps.(*Element)
			if old == el {
				break
			}
			role.Payload = host.PrepareUpdate(role.Instance, typ, old.Props, el.Props)
			if role.Payload != nil {
				wip.Flags.set(UpdateFlag)
			}
			break
		}

		inst := host.CreateInstance(typ, el.Props)
		r.appendAllChildren(host, inst, wip)
		role.Instance = inst
		if host.FinalizeInitial(inst, typ, el.Props) {
			wip.Flags.set(UpdateFlag)
		}

	case *TextRole:
		text := wip.PendingProps.(string)
		if current != nil && role.Instance != nil {
			if current.MemoizedProps.(string) != text {
				wip.Flags.set(UpdateFlag)
			}
			break
		}
		role.Instance = host.CreateText(text)

	case *ProviderRole:
		r.contexts.Pop(wip.ID)
	}

	r.bubbleProperties(current, wip)
}

// appendAllChildren attaches the top-level host instances below wip to inst.
func (r *Runtime) appendAllChildren(host Host, inst any, wip *Node) {
	n := r.node(wip.Child)
	for n != nil {
		if child, ok := hostInstance(n); ok {
			host.AppendChild(inst, child)
		} else if c := r.node(n.Child); c != nil {
			c.Parent = n.ID
			n = c
			continue
		}

		if n.ID == wip.ID {
			return
		}
		for n.Sibling == NoNode {
			if n.Parent == NoNode || n.Parent == wip.ID {
				return
			}
			n = r.node(n.Parent)
		}
		sib := r.node(n.Sibling)
		sib.Parent = n.Parent
		n = sib
	}
}

func hostInstance(n *Node) (any, bool) {
	switch role := n.Role.(type) {
	case *HostRole:
		return role.Instance, true
	case *TextRole:
		return role.Instance, true
	}
	return nil, false
}

// bubbleProperties folds the lanes and flags of wip's children into wip.
func (r *Runtime) bubbleProperties(current, wip *Node) {
	didBailout := current != nil && current.Child == wip.Child

	var childLanes lane.Lanes
	var subtreeFlags Flags

	for child := r.node(wip.Child); child != nil; child = r.node(child.Sibling) {
		childLanes |= child.Lanes | child.ChildLanes
		if !didBailout {
			subtreeFlags |= child.SubtreeFlags | child.Flags
			child.Parent = wip.ID
		}
	}

	wip.SubtreeFlags |= subtreeFlags
	wip.ChildLanes = childLanes
}
