// Package memhost is an in-memory host for the render engine. It keeps a plain node
// tree and records every operation the engine asks of it.
package memhost

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/AnatoleLucet/reconcile/internal"
	"github.com/cespare/xxhash/v2"
)

// Node is a host instance. Text nodes have an empty Type.
type Node struct {
	ID       int
	Type     string
	Text     string
	Props    internal.Props
	Parent   *Node
	Children []*Node

	Mounted bool
}

func (n *Node) IsText() bool {
	return n.Type == ""
}

// Label names n in operation logs, e.g. "li#3" or "text#4".
func (n *Node) Label() string {
	if n == nil {
		return "<nil>"
	}
	if n.IsText() {
		return "text#" + strconv.Itoa(n.ID)
	}
	return n.Type + "#" + strconv.Itoa(n.ID)
}

type OpKind string

const (
	OpCreateInstance OpKind = "create-instance"
	OpCreateText     OpKind = "create-text"
	OpAppendChild    OpKind = "append-child"
	OpInsertBefore   OpKind = "insert-before"
	OpRemoveChild    OpKind = "remove-child"
	OpCommitUpdate   OpKind = "commit-update"
	OpCommitMount    OpKind = "commit-mount"
	OpClearContainer OpKind = "clear-container"
)

// Op is one recorded host call.
type Op struct {
	Kind    OpKind
	Node    *Node
	Parent  *Node
	Before  *Node
	Payload any
}

func (o Op) String() string {
	switch o.Kind {
	case OpCreateText:
		return fmt.Sprintf("%s %s %q", o.Kind, o.Node.Label(), o.Node.Text)
	case OpAppendChild, OpRemoveChild:
		return fmt.Sprintf("%s %s %s", o.Kind, o.Parent.Label(), o.Node.Label())
	case OpInsertBefore:
		return fmt.Sprintf("%s %s %s %s", o.Kind, o.Parent.Label(), o.Node.Label(), o.Before.Label())
	case OpCommitUpdate:
		return fmt.Sprintf("%s %s %v", o.Kind, o.Node.Label(), formatPayload(o.Payload))
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Node.Label())
}

// Payload is what PrepareUpdate hands back for elements: changed props, and removed keys.
type Payload struct {
	Set     internal.Props
	Removed []string
}

func formatPayload(p any) string {
	switch v := p.(type) {
	case string:
		return strconv.Quote(v)
	case *Payload:
		var parts []string
		for _, k := range slices.Sorted(maps.Keys(v.Set)) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v.Set[k]))
		}
		for _, k := range v.Removed {
			parts = append(parts, "-"+k)
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return fmt.Sprint(p)
}

var (
	_ internal.Host             = (*Host)(nil)
	_ internal.ContainerClearer = (*Host)(nil)
	_ internal.CommitObserver   = (*Host)(nil)
	_ internal.Mounter          = (*Host)(nil)
)

// Host implements the engine's host interface on Node trees.
type Host struct {
	root   *Node
	nextID int
	ops    []Op

	// Commits counts PrepareForCommit calls.
	Commits int
	// Focused is the last instance mounted with the autofocus prop.
	Focused *Node
}

func New() *Host {
	return &Host{root: &Node{ID: 0, Type: "root"}}
}

// Container is the node roots render into.
func (h *Host) Container() *Node {
	return h.root
}

func (h *Host) Ops() []Op {
	return h.ops
}

// OpStrings returns the recorded operations in their log form.
func (h *Host) OpStrings() []string {
	out := make([]string, len(h.ops))
	for i, op := range h.ops {
		out[i] = op.String()
	}
	return out
}

// Count returns how many operations of kind were recorded.
func (h *Host) Count(kind OpKind) int {
	n := 0
	for _, op := range h.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets the recorded operations. The tree is kept.
func (h *Host) Reset() {
	h.ops = nil
}

func (h *Host) record(op Op) {
	h.ops = append(h.ops, op)
}

func (h *Host) newNode(typ string) *Node {
	h.nextID++
	return &Node{ID: h.nextID, Type: typ}
}

func (h *Host) CreateInstance(typ string, props internal.Props) any {
	n := h.newNode(typ)
	n.Props = maps.Clone(props)
	h.record(Op{Kind: OpCreateInstance, Node: n})
	return n
}

func (h *Host) CreateText(text string) any {
	n := h.newNode("")
	n.Text = text
	h.record(Op{Kind: OpCreateText, Node: n})
	return n
}

func (h *Host) AppendChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	detach(c)
	c.Parent = p
	p.Children = append(p.Children, c)
	h.record(Op{Kind: OpAppendChild, Node: c, Parent: p})
}

func (h *Host) InsertBefore(parent, child, before any) {
	p, c, b := parent.(*Node), child.(*Node), before.(*Node)
	detach(c)

	i := slices.Index(p.Children, b)
	if i < 0 {
		panic(fmt.Sprintf("insert before: %s is not a child of %s", b.Label(), p.Label()))
	}
	c.Parent = p
	p.Children = slices.Insert(p.Children, i, c)
	h.record(Op{Kind: OpInsertBefore, Node: c, Parent: p, Before: b})
}

func (h *Host) RemoveChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	if c.Parent != p {
		panic(fmt.Sprintf("remove child: %s is not a child of %s", c.Label(), p.Label()))
	}
	detach(c)
	h.record(Op{Kind: OpRemoveChild, Node: c, Parent: p})
}

func detach(c *Node) {
	if c.Parent == nil {
		return
	}
	c.Parent.Children = slices.DeleteFunc(c.Parent.Children, func(n *Node) bool { return n == c })
	c.Parent = nil
}

// PrepareUpdate diffs props. Handlers (func values) are not host-visible state: a handler
// replacing another one is stored on the node right away and never reported as a change.
func (h *Host) PrepareUpdate(instance any, typ string, oldProps, newProps internal.Props) any {
	n := instance.(*Node)
	p := &Payload{}
	for k, v := range newProps {
		old, ok := oldProps[k]
		if ok && isHandler(old) && isHandler(v) {
			if n.Props == nil {
				n.Props = internal.Props{}
			}
			n.Props[k] = v
			continue
		}
		if !ok || !reflect.DeepEqual(old, v) {
			if p.Set == nil {
				p.Set = internal.Props{}
			}
			p.Set[k] = v
		}
	}
	for k := range oldProps {
		if _, ok := newProps[k]; !ok {
			p.Removed = append(p.Removed, k)
		}
	}
	if p.Set == nil && p.Removed == nil {
		return nil
	}
	slices.Sort(p.Removed)
	return p
}

func isHandler(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

func (h *Host) CommitUpdate(instance, payload any) {
	n := instance.(*Node)
	switch p := payload.(type) {
	case string:
		n.Text = p
	case *Payload:
		if n.Props == nil {
			n.Props = internal.Props{}
		}
		maps.Copy(n.Props, p.Set)
		for _, k := range p.Removed {
			delete(n.Props, k)
		}
	}
	h.record(Op{Kind: OpCommitUpdate, Node: n, Payload: payload})
}

// FinalizeInitial asks for a CommitMount when the element has a truthy autofocus prop.
func (h *Host) FinalizeInitial(instance any, typ string, props internal.Props) bool {
	focus, _ := props["autofocus"].(bool)
	return focus
}

func (h *Host) CommitMount(instance any, typ string, props internal.Props) {
	n := instance.(*Node)
	n.Mounted = true
	h.Focused = n
	h.record(Op{Kind: OpCommitMount, Node: n})
}

func (h *Host) ClearContainer(container any) {
	c := container.(*Node)
	for _, child := range slices.Clone(c.Children) {
		detach(child)
	}
	h.record(Op{Kind: OpClearContainer, Node: c})
}

func (h *Host) PrepareForCommit(container any) {
	h.Commits++
}

func (h *Host) ResetAfterCommit(container any) {}

// String renders the container's children as markup.
func (h *Host) String() string {
	var b strings.Builder
	for _, c := range h.root.Children {
		write(&b, c)
	}
	return b.String()
}

func write(b *strings.Builder, n *Node) {
	if n.IsText() {
		b.WriteString(n.Text)
		return
	}

	b.WriteString("<" + n.Type)
	for _, k := range slices.Sorted(maps.Keys(n.Props)) {
		v := n.Props[k]
		if reflect.ValueOf(v).Kind() == reflect.Func {
			continue
		}
		fmt.Fprintf(b, " %s=%q", k, fmt.Sprint(v))
	}
	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")
	for _, c := range n.Children {
		write(b, c)
	}
	b.WriteString("</" + n.Type + ">")
}

// Fingerprint hashes the rendered markup, so two hosts holding the same tree compare equal.
func (h *Host) Fingerprint() uint64 {
	return xxhash.Sum64String(h.String())
}
