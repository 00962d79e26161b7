package internal

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/AnatoleLucet/reconcile/internal/config"
	"github.com/AnatoleLucet/reconcile/internal/logging"
	"github.com/AnatoleLucet/reconcile/internal/scheduler"
)

type fakeInstance struct {
	id       int
	typ      string
	text     string
	props    Props
	parent   *fakeInstance
	children []*fakeInstance
}

func (n *fakeInstance) label() string {
	if n.typ == "" {
		return fmt.Sprintf("%q", n.text)
	}
	return n.typ
}

// fakeHost keeps a tree of fakeInstance and logs every call it receives.
type fakeHost struct {
	root   *fakeInstance
	nextID int
	log    []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{root: &fakeInstance{typ: "root"}}
}

func (h *fakeHost) CreateInstance(typ string, props Props) any {
	h.nextID++
	h.log = append(h.log, "create "+typ)
	return &fakeInstance{id: h.nextID, typ: typ, props: maps.Clone(props)}
}

func (h *fakeHost) CreateText(text string) any {
	h.nextID++
	h.log = append(h.log, fmt.Sprintf("create %q", text))
	return &fakeInstance{id: h.nextID, text: text}
}

func (h *fakeHost) detach(c *fakeInstance) {
	if c.parent != nil {
		c.parent.children = slices.DeleteFunc(c.parent.children, func(n *fakeInstance) bool { return n == c })
		c.parent = nil
	}
}

func (h *fakeHost) AppendChild(parent, child any) {
	p, c := parent.(*fakeInstance), child.(*fakeInstance)
	h.detach(c)
	c.parent = p
	p.children = append(p.children, c)
	h.log = append(h.log, fmt.Sprintf("append %s %s", p.label(), c.label()))
}

func (h *fakeHost) InsertBefore(parent, child, before any) {
	p, c, b := parent.(*fakeInstance), child.(*fakeInstance), before.(*fakeInstance)
	h.detach(c)
	c.parent = p
	p.children = slices.Insert(p.children, slices.Index(p.children, b), c)
	h.log = append(h.log, fmt.Sprintf("insert %s %s before %s", p.label(), c.label(), b.label()))
}

func (h *fakeHost) RemoveChild(parent, child any) {
	p, c := parent.(*fakeInstance), child.(*fakeInstance)
	if c.parent != p {
		panic("not a child")
	}
	h.detach(c)
	h.log = append(h.log, fmt.Sprintf("remove %s %s", p.label(), c.label()))
}

func (h *fakeHost) PrepareUpdate(instance any, typ string, oldProps, newProps Props) any {
	if maps.EqualFunc(oldProps, newProps, func(a, b any) bool { return a == b }) {
		return nil
	}
	return maps.Clone(newProps)
}

func (h *fakeHost) CommitUpdate(instance any, payload any) {
	n := instance.(*fakeInstance)
	switch p := payload.(type) {
	case string:
		n.text = p
	case Props:
		n.props = p
	}
	h.log = append(h.log, "update "+n.label())
}

func (h *fakeHost) FinalizeInitial(instance any, typ string, props Props) bool {
	return false
}

func (h *fakeHost) String() string {
	var b strings.Builder
	var write func(n *fakeInstance)
	write = func(n *fakeInstance) {
		if n.typ == "" {
			b.WriteString(n.text)
			return
		}
		b.WriteString("<" + n.typ + ">")
		for _, c := range n.children {
			write(c)
		}
		b.WriteString("</" + n.typ + ">")
	}
	for _, c := range h.root.children {
		write(c)
	}
	return b.String()
}

func (h *fakeHost) reset() {
	h.log = nil
}

type testEnv struct {
	r     *Runtime
	host  *fakeHost
	root  *RenderRoot
	clock *scheduler.ManualClock
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	for _, fn := range tweak {
		fn(&cfg)
	}

	clock := scheduler.NewManualClock()
	r := NewRuntime(Options{
		Clock:  clock,
		Logger: logging.Discard(),
		Config: &cfg,
	})
	host := newFakeHost()

	return &testEnv{
		r:     r,
		host:  host,
		root:  r.CreateRoot(host, host.root),
		clock: clock,
	}
}

func (e *testEnv) render(child Child) error {
	return e.r.UpdateContainer(e.root, child)
}

func h(typ any, props Props, children ...Child) *Element {
	return &Element{Type: typ, Props: props, Children: children}
}

func keyed(key string, el *Element) *Element {
	el.Key = key
	return el
}

func component(name string, render func(h *Hooks, props Props) Child) *Component {
	return &Component{Name: name, Render: render}
}
