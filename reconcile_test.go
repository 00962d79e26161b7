package reconcile

import (
	"io"
	"slices"
	"testing"

	"github.com/AnatoleLucet/reconcile/memhost"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()

	logger, err := NewLogger(io.Discard, "disabled")
	require.NoError(t, err)

	return NewRuntime(append([]Option{WithClock(NewManualClock()), WithLogger(logger)}, opts...)...)
}

func mount(t *testing.T, rt *Runtime) (*Root, *memhost.Host) {
	t.Helper()

	host := memhost.New()
	return rt.CreateRoot(host, host.Container()), host
}

func items(keys ...string) *Element {
	children := make([]Child, len(keys))
	for i, k := range keys {
		children[i] = Keyed(k, H("li", nil, k))
	}
	return H("ul", nil, children...)
}

func TestRender(t *testing.T) {
	t.Run("mounting text creates and appends it once", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, root.Render(Text("hello")))

		assert.Equal(t, 1, host.Count(memhost.OpCreateText))
		assert.Equal(t, 1, host.Count(memhost.OpAppendChild))
		assert.Equal(t, "hello", host.String())
		assert.Equal(t, 1, root.LastCommit().Placements)
	})

	t.Run("batched state updates produce one host update", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		var set func(int)
		counter := NewComponent("Counter", func(h *Hooks, props Props) Child {
			count, setCount := UseState(h, 0)
			set = setCount
			return H("span", Props{"count": count})
		})

		require.NoError(t, root.Render(H(counter, nil)))
		host.Reset()

		require.NoError(t, rt.Batch(func() {
			set(1)
			set(2)
		}))

		assert.Equal(t, []string{"commit-update span#1 {count=2}"}, host.OpStrings())
		assert.Equal(t, `<span count="2"/>`, host.String())
	})

	t.Run("deleting a keyed child removes only that child", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, root.Render(items("1", "2", "3")))
		host.Reset()

		require.NoError(t, root.Render(items("1", "3")))

		ops := host.Ops()
		require.Len(t, ops, 1)
		assert.Equal(t, memhost.OpRemoveChild, ops[0].Kind)
		assert.Equal(t, "2", ops[0].Node.Children[0].Text)
		assert.Equal(t, "<ul><li>1</li><li>3</li></ul>", host.String())

		stats := root.LastCommit()
		assert.Equal(t, 1, stats.Deletions)
		assert.Zero(t, stats.Placements+stats.Moves+stats.Updates)
	})

	t.Run("rendering the same tree again does nothing", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		tree := items("1", "2", "3")
		require.NoError(t, root.Render(tree))
		host.Reset()

		require.NoError(t, root.Render(tree))

		assert.Empty(t, host.Ops())
		stats := root.LastCommit()
		assert.Zero(t, stats.Placements+stats.Moves+stats.Updates+stats.Deletions)
	})

	t.Run("an equal tree only diffs props", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, root.Render(H("div", Props{"id": "a"}, items("1", "2"))))
		host.Reset()

		require.NoError(t, root.Render(H("div", Props{"id": "a"}, items("1", "2"))))

		assert.Empty(t, host.Ops())
	})

	t.Run("keyed moves keep host nodes", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, root.Render(items("a", "b", "c")))
		before := slices.Clone(host.Container().Children[0].Children)
		host.Reset()

		require.NoError(t, root.Render(items("b", "c", "a")))

		after := host.Container().Children[0].Children
		assert.Same(t, before[1], after[0])
		assert.Same(t, before[0], after[2])
		assert.Equal(t, 1, root.LastCommit().Moves)
		assert.Zero(t, host.Count(memhost.OpCreateInstance))
	})

	t.Run("callbacks run after the commit", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		log := []string{}
		require.NoError(t, root.Render(Text("x"), func() {
			log = append(log, "committed "+host.String())
		}))

		assert.Equal(t, []string{"committed x"}, log)
	})

	t.Run("unmount empties the container", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, root.Render(items("1")))
		require.NoError(t, root.Unmount())

		assert.Empty(t, host.String())
		assert.Nil(t, root.Tree())
		assert.ErrorIs(t, root.Render(Text("again")), ErrRootUnmounted)
		assert.NoError(t, root.Unmount())
	})

	t.Run("roots have unique ids", func(t *testing.T) {
		rt := newTestRuntime(t)
		a, _ := mount(t, rt)
		b, _ := mount(t, rt)

		_, err := uuid.Parse(a.ID())
		require.NoError(t, err)
		assert.NotEqual(t, a.ID(), b.ID())
	})

	t.Run("tree reflects the committed nodes", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, _ := mount(t, rt)

		require.NoError(t, root.Render(items("1", "2")))

		tree := root.Tree()
		require.Len(t, tree.Children, 1)
		ul := tree.Children[0]
		assert.Equal(t, "ul", ul.Type)
		require.Len(t, ul.Children, 2)
		assert.Equal(t, "2", ul.Children[1].Key)
	})
}

func TestElements(t *testing.T) {
	t.Run("keyed copies the element", func(t *testing.T) {
		el := H("li", nil)
		k := Keyed("a", el)

		assert.Empty(t, el.Key)
		assert.Equal(t, "a", k.Key)
	})

	t.Run("deps without values means mount only", func(t *testing.T) {
		assert.NotNil(t, Deps())
		assert.Empty(t, Deps())
		assert.Equal(t, []any{1, "a"}, Deps(1, "a"))
	})

	t.Run("lists and text", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, root.Render(List(Text("a"), nil, List(1, 2.5), false)))

		assert.Equal(t, "a12.5", host.String())
	})
}
