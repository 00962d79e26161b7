package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// observingHost implements the optional host interfaces on top of fakeHost.
type observingHost struct {
	*fakeHost
}

func (o *observingHost) FinalizeInitial(instance any, typ string, props Props) bool {
	return props["autofocus"] == true
}

func (o *observingHost) ClearContainer(container any) {
	o.log = append(o.log, "clear")
}

func (o *observingHost) PrepareForCommit(container any) {
	o.log = append(o.log, "prepare")
}

func (o *observingHost) ResetAfterCommit(container any) {
	o.log = append(o.log, "reset")
}

func (o *observingHost) CommitMount(instance any, typ string, props Props) {
	o.log = append(o.log, "mount "+typ)
}

type brokenHost struct {
	*fakeHost
}

func (b *brokenHost) AppendChild(parent, child any) {
	panic("host is gone")
}

func TestCommitPhases(t *testing.T) {
	effects := func(log *[]string) *Component {
		return component("Effects", func(hooks *Hooks, props Props) Child {
			name := props["name"].(string)
			deps := []any{props["n"]}

			hooks.UseLayoutEffect(func() func() {
				*log = append(*log, name+" layout")
				return func() { *log = append(*log, name+" layout cleanup") }
			}, deps)
			hooks.UseEffect(func() func() {
				*log = append(*log, name+" passive")
				return func() { *log = append(*log, name+" passive cleanup") }
			}, deps)
			return nil
		})
	}

	t.Run("layout effects run during commit, passive ones after", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		comp := effects(&log)
		tree := func(n int) *Element {
			return h("div", nil, h(comp, Props{"name": "A", "n": n}), h(comp, Props{"name": "B", "n": n}))
		}

		require.NoError(t, env.render(tree(1)))
		assert.Equal(t, []string{"A layout", "B layout"}, log)

		require.NoError(t, env.r.Flush())
		assert.Equal(t, []string{"A layout", "B layout", "A passive", "B passive"}, log)

		log = log[:0]
		require.NoError(t, env.render(tree(2)))
		require.NoError(t, env.r.Flush())
		assert.Equal(t, []string{
			"A layout cleanup",
			"B layout cleanup",
			"A layout",
			"B layout",
			"A passive cleanup",
			"B passive cleanup",
			"A passive",
			"B passive",
		}, log)
	})

	t.Run("unchanged deps skip the effect", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		comp := effects(&log)

		require.NoError(t, env.render(h(comp, Props{"name": "A", "n": 1})))
		require.NoError(t, env.r.Flush())
		log = log[:0]

		require.NoError(t, env.render(h(comp, Props{"name": "A", "n": 1})))
		require.NoError(t, env.r.Flush())
		assert.Empty(t, log)
	})

	t.Run("pending passive effects flush before the next render", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		comp := effects(&log)

		require.NoError(t, env.render(h(comp, Props{"name": "A", "n": 1})))
		require.NoError(t, env.render(h(comp, Props{"name": "A", "n": 2})))

		assert.Equal(t, []string{
			"A layout",
			"A passive",
			"A layout cleanup",
			"A layout",
		}, log)
	})

	t.Run("a panicking cleanup does not stop the others", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}

		comp := component("Effects", func(hooks *Hooks, props Props) Child {
			name := props["name"].(string)
			hooks.UseEffect(func() func() {
				log = append(log, name+" passive")
				return func() {
					if name == "A" {
						panic("cleanup failed")
					}
					log = append(log, name+" passive cleanup")
				}
			}, []any{props["n"]})
			return nil
		})
		tree := func(n int) *Element {
			return h("div", nil, h(comp, Props{"name": "A", "n": n}), h(comp, Props{"name": "B", "n": n}))
		}

		require.NoError(t, env.render(tree(1)))
		require.NoError(t, env.r.Flush())
		log = log[:0]

		require.NoError(t, env.render(tree(2)))
		err := env.r.Flush()

		var effectErr *EffectError
		require.ErrorAs(t, err, &effectErr)
		assert.Equal(t, "Effects", effectErr.Component)
		assert.Equal(t, "passive cleanup", effectErr.Phase)
		assert.Equal(t, []string{"B passive cleanup", "A passive", "B passive"}, log)
	})

	t.Run("a panicking layout effect is reported", func(t *testing.T) {
		env := newTestEnv(t)

		comp := component("Broken", func(hooks *Hooks, props Props) Child {
			hooks.UseLayoutEffect(func() func() { panic("layout failed") }, nil)
			return "still mounted"
		})

		err := env.render(h(comp, nil))

		var effectErr *EffectError
		require.ErrorAs(t, err, &effectErr)
		assert.Equal(t, "layout", effectErr.Phase)
		assert.Equal(t, "still mounted", env.host.String())
	})

	t.Run("optional host hooks bracket the commit", func(t *testing.T) {
		host := &observingHost{newFakeHost()}
		env := newTestEnv(t)
		root := env.r.CreateRoot(host, host.root)

		require.NoError(t, env.r.UpdateContainer(root, h("input", Props{"autofocus": true})))

		assert.Equal(t, []string{
			"create input",
			"prepare",
			"clear",
			"append root input",
			"reset",
			"mount input",
		}, host.log)
	})

	t.Run("host panics are reported", func(t *testing.T) {
		host := &brokenHost{newFakeHost()}
		env := newTestEnv(t)
		root := env.r.CreateRoot(host, host.root)

		err := env.r.UpdateContainer(root, "x")

		var hostErr *HostError
		require.ErrorAs(t, err, &hostErr)
		assert.Equal(t, "append child", hostErr.Op)
	})
}
