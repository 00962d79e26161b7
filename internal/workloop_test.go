package internal

import (
	"fmt"
	"testing"
	"time"

	"github.com/AnatoleLucet/reconcile/internal/config"
	"github.com/AnatoleLucet/reconcile/internal/lane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentRender(t *testing.T) {
	// App renders two counters above ten children, enough to outlast a short time slice.
	type app struct {
		el         *Element
		setA, setB func(any)
	}
	newApp := func(log *[]string) *app {
		a := &app{}
		item := component("Item", func(hooks *Hooks, props Props) Child {
			return nil
		})
		comp := component("App", func(hooks *Hooks, props Props) Child {
			va, setA := hooks.UseState(0)
			vb, setB := hooks.UseState(0)
			a.setA, a.setB = setA, setB
			*log = append(*log, fmt.Sprintf("render a=%v b=%v", va, vb))

			items := make([]Child, 10)
			for i := range items {
				items[i] = h(item, Props{"n": i})
			}
			return h("div", nil, fmt.Sprintf("a=%v b=%v", va, vb), items)
		})
		a.el = h(comp, nil)
		return a
	}

	t.Run("default priority updates wait for the scheduler", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		app := newApp(&log)
		require.NoError(t, env.render(app.el))

		require.NoError(t, env.r.WithPriority(lane.DefaultPriority, func() { app.setA(1) }))
		assert.Equal(t, "<div>a=0 b=0</div>", env.host.String())
		assert.True(t, lane.IncludesSome(env.root.PendingLanes(), lane.DefaultLanes))

		require.NoError(t, env.r.Flush())
		assert.Equal(t, "<div>a=1 b=0</div>", env.host.String())
		assert.Equal(t, lane.NoLanes, env.root.PendingLanes())
	})

	t.Run("a render yields when its slice runs out", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		app := newApp(&log)
		require.NoError(t, env.render(app.el))
		env.clock.Step = time.Millisecond

		require.NoError(t, env.r.WithPriority(lane.DefaultPriority, func() { app.setA(1) }))

		more, err := env.r.FlushSlice()
		require.NoError(t, err)
		assert.True(t, more)
		assert.Equal(t, "<div>a=0 b=0</div>", env.host.String())

		for more {
			more, err = env.r.FlushSlice()
			require.NoError(t, err)
		}
		assert.Equal(t, "<div>a=1 b=0</div>", env.host.String())
		assert.Equal(t, []string{"render a=0 b=0", "render a=1 b=0"}, log)
	})

	t.Run("sync update preempts a pass in progress and both apply", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		app := newApp(&log)
		require.NoError(t, env.render(app.el))
		env.clock.Step = time.Millisecond

		require.NoError(t, env.r.WithPriority(lane.DefaultPriority, func() { app.setA(1) }))
		more, err := env.r.FlushSlice()
		require.NoError(t, err)
		require.True(t, more)

		app.setB(1)
		assert.Equal(t, "<div>a=0 b=1</div>", env.host.String())

		require.NoError(t, env.r.Flush())
		assert.Equal(t, "<div>a=1 b=1</div>", env.host.String())
		assert.Equal(t, []string{
			"render a=0 b=0",
			"render a=1 b=0", // interrupted
			"render a=0 b=1",
			"render a=1 b=1",
		}, log)
	})

	t.Run("starved updates finish synchronously", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		app := newApp(&log)
		require.NoError(t, env.render(app.el))
		env.clock.Step = time.Millisecond

		require.NoError(t, env.r.WithPriority(lane.DefaultPriority, func() { app.setA(1) }))
		env.clock.Advance(10 * time.Second)

		_, err := env.r.FlushSlice()
		require.NoError(t, err)
		assert.Equal(t, "<div>a=1 b=0</div>", env.host.String())
	})

	t.Run("transition updates render later than sync ones", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}
		app := newApp(&log)
		require.NoError(t, env.render(app.el))

		require.NoError(t, env.r.StartTransition(func() { app.setA(1) }))
		assert.True(t, lane.IncludesSome(env.root.PendingLanes(), lane.TransitionLanes))

		app.setB(1)
		assert.Equal(t, "<div>a=0 b=1</div>", env.host.String())

		require.NoError(t, env.r.Flush())
		assert.Equal(t, "<div>a=1 b=1</div>", env.host.String())
	})
}

func TestNestedUpdates(t *testing.T) {
	limits := func(cfg *config.Config) {
		cfg.Limits.NestedUpdates = 10
		cfg.Limits.NestedPassiveUpdates = 10
	}

	t.Run("layout effects updating on every commit", func(t *testing.T) {
		env := newTestEnv(t, limits)
		renders := 0

		loop := component("Loop", func(hooks *Hooks, props Props) Child {
			v, set := hooks.UseState(0)
			renders++
			hooks.UseLayoutEffect(func() func() {
				set(v.(int) + 1)
				return nil
			}, nil)
			return v
		})

		err := env.render(h(loop, nil))

		assert.ErrorIs(t, err, ErrNestedUpdateLimit)
		assert.Less(t, renders, 20)

		// the runtime keeps working
		require.NoError(t, env.render("done"))
		assert.Equal(t, "done", env.host.String())
	})

	t.Run("passive effects updating on every commit", func(t *testing.T) {
		env := newTestEnv(t, limits)

		loop := component("Loop", func(hooks *Hooks, props Props) Child {
			v, set := hooks.UseState(0)
			hooks.UseEffect(func() func() {
				set(v.(int) + 1)
				return nil
			}, nil)
			return v
		})

		require.NoError(t, env.render(h(loop, nil)))
		assert.ErrorIs(t, env.r.Flush(), ErrNestedPassiveUpdateLimit)
	})

	t.Run("bounded chains are fine", func(t *testing.T) {
		env := newTestEnv(t, limits)

		chain := component("Chain", func(hooks *Hooks, props Props) Child {
			v, set := hooks.UseState(0)
			hooks.UseLayoutEffect(func() func() {
				if v.(int) < 5 {
					set(v.(int) + 1)
				}
				return nil
			}, []any{v})
			return v
		})

		require.NoError(t, env.render(h(chain, nil)))
		assert.Equal(t, "5", env.host.String())
	})
}

func TestRenderErrors(t *testing.T) {
	t.Run("a failed render keeps the committed tree", func(t *testing.T) {
		env := newTestEnv(t)

		broken := component("Broken", func(hooks *Hooks, props Props) Child {
			panic(fmt.Errorf("bad props %v", props["n"]))
		})

		require.NoError(t, env.render(h("p", nil, "ok")))
		env.host.reset()

		err := env.render(h("p", nil, h(broken, Props{"n": 1})))

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, "Broken", renderErr.Component)
		assert.EqualError(t, renderErr, "render Broken: bad props 1")
		assert.NotEmpty(t, renderErr.Stack)

		assert.Empty(t, env.host.log)
		assert.Equal(t, "<p>ok</p>", env.host.String())

		require.NoError(t, env.render(h("p", nil, "fixed")))
		assert.Equal(t, "<p>fixed</p>", env.host.String())
	})

	t.Run("errors outside of calls go to the handler", func(t *testing.T) {
		var handled []error
		env := newTestEnv(t)
		env.r.onError = func(err error) { handled = append(handled, err) }

		var set func(any)
		comp := component("Flaky", func(hooks *Hooks, props Props) Child {
			v, dispatch := hooks.UseState(0)
			set = dispatch
			if v.(int) > 0 {
				panic("flaky")
			}
			return v
		})

		require.NoError(t, env.render(h(comp, nil)))
		set(1)

		require.Len(t, handled, 1)
		assert.ErrorContains(t, handled[0], "flaky")
		assert.Equal(t, "0", env.host.String())
	})
}

func TestRootUpdates(t *testing.T) {
	t.Run("callbacks run once the update is committed", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}

		require.NoError(t, env.r.UpdateContainer(env.root, "a", func() {
			log = append(log, "committed "+env.host.String())
		}))
		require.NoError(t, env.render("b"))

		assert.Equal(t, []string{"committed a"}, log)
	})

	t.Run("force update runs a pass without changes", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.render("a"))
		env.host.reset()

		require.NoError(t, env.r.ForceUpdate(env.root))

		assert.Empty(t, env.host.log)
		assert.Equal(t, lane.SyncLane, env.root.LastCommit().Lanes)
	})

	t.Run("only the owner goroutine may schedule", func(t *testing.T) {
		env := newTestEnv(t)

		errs := make(chan error)
		go func() { errs <- env.render("a") }()

		assert.ErrorIs(t, <-errs, ErrWrongGoroutine)
	})

	t.Run("unmount runs every cleanup", func(t *testing.T) {
		env := newTestEnv(t)
		log := []string{}

		comp := component("Effects", func(hooks *Hooks, props Props) Child {
			hooks.UseLayoutEffect(func() func() {
				return func() { log = append(log, "layout cleanup") }
			}, []any{})
			hooks.UseEffect(func() func() {
				return func() { log = append(log, "passive cleanup") }
			}, []any{})
			return "x"
		})

		require.NoError(t, env.render(h(comp, nil)))
		require.NoError(t, env.r.Flush())
		require.NoError(t, env.r.Unmount(env.root))

		assert.Equal(t, []string{"layout cleanup", "passive cleanup"}, log)
		assert.True(t, env.root.Unmounted())
		assert.Nil(t, env.r.Tree(env.root))
	})
}
