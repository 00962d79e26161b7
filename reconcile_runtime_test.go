package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnatoleLucet/reconcile/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime(t *testing.T) {
	t.Run("priorities below sync wait for a flush", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, rt.WithPriority(DefaultPriority, func() {
			require.NoError(t, root.Render(Text("later")))
		}))
		assert.Empty(t, host.String())
		assert.NotZero(t, root.Pending())

		require.NoError(t, rt.Flush())
		assert.Equal(t, "later", host.String())
		assert.Zero(t, root.Pending())
	})

	t.Run("transitions wait for a flush", func(t *testing.T) {
		rt := newTestRuntime(t)
		root, host := mount(t, rt)

		require.NoError(t, rt.StartTransition(func() {
			require.NoError(t, root.Render(Text("later")))
		}))
		assert.Empty(t, host.String())

		require.NoError(t, rt.Flush())
		assert.Equal(t, "later", host.String())
	})

	t.Run("time slices", func(t *testing.T) {
		clock := NewManualClock()
		rt := newTestRuntime(t, WithClock(clock), WithYieldInterval(2))
		root, host := mount(t, rt)
		clock.Step = time.Millisecond

		require.NoError(t, rt.WithPriority(DefaultPriority, func() {
			require.NoError(t, root.Render(items("1", "2", "3", "4", "5")))
		}))

		slices := 0
		for more := true; more; slices++ {
			var err error
			more, err = rt.FlushSlice()
			require.NoError(t, err)
		}

		assert.Greater(t, slices, 1)
		assert.Equal(t, "<ul><li>1</li><li>2</li><li>3</li><li>4</li><li>5</li></ul>", host.String())
	})

	t.Run("error handler sees errors outside of calls", func(t *testing.T) {
		var handled []error
		rt := newTestRuntime(t, WithErrorHandler(func(err error) { handled = append(handled, err) }))
		root, _ := mount(t, rt)

		var set func(int)
		comp := NewComponent("Flaky", func(h *Hooks, props Props) Child {
			v, s := UseState(h, 0)
			set = s
			if v > 0 {
				panic("flaky")
			}
			return v
		})

		require.NoError(t, root.Render(H(comp, nil)))
		set(1)

		require.Len(t, handled, 1)
		var renderErr *RenderError
		assert.ErrorAs(t, handled[0], &renderErr)
	})

	t.Run("nested update limit is configurable", func(t *testing.T) {
		rt := newTestRuntime(t, WithNestedUpdateLimit(3))
		root, _ := mount(t, rt)

		renders := 0
		comp := NewComponent("Loop", func(h *Hooks, props Props) Child {
			v, set := UseState(h, 0)
			renders++
			UseLayoutEffect(h, func() func() {
				set(v + 1)
				return nil
			}, nil)
			return v
		})

		assert.ErrorIs(t, root.Render(H(comp, nil)), ErrNestedUpdateLimit)
		assert.Less(t, renders, 10)
	})

	t.Run("posted work runs on the loop", func(t *testing.T) {
		rt := newTestRuntime(t)
		host := memhost.New()
		root := rt.CreateRoot(host, host.Container())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- rt.Run(ctx) }()

		rt.Post(func() {
			_ = root.Render(Text("posted"))
			cancel()
		})

		assert.ErrorIs(t, <-done, context.Canceled)
		assert.Equal(t, "posted", host.String())
	})

	t.Run("the default runtime belongs to the goroutine", func(t *testing.T) {
		host := memhost.New()
		root := CreateRoot(host, host.Container())

		require.NoError(t, root.Render(Text("default")))
		assert.Equal(t, "default", host.String())
		assert.Same(t, Default().rt, Default().rt)

		before := Default().rt
		ReleaseDefault()
		assert.NotSame(t, before, Default().rt)
		assert.Equal(t, "default", host.String())
	})
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultConfig()

		assert.Equal(t, 5, cfg.Scheduler.YieldIntervalMs)
		assert.Equal(t, 50, cfg.Limits.NestedUpdates)
		assert.Equal(t, 25, cfg.Limits.Rerenders)
	})

	t.Run("load from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reconcile.toml")
		require.NoError(t, os.WriteFile(path, []byte("[limits]\nnested_updates = 7\n"), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Limits.NestedUpdates)
		assert.Equal(t, 5, cfg.Scheduler.YieldIntervalMs)

		rt := NewRuntime(WithConfig(cfg))
		assert.NotNil(t, rt.Logger())
	})

	t.Run("bad log level", func(t *testing.T) {
		logger, err := NewLogger(os.Stderr, "loud")
		assert.Error(t, err)
		assert.NotNil(t, logger)
	})
}
