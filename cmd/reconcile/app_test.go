package main

import (
	"io"
	"testing"

	"github.com/AnatoleLucet/reconcile"
	"github.com/AnatoleLucet/reconcile/memhost"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditor(t *testing.T) {
	t.Run("keys stay unique", func(t *testing.T) {
		ed := newEditor(20, 7)

		for range 500 {
			keys := ed.step()
			seen := mapset.NewThreadUnsafeSet(keys...)
			require.Equal(t, len(keys), seen.Cardinality())
		}
	})

	t.Run("same seed same edits", func(t *testing.T) {
		a, b := newEditor(10, 3), newEditor(10, 3)

		for range 50 {
			assert.Equal(t, a.step(), b.step())
		}
	})

	t.Run("incremental renders match a fresh mount", func(t *testing.T) {
		logger, err := reconcile.NewLogger(io.Discard, "disabled")
		require.NoError(t, err)
		rt := reconcile.NewRuntime(reconcile.WithLogger(logger), reconcile.WithClock(reconcile.NewManualClock()))
		host := memhost.New()
		root := rt.CreateRoot(host, host.Container())
		ed := newEditor(30, 11)

		var keys []int
		for range 100 {
			keys = ed.step()
			require.NoError(t, root.Render(list(keys, "dark")))
		}

		want, err := reference(keys, "dark")
		require.NoError(t, err)
		assert.Equal(t, want, host.Fingerprint())
	})
}
