package main

import (
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/AnatoleLucet/reconcile"
)

var theme = reconcile.NewContext("light")

var row = reconcile.NewComponent("Row", func(h *reconcile.Hooks, props reconcile.Props) reconcile.Child {
	label := props["label"].(string)
	return reconcile.H("li", reconcile.Props{"class": reconcile.UseContext(h, theme)}, label)
})

// list renders keys as keyed rows under a theme provider.
func list(keys []int, color string) reconcile.Child {
	rows := make([]reconcile.Child, len(keys))
	for i, k := range keys {
		key := strconv.Itoa(k)
		rows[i] = reconcile.Keyed(key, reconcile.H(row, reconcile.Props{"label": "item " + key}))
	}
	return theme.Provider(color, reconcile.H("ul", nil, rows...))
}

// editor produces the key sequences rendered by bench.
type editor struct {
	rng  *rand.Rand
	keys []int
	next int
}

func newEditor(items int, seed uint64) *editor {
	e := &editor{rng: rand.New(rand.NewPCG(seed, seed))}
	for range items {
		e.keys = append(e.keys, e.next)
		e.next++
	}
	return e
}

// step applies one random edit: a swap, an insertion, a removal or a full shuffle.
func (e *editor) step() []int {
	n := len(e.keys)
	switch op := e.rng.IntN(8); {
	case op == 0:
		e.rng.Shuffle(n, func(i, j int) { e.keys[i], e.keys[j] = e.keys[j], e.keys[i] })
	case op < 3 && n > 1:
		i, j := e.rng.IntN(n), e.rng.IntN(n)
		e.keys[i], e.keys[j] = e.keys[j], e.keys[i]
	case op < 5 || n == 0:
		e.keys = slices.Insert(e.keys, e.rng.IntN(n+1), e.next)
		e.next++
	default:
		i := e.rng.IntN(n)
		e.keys = slices.Delete(e.keys, i, i+1)
	}
	return slices.Clone(e.keys)
}
