package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/AnatoleLucet/reconcile"
	"github.com/AnatoleLucet/reconcile/memhost"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

type traceStep struct {
	name string
	run  func() error
}

func trace(ctx context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	host := memhost.New()
	root := rt.CreateRoot(host, host.Container())

	var setCount func(int)
	counter := reconcile.NewComponent("Counter", func(h *reconcile.Hooks, props reconcile.Props) reconcile.Child {
		count, set := reconcile.UseState(h, 0)
		setCount = set
		return reconcile.H("span", reconcile.Props{"count": count}, count)
	})

	steps := []traceStep{
		{"mount text", func() error { return root.Render(reconcile.Text("hello")) }},
		{"mount counter", func() error { return root.Render(reconcile.H(counter, nil)) }},
		{"batched update", func() error {
			return rt.Batch(func() {
				setCount(1)
				setCount(2)
			})
		}},
		{"mount list", func() error { return root.Render(keyedList(1, 2, 3)) }},
		{"keyed delete", func() error { return root.Render(keyedList(1, 3)) }},
		{"keyed swap", func() error { return root.Render(keyedList(3, 1)) }},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"step", "#", "operation", "host"})
	table.SetAutoMergeCells(true)

	for _, s := range steps {
		host.Reset()
		if err := s.run(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}

		ops := host.OpStrings()
		if len(ops) == 0 {
			table.Append([]string{s.name, "-", "(none)", host.String()})
		}
		for i, op := range ops {
			table.Append([]string{s.name, strconv.Itoa(i + 1), op, host.String()})
		}
	}

	table.Render()
	return nil
}

func keyedList(keys ...int) reconcile.Child {
	items := make([]reconcile.Child, len(keys))
	for i, k := range keys {
		key := strconv.Itoa(k)
		items[i] = reconcile.Keyed(key, reconcile.H("li", nil, key))
	}
	return reconcile.H("ul", nil, items...)
}
