package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AnatoleLucet/reconcile"
	"github.com/AnatoleLucet/reconcile/memhost"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

var opKinds = []memhost.OpKind{
	memhost.OpCreateInstance,
	memhost.OpCreateText,
	memhost.OpAppendChild,
	memhost.OpInsertBefore,
	memhost.OpRemoveChild,
	memhost.OpCommitUpdate,
}

func bench(ctx context.Context, cmd *cli.Command) error {
	items, rounds := int(cmd.Int(itemsKey)), int(cmd.Int(roundsKey))
	concurrent := cmd.Bool(concurrentKey)

	var opts []reconcile.Option
	if y := cmd.Int(yieldKey); y > 0 {
		opts = append(opts, reconcile.WithYieldInterval(int(y)))
	}
	rt, err := newRuntime(cmd, opts...)
	if err != nil {
		return err
	}

	host := memhost.New()
	root := rt.CreateRoot(host, host.Container())
	ed := newEditor(items, uint64(cmd.Int(seedKey)))

	render := func(child reconcile.Child) error {
		if !concurrent {
			return root.Render(child)
		}
		if err := rt.WithPriority(reconcile.DefaultPriority, func() { _ = root.Render(child) }); err != nil {
			return err
		}
		return rt.Flush()
	}

	color := "light"
	mountStart := time.Now()
	if err := render(list(ed.keys, color)); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	mount := time.Since(mountStart)
	host.Reset()

	tach := tachymeter.New(&tachymeter.Config{Size: rounds})
	ops := map[memhost.OpKind]int64{}
	var stats reconcile.CommitStats
	keys := append([]int(nil), ed.keys...)

	for i := range rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		keys = ed.step()
		if i%25 == 24 {
			color = map[string]string{"light": "dark", "dark": "light"}[color]
		}

		start := time.Now()
		if err := render(list(keys, color)); err != nil {
			return fmt.Errorf("round %d: %w", i, err)
		}
		tach.AddTime(time.Since(start))

		last := root.LastCommit()
		stats.Placements += last.Placements
		stats.Moves += last.Moves
		stats.Updates += last.Updates
		stats.Deletions += last.Deletions
		for _, k := range opKinds {
			ops[k] += int64(host.Count(k))
		}
		host.Reset()
	}

	want, err := reference(keys, color)
	if err != nil {
		return err
	}

	calc := tach.Calc()
	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("keyed list: %s items, %s rounds", humanize.Comma(int64(items)), humanize.Comma(int64(rounds))))
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	tbl.AppendRow(table.Row{"mount", mount, mount, mount, mount, mount})
	tbl.AppendRow(table.Row{"update", calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max})
	tbl.Render()

	counts := table.NewWriter()
	counts.SetTitle("host work")
	counts.SetOutputMirror(os.Stdout)
	counts.AppendHeader(table.Row{"kind", "count"})
	for _, k := range opKinds {
		counts.AppendRow(table.Row{k, humanize.Comma(ops[k])})
	}
	counts.AppendSeparator()
	counts.AppendRow(table.Row{"placements", humanize.Comma(int64(stats.Placements))})
	counts.AppendRow(table.Row{"moves", humanize.Comma(int64(stats.Moves))})
	counts.AppendRow(table.Row{"updates", humanize.Comma(int64(stats.Updates))})
	counts.AppendRow(table.Row{"deletions", humanize.Comma(int64(stats.Deletions))})
	counts.Render()

	got := host.Fingerprint()
	fmt.Printf("fingerprint %016x (%s)\n", got, humanize.Bytes(uint64(len(host.String()))))
	if got != want {
		return fmt.Errorf("fingerprint mismatch: incremental %016x, fresh mount %016x", got, want)
	}
	return nil
}

// reference mounts keys from scratch and returns the fingerprint incremental renders must match.
func reference(keys []int, color string) (uint64, error) {
	logger, err := reconcile.NewLogger(os.Stderr, "disabled")
	if err != nil {
		return 0, err
	}
	rt := reconcile.NewRuntime(reconcile.WithLogger(logger))
	host := memhost.New()

	if err := rt.CreateRoot(host, host.Container()).Render(list(keys, color)); err != nil {
		return 0, fmt.Errorf("reference mount: %w", err)
	}
	return host.Fingerprint(), nil
}
