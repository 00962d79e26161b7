package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/AnatoleLucet/reconcile"
	"github.com/AnatoleLucet/reconcile/memhost"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
)

var (
	colorMuted = lipgloss.Color("#6c7086")

	roleStyles = map[string]lipgloss.Style{
		"root":      lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true),
		"component": lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true),
		"provider":  lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")),
		"host":      lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		"text":      lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
	}
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

func tree(ctx context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	host := memhost.New()
	root := rt.CreateRoot(host, host.Container())

	keys := make([]int, cmd.Int(itemsKey))
	for i := range keys {
		keys[i] = i + 1
	}
	if err := root.Render(reconcile.H("main", nil, reconcile.H("h1", nil, "items"), list(keys, "dark"))); err != nil {
		return err
	}

	var b strings.Builder
	root.Tree().Walk(func(n *reconcile.TreeNode, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(styleFor(n.Role).Render(n.Role))
		if n.Type != "" {
			b.WriteString(" " + n.Type)
		}
		if n.Key != "" {
			b.WriteString(" " + keyStyle.Render("key="+n.Key))
		}
		if n.Text != "" {
			b.WriteString(fmt.Sprintf(" %q", n.Text))
		}
		if n.Flags != 0 {
			b.WriteString(" " + mutedStyle.Render(n.Flags.String()))
		}
		b.WriteString("\n")
	})

	fmt.Print(b.String())
	fmt.Println(mutedStyle.Render(fmt.Sprintf("root %s, host %s", root.ID(), host.String())))
	return nil
}

func styleFor(role string) lipgloss.Style {
	if s, ok := roleStyles[role]; ok {
		return s
	}
	return mutedStyle
}
