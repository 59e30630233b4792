// Package render draws the element tree of a project for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"specgraph/internal/element"
	"specgraph/internal/registry"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")

	rootStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	contextStyle  = lipgloss.NewStyle().Bold(true)
	behaviorStyle = lipgloss.NewStyle().Italic(true)
	enumStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	ignoredStyle  = lipgloss.NewStyle().Foreground(colorMuted)

	stateStyles = map[element.State]lipgloss.Style{
		element.Valid:   lipgloss.NewStyle().Foreground(colorSuccess),
		element.Pending: lipgloss.NewStyle().Foreground(colorWarning),
		element.Invalid: lipgloss.NewStyle().Foreground(colorError),
	}
)

// Options filter what Tree draws.
type Options struct {
	HideInvalid bool
}

// Tree renders the contexts of project with their behaviors and specifications.
func Tree(reg *registry.Registry, project string, opts Options) string {
	t := tree.Root(rootStyle.Render(project)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)

	for _, root := range reg.Roots(project) {
		if n := node(root, opts); n != nil {
			t.Child(n)
		}
	}
	return t.String()
}

func node(e element.Element, opts Options) any {
	if opts.HideInvalid && e.State() == element.Invalid {
		return nil
	}
	children := e.Children()
	if len(children) == 0 {
		return Label(e)
	}
	sub := tree.Root(Label(e))
	for _, c := range children {
		if n := node(c, opts); n != nil {
			sub.Child(n)
		}
	}
	return sub
}

// Label is the one-line rendering of an element.
func Label(e element.Element) string {
	var b strings.Builder
	switch v := e.(type) {
	case *element.Context:
		b.WriteString(contextStyle.Render(v.Name()))
	case *element.Behavior:
		b.WriteString(behaviorStyle.Render(fmt.Sprintf("%s (%s)", v.FieldName(), shortName(v.FieldType()))))
	default:
		b.WriteString(humanize(e.Name()))
	}

	b.WriteString(" ")
	b.WriteString(stateStyles[e.State()].Render("[" + e.State().String() + "]"))
	if e.IsIgnored() {
		b.WriteString(" ")
		b.WriteString(ignoredStyle.Render("ignored"))
	}
	return b.String()
}

func shortName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// humanize turns ShouldAddTheItem into "should add the item".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
