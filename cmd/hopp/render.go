package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/blackcoderx/hopp/pkg/core"
	"github.com/blackcoderx/hopp/pkg/report"
	"github.com/blackcoderx/hopp/pkg/sandbox"
)

var (
	dimColor   = lipgloss.Color("#6c6c6c")
	passColor  = lipgloss.Color("#9ece6a")
	failColor  = lipgloss.Color("#f7768e")
	errorColor = lipgloss.Color("#e0af68")
	titleColor = lipgloss.Color("#7aa2f7")
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(dimColor)
	passStyle  = lipgloss.NewStyle().Foreground(passColor)
	failStyle  = lipgloss.NewStyle().Foreground(failColor)
	warnStyle  = lipgloss.NewStyle().Foreground(errorColor)
	titleStyle = lipgloss.NewStyle().Foreground(titleColor).Bold(true)
)

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// responseMarkdown describes a response as markdown with the body in a
// fenced block.
func responseMarkdown(resp *core.Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", resp.Status)
	fmt.Fprintf(&sb, "*%dms, %d bytes*\n\n", resp.Duration.Milliseconds(), len(resp.Body))

	if len(resp.Headers) > 0 {
		sb.WriteString("| Header | Value |\n|---|---|\n")
		for _, h := range resp.Headers {
			fmt.Fprintf(&sb, "| %s | %s |\n", h.Key, strings.ReplaceAll(h.Value, "|", `\|`))
		}
		sb.WriteString("\n")
	}

	if len(resp.Body) == 0 {
		return sb.String()
	}
	lang := ""
	body := string(resp.Body)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body, "", "  "); err == nil {
		lang = "json"
		body = pretty.String()
	}
	fmt.Fprintf(&sb, "```%s\n%s\n```\n", lang, body)
	return sb.String()
}

// printTests writes the report tree with coloured status glyphs.
func printTests(w io.Writer, root *report.Node) {
	fmt.Fprintln(w, titleStyle.Render("Tests"))
	printNode(w, root, 1)

	pass, fail, errs := root.Counts()
	summary := fmt.Sprintf("%d passed, %d failed, %d errors", pass, fail, errs)
	if fail+errs == 0 {
		fmt.Fprintln(w, passStyle.Render(summary))
	} else {
		fmt.Fprintln(w, failStyle.Render(summary))
	}
}

func printNode(w io.Writer, n *report.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, r := range n.ExpectResults {
		fmt.Fprintf(w, "%s%s %s\n", indent, glyph(r.Status), r.Message)
	}
	for _, child := range n.Children {
		fmt.Fprintf(w, "%s%s\n", indent, child.Descriptor)
		printNode(w, child, depth+1)
	}
}

func glyph(s report.Status) string {
	switch s {
	case report.StatusPass:
		return passStyle.Render("✓")
	case report.StatusFail:
		return failStyle.Render("✗")
	default:
		return warnStyle.Render("!")
	}
}

func printConsole(w io.Writer, entries []sandbox.ConsoleEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Console"))
	for _, e := range entries {
		line := fmt.Sprintf("  [%s] %s", e.Level, e.Message)
		switch e.Level {
		case "error":
			fmt.Fprintln(w, failStyle.Render(line))
		case "warn":
			fmt.Fprintln(w, warnStyle.Render(line))
		default:
			fmt.Fprintln(w, dimStyle.Render(line))
		}
	}
}
