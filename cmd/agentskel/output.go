package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/agentskel/internal/pipeline"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// resultWidth bounds how much of each step result is shown in plan output.
const resultWidth = 300

// printPlan writes the classification header, each step with its result, and
// the request id and timing.
func printPlan(w io.Writer, resp pipeline.PlanResponse) {
	d := resp.Details
	domain := d.MatchedDomain
	if domain == "" {
		domain = "-"
	}
	fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
		colorize(colorBold, "Category:"), d.Category,
		colorize(colorBold, "Domain:"), domain,
		colorize(colorBold, "Expertise:"), d.Expertise,
	)
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Topic:"), d.Topic)
	if d.Fallback != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorYellow, "Fallback:"), d.Fallback)
	}
	for i, r := range resp.Results {
		fmt.Fprintf(w, "\n%s %s\n", colorize(colorCyan, fmt.Sprintf("%d.", i+1)), r.Subtask)
		fmt.Fprintf(w, "   %s\n", truncate(r.Result, resultWidth))
	}
	fmt.Fprintf(w, "\n%s in %dms (%s)\n", d.RequestID, d.DurationMs, d.Mode)
}

// printEnhanced writes the enhanced prompt, then the model's answer when the
// server ran in azure mode.
func printEnhanced(w io.Writer, resp pipeline.EnhanceResponse) {
	fmt.Fprintln(w, resp.EnhancedPrompt)
	if resp.EnhancedResponse != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", colorize(colorBold, "--- Response ---"), resp.EnhancedResponse)
	}
	if resp.Details.Fallback != "" {
		printWarning("%s", resp.Details.Fallback)
	}
}

func printHealth(h healthPayload, addr string) {
	printStatus("Server", "%s on %s", h.Status, addr)
	printStatus("Mode", "%s", h.Mode)
	printStatus("Model", "%s", h.Model)
	printStatus("Version", "%s", h.Version)
}
