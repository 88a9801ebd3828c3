// Package printer writes the coloured, human-facing output of the CLI.
// Logs go through slog; this package is only for what a person reads.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY.
	// Users can disable with NO_COLOR.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// swatches map catalog colour names to cell backgrounds
var swatches = map[string]*color.Color{
	"green":  color.New(color.BgGreen, color.FgBlack),
	"red":    color.New(color.BgRed, color.FgWhite),
	"yellow": color.New(color.BgYellow, color.FgBlack),
	"blue":   color.New(color.BgBlue, color.FgWhite),
}

// Stdout and Stderr are where messages go; tests swap them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a message in green with a checkmark prefix.
func Success(format string, a ...any) {
	fmt.Fprint(Stdout, SuccessText(format, a...))
}

// SuccessText formats a message the way Success prints it.
func SuccessText(format string, a ...any) string {
	return green.Sprint(prefixed("✓ ", fmt.Sprintf(format, a...)))
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a message in yellow with a warning prefix.
func Warning(format string, a ...any) {
	yellow.Fprint(Stdout, prefixed("⚠️  ", fmt.Sprintf(format, a...)))
}

// Step prints a step of a multi-step operation.
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain line.
func Println(a ...any) {
	fmt.Fprintln(Stdout, a...)
}

// Printf prints a plain formatted message.
func Printf(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Error prints a title, explanation and suggestions to Stderr and returns an error carrying
// only the title, so cobra (with SilenceErrors) does not print it twice.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between explanation and suggestions.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(Stderr)
		for _, k := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", k, context[k])
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Stderr, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Stderr, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Stderr, "  %d. %s\n", i+1, s)
		}
	}

	return fmt.Errorf("%s", title)
}

// Swatch renders text on the background named by colorName.
// Unknown or empty colour names render dimmed, the way an empty cell looks.
func Swatch(colorName, text string) string {
	if c, ok := swatches[strings.ToLower(colorName)]; ok {
		return c.Sprint(text)
	}
	return faint.Sprint(text)
}

func prefixed(prefix, msg string) string {
	if strings.HasPrefix(msg, strings.TrimSpace(prefix)) {
		return msg
	}
	return prefix + msg
}
