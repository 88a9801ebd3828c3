package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = stdout, stderr, true
	t.Cleanup(func() { Stdout, Stderr, color.NoColor = prevOut, prevErr, prevColor })
	return stdout, stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title only", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Store unreachable", "Could not reach redis://localhost:6379", nil)
		require.EqualError(t, err, "Store unreachable")
		require.Contains(t, stderr.String(), "Store unreachable\n\nCould not reach redis://localhost:6379\n")
	})

	t.Run("single suggestion printed bare", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Title", "Explanation", []string{"Run: tablero store up"})
		require.Contains(t, stderr.String(), "\nRun: tablero store up\n")
		require.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions numbered", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Title", "Explanation", []string{"First option", "Second option"})
		require.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)
	err := ErrorWithContext("Unknown platform", "", map[string]string{
		"Workspace": "sigma-main",
		"Platform":  "NOPE",
	}, []string{"Check catalog.platforms in tablero.yml"})

	require.EqualError(t, err, "Unknown platform")
	// Context keys are printed in sorted order
	require.Contains(t, stderr.String(), "  Platform: NOPE\n  Workspace: sigma-main\n")
	require.Contains(t, stderr.String(), "Check catalog.platforms")
}

func TestMessages(t *testing.T) {
	stdout, _ := capture(t)

	Success("Saved %s\n", "CABEZAL")
	Success("✓ already prefixed\n")
	Warning("cache reset\n")
	Step("Connecting\n")
	Info("plain %d\n", 1)

	out := stdout.String()
	require.Contains(t, out, "✓ Saved CABEZAL\n")
	require.NotContains(t, out, "✓ ✓")
	require.Contains(t, out, "⚠️  cache reset\n")
	require.Contains(t, out, "→ Connecting\n")
	require.Contains(t, out, "plain 1\n")
}

func TestSwatch(t *testing.T) {
	t.Run("known colours keep the text", func(t *testing.T) {
		for _, name := range []string{"green", "red", "yellow", "blue", "GREEN"} {
			require.Contains(t, Swatch(name, " OK "), " OK ", name)
		}
	})

	t.Run("unknown colour falls back to dimmed text", func(t *testing.T) {
		require.Contains(t, Swatch("purple", "??"), "??")
		require.Contains(t, Swatch("", "--"), "--")
	})

	t.Run("colours differ when enabled", func(t *testing.T) {
		prev := color.NoColor
		color.NoColor = false
		defer func() { color.NoColor = prev }()

		require.NotEqual(t, Swatch("green", "x"), Swatch("red", "x"))
		require.NotEqual(t, "x", Swatch("green", "x"))
	})
}
