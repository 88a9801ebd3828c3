package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExisting(t *testing.T) {
	t.Run("clean directory", func(t *testing.T) {
		assert.NoError(t, CheckExisting(t.TempDir()))
	})

	t.Run("config only", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tablero.yml"), []byte("x"), 0644))

		err := CheckExisting(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Found existing: tablero.yml")
		assert.Contains(t, err.Error(), "tablero init --force")
	})

	t.Run("config and state directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tablero.yml"), []byte("x"), 0644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tablero"), 0755))

		err := CheckExisting(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "  - tablero.yml\n  - .tablero/\n")
	})

	t.Run("state file that is not a directory is ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".tablero"), []byte("x"), 0644))
		assert.NoError(t, CheckExisting(dir))
	})
}
