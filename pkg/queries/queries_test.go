package queries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadFile(t *testing.T) {
	path := writeTemp(t, "nasa instagram\n\n  spacex instagram  \n\t\nesa instagram\n")

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"nasa instagram", "spacex instagram", "esa instagram"}, got)
}

func TestReadFileEmpty(t *testing.T) {
	path := writeTemp(t, "\n\n\n")

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
