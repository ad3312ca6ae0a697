package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w, err := New(dir)
	require.NoError(t, err)
	require.Equal(t, dir, w.OutputDir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNew_RejectsFileAsDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err := New(file)
	require.Error(t, err)
}

func TestWrite_AtomicAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	path, err := w.Write(context.Background(), "Pub - Post.txt", []byte("first"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Pub - Post.txt"), path)

	_, err = w.Write(context.Background(), "Pub - Post.txt", []byte("second"))
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files may remain")
}

func TestWrite_CancelledLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Write(ctx, "a.epub", []byte("data"))
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWrite_RejectsPathEscape(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = w.Write(context.Background(), "../escape.txt", []byte("x"))
	require.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Café Société", "Cafe Societe"},
		{"What/Why: a *guide*?", "What_Why_ a _guide__"},
		{"  ...  ", "untitled"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"trailing dots...", "trailing dots"},
		{"...leading dots", "leading dots"},
		{"Release v1.2 notes", "Release v1.2 notes"},
		{". . .", "untitled"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
	require.LessOrEqual(t, len(SanitizeName(strings.Repeat("a", 500))), maxNameLength)
}
