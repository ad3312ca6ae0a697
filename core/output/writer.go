// Package output handles file naming and writing for postpress exports.
// Files are written atomically inside a single output directory: the bytes
// go to a temporary file first and are renamed into place, so an
// interrupted job never leaves a partial file behind.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxNameLength = 120

// Writer writes packaged files to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory, creating it if
// needed and checking that it accepts new files.
func New(outputDir string) (*Writer, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := CheckWritable(outputDir); err != nil {
		return nil, err
	}
	return &Writer{OutputDir: outputDir}, nil
}

// CheckWritable tests dir by creating and removing a temporary file.
func CheckWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".postpress-check-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("cleaning up write check: %w", err)
	}
	return nil
}

// Write stores data as name inside the output directory, replacing any
// existing file. If ctx is cancelled before the rename, nothing is left behind.
func (w *Writer) Write(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid output file name %q", name)
	}
	path := filepath.Join(w.OutputDir, name)

	tmp, err := os.CreateTemp(w.OutputDir, ".postpress-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing file %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("moving file into place %s: %w", path, err)
	}
	committed = true
	return path, nil
}

// SanitizeName turns a title into a portable file name stem. Accents are
// folded to their base letters; anything outside letters, digits, '-', '_',
// '.' and spaces becomes '_'. Leading and trailing dots are dropped.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, ch := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, ch):
		case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9'),
			ch == '-', ch == '_', ch == '.', ch == ' ':
			b.WriteRune(ch)
		case unicode.IsSpace(ch):
			b.WriteRune(' ')
		default:
			b.WriteRune('_')
		}
	}

	name := strings.Join(strings.Fields(b.String()), " ")
	name = strings.Trim(name, ". ")
	if len(name) > maxNameLength {
		name = strings.TrimRight(name[:maxNameLength], ". ")
	}
	if name == "" {
		return "untitled"
	}
	return name
}
