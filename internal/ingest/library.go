package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library keeps uploaded originals and their cleaned text on disk.
type Library struct {
	RawDir       string
	ProcessedDir string
}

// Stats describes what the library currently holds.
type Stats struct {
	RawFiles       []string `json:"raw_files"`
	ProcessedFiles []string `json:"processed_files"`
}

// NewLibrary returns a Library rooted at the given directories.
func NewLibrary(rawDir, processedDir string) *Library {
	return &Library{RawDir: rawDir, ProcessedDir: processedDir}
}

// SaveRaw stores the uploaded bytes under RawDir and returns the written path.
func (l *Library) SaveRaw(name string, data []byte) (string, error) {
	name, err := safeName(name)
	if err != nil {
		return "", err
	}
	return write(l.RawDir, name, data)
}

// SaveProcessed stores cleaned text as <stem>_cleaned.txt under ProcessedDir.
func (l *Library) SaveProcessed(name, text string) (string, error) {
	name, err := safeName(name)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return write(l.ProcessedDir, stem+"_cleaned.txt", []byte(text))
}

// Stats lists the files in both directories. Missing directories count as empty.
func (l *Library) Stats() (Stats, error) {
	raw, err := listFiles(l.RawDir)
	if err != nil {
		return Stats{}, err
	}
	processed, err := listFiles(l.ProcessedDir)
	if err != nil {
		return Stats{}, err
	}
	return Stats{RawFiles: raw, ProcessedFiles: processed}, nil
}

// Clear removes every file in both directories and leaves the directories in place.
func (l *Library) Clear() error {
	for _, dir := range []string{l.RawDir, l.ProcessedDir} {
		names, err := listFiles(dir)
		if err != nil {
			return err
		}
		for _, n := range names {
			if err := os.Remove(filepath.Join(dir, n)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", n, err)
			}
		}
	}
	return nil
}

func safeName(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(filepath.Separator) || base == ".." || base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}

func write(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
