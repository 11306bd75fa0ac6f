package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONLoader loads features from JSON files (used for fixtures and testing).
// The path may be a single file or a directory of *.json files, each holding
// an array of features.
type JSONLoader struct {
	path string
}

// NewJSONLoader creates a new JSON feature loader.
func NewJSONLoader(path string) *JSONLoader {
	return &JSONLoader{path: path}
}

// Load loads all features into the index and builds it.
func (l *JSONLoader) Load(ix *Index) error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("stat feature path: %w", err)
	}

	files := []string{l.path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(l.path, "*.json"))
		if err != nil {
			return fmt.Errorf("glob json files: %w", err)
		}
	}

	for _, f := range files {
		if err := l.loadJSONFile(ix, f); err != nil {
			return fmt.Errorf("load json file %s: %w", f, err)
		}
	}

	ix.Build()
	return nil
}

// loadJSONFile loads features from a JSON file.
func (l *JSONLoader) loadJSONFile(ix *Index, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var features []*Feature
	if err := json.NewDecoder(f).Decode(&features); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	for _, feat := range features {
		ix.AddFeature(feat)
	}

	return nil
}
