package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-regions/internal/cache"
)

// FeatureCache manages gob-serialized features parsed from a GTF file.
// Files are stored in the cache directory:
//
//	{dir}/features.gob       (serialized features by chromosome)
//	{dir}/features.gob.meta  (source file fingerprint)
type FeatureCache struct {
	dir string
}

// NewFeatureCache creates a feature cache for the given directory.
func NewFeatureCache(dir string) *FeatureCache {
	return &FeatureCache{dir: dir}
}

func (fc *FeatureCache) gobPath() string {
	return filepath.Join(fc.dir, "features.gob")
}

func (fc *FeatureCache) metaPath() string {
	return filepath.Join(fc.dir, "features.gob.meta")
}

// Valid checks whether the cached features were built from the same GTF file.
func (fc *FeatureCache) Valid(gtf FileFingerprint) bool {
	meta, err := fc.readMeta()
	if err != nil {
		return false
	}

	if meta["gtf_path"] != gtf.Path ||
		meta["gtf_size"] != strconv.FormatInt(gtf.Size, 10) ||
		meta["gtf_modtime"] != gtf.ModTime.UTC().Format(time.RFC3339Nano) {
		return false
	}

	if _, err := os.Stat(fc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads serialized features from disk into the index and builds it.
func (fc *FeatureCache) Load(ix *cache.Index) error {
	f, err := os.Open(fc.gobPath())
	if err != nil {
		return fmt.Errorf("open feature cache: %w", err)
	}
	defer f.Close()

	var data map[string][]*cache.Feature
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("decode feature cache: %w", err)
	}

	for _, features := range data {
		for _, feat := range features {
			ix.AddFeature(feat)
		}
	}
	ix.Build()
	return nil
}

// Write serializes all features of the index to disk.
func (fc *FeatureCache) Write(ix *cache.Index, gtf FileFingerprint) error {
	if err := os.MkdirAll(fc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data := make(map[string][]*cache.Feature)
	for _, chrom := range ix.Chromosomes() {
		data[chrom] = ix.FeaturesByChrom(chrom)
	}

	f, err := os.Create(fc.gobPath())
	if err != nil {
		return fmt.Errorf("create feature cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		os.Remove(fc.gobPath())
		return fmt.Errorf("encode feature cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close feature cache: %w", err)
	}

	return fc.writeMeta(gtf)
}

// Clear removes the cached feature files.
func (fc *FeatureCache) Clear() {
	os.Remove(fc.gobPath())
	os.Remove(fc.metaPath())
}

func (fc *FeatureCache) writeMeta(gtf FileFingerprint) error {
	lines := []string{
		"gtf_path=" + gtf.Path,
		"gtf_size=" + strconv.FormatInt(gtf.Size, 10),
		"gtf_modtime=" + gtf.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(fc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (fc *FeatureCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(fc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
