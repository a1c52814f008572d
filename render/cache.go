package render

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Cache is a content-addressed directory of finished renders: the key is the
// hash of the job parameters, so an identical job can reuse its previous
// output instead of re-rendering.
type Cache struct {
	Dir string
}

// doneMarker flags a cache entry as complete; a crashed job leaves a
// directory without it, which Lookup treats as a miss.
const doneMarker = ".complete"

// Key hashes a config into a cache key. Two configs with the same parameters
// always hash the same, regardless of how they were loaded.
func Key(cfg Config) (string, error) {
	cfg.ApplyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// Lookup returns the directory of a completed cached render, if any.
func (c Cache) Lookup(key string) (string, bool) {
	dir := filepath.Join(c.Dir, key)
	if _, err := os.Stat(filepath.Join(dir, doneMarker)); err != nil {
		return "", false
	}
	return dir, true
}

// Begin creates (or resets) the working directory for a key. The entry stays
// invisible to Lookup until Commit.
func (c Cache) Begin(key string) (string, error) {
	dir := filepath.Join(c.Dir, key)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("reset cache entry: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create cache entry: %w", err)
	}
	return dir, nil
}

// Commit marks a cache entry complete.
func (c Cache) Commit(key string) error {
	marker := filepath.Join(c.Dir, key, doneMarker)
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Evict removes an entry entirely.
func (c Cache) Evict(key string) error {
	return os.RemoveAll(filepath.Join(c.Dir, key))
}
