// Package lockfile implements .catalogtx.lock, which records an MD5 checksum
// of each product's source-language content per target language. With it a
// run can skip products whose source text has not changed since their last
// clean draft.
//
// The lock file is stored next to .catalogtx.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = ".catalogtx.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the .catalogtx.lock file structure.
type LockFile struct {
	Version    int                          `yaml:"version"`
	SourceLang string                       `yaml:"source_lang,omitempty"`
	Checksums  map[string]map[string]string `yaml:"checksums"` // target lang -> sku -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, lf.Version)
	}

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// BindSource ties the lock file to a source language. Checksums recorded
// against another source language are meaningless, so switching drops them.
func (lf *LockFile) BindSource(lang string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.SourceLang != "" && lf.SourceLang != lang {
		lf.Checksums = make(map[string]map[string]string)
	}
	lf.SourceLang = lang
}

// IsChanged checks if a product's source content has changed since its last
// clean translation into target. New products count as changed.
func (lf *LockFile) IsChanged(target, sku, sourceContent string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[target]
	if !ok {
		return true
	}
	oldHash, ok := keys[sku]
	if !ok {
		return true
	}
	return oldHash != Hash(sourceContent)
}

// Update records the checksum of a product's source content after a clean
// translation into target.
func (lf *LockFile) Update(target, sku, sourceContent string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][sku] = Hash(sourceContent)
}

// Forget drops the checksum for a product in target, forcing the next run to
// translate it again.
func (lf *LockFile) Forget(target, sku string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if m := lf.Checksums[target]; m != nil {
		delete(m, sku)
		if len(m) == 0 {
			delete(lf.Checksums, target)
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of target languages and total product entries.
func (lf *LockFile) Stats() (targets, products int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		products += len(m)
	}
	return
}

// Targets returns the sorted list of target languages.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// ---------------------------------------------------------------------------
// Source content
// ---------------------------------------------------------------------------

// FieldContent builds the hashed content for one source field. The field name
// is included so moving text between fields triggers re-translation.
func FieldContent(field, value string) string {
	return field + "\x00" + value
}

// ListContent builds the hashed content for one source list field.
func ListContent(field string, values []string) string {
	return field + "\x00" + strings.Join(values, "\x1f")
}

// ---------------------------------------------------------------------------
// Human-readable summary
// ---------------------------------------------------------------------------

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, products := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		lf.mu.Lock()
		n := len(lf.Checksums[t])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d products", t, n))
	}
	return fmt.Sprintf("%d languages, %d entries (%s)", targets, products, strings.Join(parts, ", "))
}
