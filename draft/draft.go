// Package draft holds staged, unreviewed translations and writes them to the
// review artifact: a single JSON array with one entry per product.
package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorMarkerPrefix starts the placeholder stored for a field whose batch
// failed. It is never a valid translation, so reviewers can grep for it.
const ErrorMarkerPrefix = "[Translation Error for "

// ErrorMarker returns the placeholder for a failed field key.
func ErrorMarker(key string) string {
	return ErrorMarkerPrefix + key + "]"
}

// IsErrorMarker reports whether v is a failed-field placeholder.
func IsErrorMarker(v string) bool {
	return strings.HasPrefix(v, ErrorMarkerPrefix) && strings.HasSuffix(v, "]")
}

// ---------------------------------------------------------------------------
// Draft types
// ---------------------------------------------------------------------------

// Draft is the staged translation output for one product across all target
// languages.
type Draft struct {
	ID           string            `json:"id"`
	SKU          string            `json:"sku"`
	Translations map[string]Fields `json:"translations"`
}

// New returns an empty draft for a product.
func New(id, sku string) *Draft {
	return &Draft{ID: id, SKU: sku, Translations: make(map[string]Fields)}
}

// Lang returns the fields for lang, creating them if needed.
func (d *Draft) Lang(lang string) Fields {
	if d.Translations == nil {
		d.Translations = make(map[string]Fields)
	}
	f, ok := d.Translations[lang]
	if !ok {
		f = NewFields()
		d.Translations[lang] = f
	}
	return f
}

// Fields are the translated values for one target language, keyed by the
// suffixed field name ("title_de"). A key holds either text or a list.
type Fields struct {
	Text  map[string]string
	Lists map[string][]string
}

// NewFields returns empty, writable Fields.
func NewFields() Fields {
	return Fields{Text: make(map[string]string), Lists: make(map[string][]string)}
}

// SetText stores a text value, replacing a list under the same key.
func (f Fields) SetText(key, value string) {
	delete(f.Lists, key)
	f.Text[key] = value
}

// SetList stores a list value, replacing a text under the same key. A nil
// list is stored as empty.
func (f Fields) SetList(key string, values []string) {
	delete(f.Text, key)
	if values == nil {
		values = []string{}
	}
	f.Lists[key] = values
}

// Merge copies every value of other into f.
func (f Fields) Merge(other Fields) {
	for k, v := range other.Text {
		f.SetText(k, v)
	}
	for k, v := range other.Lists {
		f.SetList(k, slices.Clone(v))
	}
}

// Keys returns all keys in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f.Text)+len(f.Lists))
	for k := range f.Text {
		keys = append(keys, k)
	}
	for k := range f.Lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is set.
func (f Fields) Has(key string) bool {
	_, okText := f.Text[key]
	_, okList := f.Lists[key]
	return okText || okList
}

// MarshalJSON writes a single object mixing string and array values.
func (f Fields) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(f.Text)+len(f.Lists))
	for k, v := range f.Text {
		flat[k] = v
	}
	for k, v := range f.Lists {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads an object whose values are strings or string arrays.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*f = NewFields()
	for k, raw := range flat {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var list []string
			if err := json.Unmarshal(raw, &list); err != nil {
				return fmt.Errorf("field %s: %w", k, err)
			}
			f.SetList(k, list)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		f.SetText(k, s)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// Collection accumulates the drafts of one run in a stable order: the order
// in which products were first added, regardless of when their translations
// complete. It is safe for concurrent use.
type Collection struct {
	mu     sync.Mutex
	order  []string
	drafts map[string]*Draft
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{drafts: make(map[string]*Draft)}
}

// Add registers an empty draft for a product. Adding an existing ID resets
// its draft while keeping its position.
func (c *Collection) Add(id, sku string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.drafts[id]; !ok {
		c.order = append(c.order, id)
	}
	c.drafts[id] = New(id, sku)
}

// Set stores fields for one product and language, merging with any fields
// already present for that language. The product must have been added.
func (c *Collection) Set(id, lang string, fields Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[id]
	if !ok {
		return fmt.Errorf("draft for product %q not registered", id)
	}
	d.Lang(lang).Merge(fields)
	return nil
}

// Len returns the number of drafts.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Drafts returns deep copies of all drafts in order.
func (c *Collection) Drafts() []Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Draft, 0, len(c.order))
	for _, id := range c.order {
		d := c.drafts[id]
		cp := Draft{ID: d.ID, SKU: d.SKU, Translations: make(map[string]Fields, len(d.Translations))}
		for lang, f := range d.Translations {
			nf := NewFields()
			nf.Merge(f)
			cp.Translations[lang] = nf
		}
		out = append(out, cp)
	}
	return out
}

// Overlay applies fresh drafts on top of existing ones and returns copies.
// A language carried by a fresh draft replaces that language of the stored
// draft with the same ID; products not stored yet are appended.
func Overlay(existing, fresh []Draft) []Draft {
	c := NewCollection()
	for _, d := range existing {
		c.Add(d.ID, d.SKU)
		for lang, f := range d.Translations {
			_ = c.Set(d.ID, lang, f)
		}
	}
	for _, d := range fresh {
		c.mu.Lock()
		stored, ok := c.drafts[d.ID]
		if !ok {
			c.order = append(c.order, d.ID)
			stored = New(d.ID, d.SKU)
			c.drafts[d.ID] = stored
		}
		for lang, f := range d.Translations {
			nf := NewFields()
			nf.Merge(f)
			stored.Translations[lang] = nf
		}
		c.mu.Unlock()
	}
	return c.Drafts()
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

const persistFailedCode = "DRAFT_PERSIST_FAILED"

// Write serializes drafts as one indented JSON array and replaces the file at
// path. The data goes to a temporary file in the same directory first, so a
// failed write never leaves a truncated artifact behind.
func Write(path string, drafts []Draft) error {
	if drafts == nil {
		drafts = []Draft{}
	}
	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return persistError(err, "encoding drafts")
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return persistError(err, "creating output directory "+dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return persistError(err, "creating temporary file in "+dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return persistError(err, "writing "+tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return persistError(err, "closing "+tmpName)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return persistError(err, "setting permissions on "+tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return persistError(err, "replacing "+path)
	}
	return nil
}

func persistError(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryCommand, "draft: "+msg).
		WithTextCode(persistFailedCode)
}

// Load reads an artifact written by Write.
func Load(path string) ([]Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var drafts []Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return drafts, nil
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary describes an artifact for status output.
type Summary struct {
	Products int
	// Fields counts staged values across all drafts and languages.
	Fields int
	// Languages maps target language to the number of drafts that carry it.
	Languages map[string]int
	// ErrorFields counts error markers across all drafts.
	ErrorFields int
	// FailedSKUs lists products with at least one error marker, in order.
	FailedSKUs []string
}

// Summarize computes a Summary.
func Summarize(drafts []Draft) Summary {
	s := Summary{Products: len(drafts), Languages: make(map[string]int)}
	for _, d := range drafts {
		failed := false
		for lang, f := range d.Translations {
			s.Languages[lang]++
			s.Fields += len(f.Keys())
			for _, v := range f.Text {
				if IsErrorMarker(v) {
					s.ErrorFields++
					failed = true
				}
			}
		}
		if failed {
			s.FailedSKUs = append(s.FailedSKUs, d.SKU)
		}
	}
	return s
}

// LanguageCodes returns the summarized languages in sorted order.
func (s Summary) LanguageCodes() []string {
	return slices.Sorted(maps.Keys(s.Languages))
}
