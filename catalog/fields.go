// Package catalog describes multilingual product records: which fields are
// localized, which languages the catalog supports, and how a sparse
// multi-language record is projected onto a single language.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// ---------------------------------------------------------------------------
// Localized field names
// ---------------------------------------------------------------------------

const (
	FieldURL             = "url"
	FieldTitle           = "title"
	FieldDescriptionText = "description_text"
	FieldDescriptionHTML = "description_html"
	FieldCategories      = "categories"
	FieldMetaTitle       = "meta_title"
	FieldMetaDescription = "meta_description"
	FieldSlug            = "slug"
	FieldGiftMessage     = "gift_message"
)

// Variant link fields carry their own language suffixes.
const (
	VariantFieldName = "name"
	VariantFieldURL  = "url"
)

// ScalarFields are the text fields sent to the translation engine, in batch
// order. The order is part of the batch contract: results are mapped back by
// position.
var ScalarFields = []string{
	FieldTitle,
	FieldDescriptionText,
	FieldDescriptionHTML,
	FieldMetaTitle,
	FieldMetaDescription,
	FieldGiftMessage,
}

// ArrayFields are list fields translated element-wise, one batch per field.
var ArrayFields = []string{
	FieldCategories,
}

// LocalizedTextFields lists every per-language text field stored on a
// product, translatable or not.
var LocalizedTextFields = []string{
	FieldURL,
	FieldTitle,
	FieldDescriptionText,
	FieldDescriptionHTML,
	FieldMetaTitle,
	FieldMetaDescription,
	FieldSlug,
	FieldGiftMessage,
}

// LocalizedListFields lists every per-language list field.
var LocalizedListFields = []string{
	FieldCategories,
}

// Key builds the suffixed field name used in documents and drafts,
// e.g. Key("title", "de") == "title_de".
func Key(field, lang string) string {
	return field + "_" + lang
}

// SplitKey is the inverse of Key for the given known field names. The
// longest matching field wins so "meta_title_en" never resolves to "title".
// The language is lower-cased the same way catalog codes are.
func SplitKey(key string, fields []string) (field, lang string, ok bool) {
	for _, f := range fields {
		if !strings.HasPrefix(key, f+"_") {
			continue
		}
		rest := key[len(f)+1:]
		if rest == "" || strings.Contains(rest, "_") {
			continue
		}
		if len(f) > len(field) {
			field, lang, ok = f, normalizeLang(rest), true
		}
	}
	return field, lang, ok
}

// ---------------------------------------------------------------------------
// Supported languages
// ---------------------------------------------------------------------------

// Catalog is the set of supported languages with one designated default.
// A Catalog is never mutated after construction.
type Catalog struct {
	languages []string
	def       string
}

// DefaultCatalog is the deployment default: seven European storefronts with
// English as the fallback language.
var DefaultCatalog = MustCatalog([]string{"en", "it", "es", "de", "fr", "pt", "nl"}, "en")

// NewCatalog validates and builds a Catalog. Codes are trimmed and
// lower-cased; duplicates and an unsupported default are rejected.
func NewCatalog(languages []string, def string) (Catalog, error) {
	if len(languages) == 0 {
		return Catalog{}, fmt.Errorf("no supported languages")
	}
	seen := make(map[string]bool, len(languages))
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		l = normalizeLang(l)
		if l == "" {
			return Catalog{}, fmt.Errorf("empty language code")
		}
		if seen[l] {
			return Catalog{}, fmt.Errorf("duplicate language code %q", l)
		}
		seen[l] = true
		langs = append(langs, l)
	}
	def = normalizeLang(def)
	if !seen[def] {
		return Catalog{}, fmt.Errorf("default language %q is not in supported languages %v", def, langs)
	}
	return Catalog{languages: langs, def: def}, nil
}

// MustCatalog is like NewCatalog but panics on error.
func MustCatalog(languages []string, def string) Catalog {
	c, err := NewCatalog(languages, def)
	if err != nil {
		panic(err)
	}
	return c
}

// Languages returns a copy of the supported language codes in order.
func (c Catalog) Languages() []string {
	return slices.Clone(c.languages)
}

// Default returns the default language.
func (c Catalog) Default() string {
	return c.def
}

// Supports reports whether lang is a supported language code.
func (c Catalog) Supports(lang string) bool {
	return slices.Contains(c.languages, lang)
}

// Targets returns every supported language except source, in catalog order.
func (c Catalog) Targets(source string) []string {
	out := make([]string, 0, len(c.languages))
	for _, l := range c.languages {
		if l != source {
			out = append(out, l)
		}
	}
	return out
}

func normalizeLang(l string) string {
	return strings.ToLower(strings.TrimSpace(l))
}
