package catalog

import (
	"maps"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a record carries no currency.
const DefaultCurrency = "EUR"

// Product is a catalog record. Non-localized attributes are plain fields;
// localized content lives in Locales keyed by language code. Records are
// read-only for the translation pipeline.
type Product struct {
	ID               string
	SKU              string
	BrandID          string
	ParentSKU        *string
	CurrentPrice     *decimal.Decimal
	OriginalPrice    *decimal.Decimal
	Currency         string
	Images           []Image
	ProductSchema    map[string]any
	VariantIDs       []string
	Variants         Variants
	CategoryIDs      []string
	StockQuantity    int
	TimesAddedToCart int
	SEOKeywords      map[string]string
	IsActive         bool
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Locales holds the sparse per-language content. A missing language or
	// a missing field within a language means "not provided".
	Locales map[string]Content
}

// Content is the localized content of a product for one language.
type Content struct {
	Text  map[string]string
	Lists map[string][]string
}

// Image describes one hosted image asset.
type Image struct {
	PublicID     string `json:"public_id"`
	ThumbnailURL string `json:"thumbnail_url"`
	MainURL      string `json:"main_url"`
	Format       string `json:"format,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// Variants groups the variant axes of a product.
type Variants struct {
	Numbers       []string
	Sizes         []string
	ColorVariants []VariantLink
}

// VariantLink points at a sibling product (e.g. another color) and carries
// its own per-language name and url, plus the legacy unsuffixed values.
type VariantLink struct {
	ProductID string
	SKU       string
	ImageURL  string
	Name      string
	URL       string
	Names     map[string]string
	URLs      map[string]string
}

// Text returns the value of a localized text field, and whether it is set.
func (p *Product) Text(field, lang string) (string, bool) {
	c, ok := p.Locales[lang]
	if !ok {
		return "", false
	}
	v, ok := c.Text[field]
	return v, ok
}

// List returns the value of a localized list field, and whether it is set.
func (p *Product) List(field, lang string) ([]string, bool) {
	c, ok := p.Locales[lang]
	if !ok {
		return nil, false
	}
	v, ok := c.Lists[field]
	return v, ok
}

// SetText sets a localized text field, creating the language entry if needed.
func (p *Product) SetText(field, lang, value string) {
	c := p.locale(lang)
	if c.Text == nil {
		c.Text = make(map[string]string)
	}
	c.Text[field] = value
	p.Locales[lang] = c
}

// SetList sets a localized list field, creating the language entry if needed.
func (p *Product) SetList(field, lang string, values []string) {
	c := p.locale(lang)
	if c.Lists == nil {
		c.Lists = make(map[string][]string)
	}
	c.Lists[field] = values
	p.Locales[lang] = c
}

func (p *Product) locale(lang string) Content {
	if p.Locales == nil {
		p.Locales = make(map[string]Content)
	}
	return p.Locales[lang]
}

// Validate checks the invariants every stored record must satisfy: a SKU and
// a non-blank title in the catalog's default language.
func (p *Product) Validate(c Catalog) error {
	title, _ := p.Text(FieldTitle, c.Default())
	return validation.Errors{
		"sku":                        validation.Validate(strings.TrimSpace(p.SKU), validation.Required),
		Key(FieldTitle, c.Default()): validation.Validate(strings.TrimSpace(title), validation.Required),
		"currency":                   validation.Validate(p.Currency, validation.Length(0, 3)),
	}.Filter()
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	if p.ParentSKU != nil {
		s := *p.ParentSKU
		cp.ParentSKU = &s
	}
	if p.CurrentPrice != nil {
		d := *p.CurrentPrice
		cp.CurrentPrice = &d
	}
	if p.OriginalPrice != nil {
		d := *p.OriginalPrice
		cp.OriginalPrice = &d
	}
	cp.Images = slices.Clone(p.Images)
	cp.ProductSchema = cloneAny(p.ProductSchema)
	cp.VariantIDs = slices.Clone(p.VariantIDs)
	cp.Variants = p.Variants.clone()
	cp.CategoryIDs = slices.Clone(p.CategoryIDs)
	cp.SEOKeywords = maps.Clone(p.SEOKeywords)
	cp.Tags = slices.Clone(p.Tags)
	if p.Locales != nil {
		cp.Locales = make(map[string]Content, len(p.Locales))
		for lang, c := range p.Locales {
			lists := make(map[string][]string, len(c.Lists))
			for k, v := range c.Lists {
				lists[k] = slices.Clone(v)
			}
			cp.Locales[lang] = Content{Text: maps.Clone(c.Text), Lists: lists}
		}
	}
	return &cp
}

func (v Variants) clone() Variants {
	out := Variants{
		Numbers: slices.Clone(v.Numbers),
		Sizes:   slices.Clone(v.Sizes),
	}
	if v.ColorVariants != nil {
		out.ColorVariants = make([]VariantLink, len(v.ColorVariants))
		for i, l := range v.ColorVariants {
			l.Names = maps.Clone(l.Names)
			l.URLs = maps.Clone(l.URLs)
			out.ColorVariants[i] = l
		}
	}
	return out
}

// cloneAny deep copies a JSON-like value tree.
func cloneAny(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAny(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
