package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// The JSON form of a product is the flat document layout used by the catalog
// store: one key per localized field and language ("title_it",
// "categories_de") next to the non-localized attributes.

type document struct {
	ID               docID             `json:"_id"`
	SKU              string            `json:"sku"`
	BrandID          string            `json:"brand_id,omitempty"`
	ParentSKU        *string           `json:"parent_sku"`
	CurrentPrice     *decimal.Decimal  `json:"current_price,omitempty"`
	OriginalPrice    *decimal.Decimal  `json:"original_price,omitempty"`
	Currency         string            `json:"currency"`
	Images           []Image           `json:"cloudinary_images,omitempty"`
	ProductSchema    map[string]any    `json:"product_schema,omitempty"`
	VariantIDs       []string          `json:"variant_ids,omitempty"`
	Variants         variantsDoc       `json:"variants"`
	CategoryIDs      []string          `json:"category_ids,omitempty"`
	StockQuantity    int               `json:"stock_quantity"`
	TimesAddedToCart int               `json:"timesAddedToCart"`
	SEOKeywords      map[string]string `json:"seoKeywords,omitempty"`
	IsActive         *bool             `json:"is_active,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	CreatedAt        *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
}

type variantsDoc struct {
	Numbers       []string      `json:"NUMERO,omitempty"`
	Sizes         []string      `json:"TAGLIA,omitempty"`
	ColorVariants []VariantLink `json:"COLOR_VARIANTS,omitempty"`
}

// docID accepts both a plain string and an extended-JSON {"$oid": "..."}.
type docID string

func (id *docID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = docID(s)
		return nil
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &oid); err != nil {
		return fmt.Errorf("invalid _id: %s", truncate(string(data), 60))
	}
	*id = docID(oid.OID)
	return nil
}

// MarshalJSON flattens the product into the document layout.
func (p Product) MarshalJSON() ([]byte, error) {
	doc := document{
		ID:               docID(p.ID),
		SKU:              p.SKU,
		BrandID:          p.BrandID,
		ParentSKU:        p.ParentSKU,
		CurrentPrice:     p.CurrentPrice,
		OriginalPrice:    p.OriginalPrice,
		Currency:         p.Currency,
		Images:           p.Images,
		ProductSchema:    p.ProductSchema,
		VariantIDs:       p.VariantIDs,
		Variants:         variantsDoc(p.Variants),
		CategoryIDs:      p.CategoryIDs,
		StockQuantity:    p.StockQuantity,
		TimesAddedToCart: p.TimesAddedToCart,
		SEOKeywords:      p.SEOKeywords,
		IsActive:         &p.IsActive,
		Tags:             p.Tags,
	}
	if !p.CreatedAt.IsZero() {
		doc.CreatedAt = &p.CreatedAt
	}
	if !p.UpdatedAt.IsZero() {
		doc.UpdatedAt = &p.UpdatedAt
	}

	base, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}
	for lang, c := range p.Locales {
		for field, v := range c.Text {
			raw, _ := json.Marshal(v)
			flat[Key(field, lang)] = raw
		}
		for field, v := range c.Lists {
			if v == nil {
				v = []string{}
			}
			raw, _ := json.Marshal(v)
			flat[Key(field, lang)] = raw
		}
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat document layout, folding every suffixed
// localized key into Locales. Null localized values are treated as absent.
func (p *Product) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*p = Product{
		ID:               string(doc.ID),
		SKU:              doc.SKU,
		BrandID:          doc.BrandID,
		ParentSKU:        doc.ParentSKU,
		CurrentPrice:     doc.CurrentPrice,
		OriginalPrice:    doc.OriginalPrice,
		Currency:         doc.Currency,
		Images:           doc.Images,
		ProductSchema:    doc.ProductSchema,
		VariantIDs:       doc.VariantIDs,
		Variants:         Variants(doc.Variants),
		CategoryIDs:      doc.CategoryIDs,
		StockQuantity:    doc.StockQuantity,
		TimesAddedToCart: doc.TimesAddedToCart,
		SEOKeywords:      doc.SEOKeywords,
		IsActive:         true,
		Tags:             doc.Tags,
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if doc.IsActive != nil {
		p.IsActive = *doc.IsActive
	}
	if doc.CreatedAt != nil {
		p.CreatedAt = *doc.CreatedAt
	}
	if doc.UpdatedAt != nil {
		p.UpdatedAt = *doc.UpdatedAt
	}

	for key, raw := range flat {
		if bytes.Equal(raw, []byte("null")) {
			continue
		}
		if field, lang, ok := SplitKey(key, LocalizedListFields); ok {
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			p.SetList(field, lang, v)
			continue
		}
		if field, lang, ok := SplitKey(key, LocalizedTextFields); ok {
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			p.SetText(field, lang, v)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Variant links
// ---------------------------------------------------------------------------

type variantLinkDoc struct {
	ProductID docID  `json:"product_id"`
	SKU       string `json:"sku"`
	ImageURL  string `json:"image_url,omitempty"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url,omitempty"`
}

var variantFields = []string{VariantFieldName, VariantFieldURL}

// MarshalJSON writes the link with suffixed name_xx / url_xx keys.
func (l VariantLink) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(variantLinkDoc{
		ProductID: docID(l.ProductID),
		SKU:       l.SKU,
		ImageURL:  l.ImageURL,
		Name:      l.Name,
		URL:       l.URL,
	})
	if err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}
	for lang, v := range l.Names {
		raw, _ := json.Marshal(v)
		flat[Key(VariantFieldName, lang)] = raw
	}
	for lang, v := range l.URLs {
		raw, _ := json.Marshal(v)
		flat[Key(VariantFieldURL, lang)] = raw
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads a link, folding suffixed keys into Names and URLs.
func (l *VariantLink) UnmarshalJSON(data []byte) error {
	var doc variantLinkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*l = VariantLink{
		ProductID: string(doc.ProductID),
		SKU:       doc.SKU,
		ImageURL:  doc.ImageURL,
		Name:      doc.Name,
		URL:       doc.URL,
	}
	for key, raw := range flat {
		field, lang, ok := SplitKey(key, variantFields)
		if !ok || bytes.Equal(raw, []byte("null")) {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("variant field %s: %w", key, err)
		}
		switch field {
		case VariantFieldName:
			if l.Names == nil {
				l.Names = make(map[string]string)
			}
			l.Names[lang] = v
		case VariantFieldURL:
			if l.URLs == nil {
				l.URLs = make(map[string]string)
			}
			l.URLs[lang] = v
		}
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
