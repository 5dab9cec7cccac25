package catalog

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// View is the single-language projection of a Product. Non-localized
// attributes are copied from the record; every localized field holds the
// value resolved for Lang.
type View struct {
	Lang string `json:"lang"`

	ID               string            `json:"_id"`
	SKU              string            `json:"sku"`
	BrandID          string            `json:"brand_id,omitempty"`
	ParentSKU        *string           `json:"parent_sku"`
	CurrentPrice     *decimal.Decimal  `json:"current_price,omitempty"`
	OriginalPrice    *decimal.Decimal  `json:"original_price,omitempty"`
	Currency         string            `json:"currency"`
	CategoryIDs      []string          `json:"category_ids"`
	StockQuantity    int               `json:"stock_quantity"`
	TimesAddedToCart int               `json:"timesAddedToCart"`
	SEOKeywords      map[string]string `json:"seoKeywords"`
	Variants         ViewVariants      `json:"variants"`
	Images           []Image           `json:"cloudinary_images"`
	VariantIDs       []string          `json:"variant_ids"`
	ProductSchema    map[string]any    `json:"product_schema,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	IsActive         bool              `json:"is_active"`
	Tags             []string          `json:"tags"`

	URL             string   `json:"url"`
	Title           string   `json:"title"`
	DescriptionText string   `json:"description_text"`
	DescriptionHTML string   `json:"description_html"`
	Categories      []string `json:"categories"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Slug            string   `json:"slug"`
	GiftMessage     string   `json:"gift_message"`
}

// ViewVariants is the resolved variant block of a View.
type ViewVariants struct {
	Numbers       []string      `json:"NUMERO,omitempty"`
	Sizes         []string      `json:"TAGLIA,omitempty"`
	ColorVariants []VariantView `json:"COLOR_VARIANTS,omitempty"`
}

// VariantView is a linked variant with name and url resolved for one language.
type VariantView struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	ImageURL  string `json:"image_url,omitempty"`
	Name      string `json:"name"`
	URL       string `json:"url"`
}

// Resolve projects p onto lang using DefaultCatalog.
func Resolve(p *Product, lang string) View {
	return DefaultCatalog.Resolve(p, lang)
}

// Resolve projects p onto lang. An empty or unsupported lang resolves as the
// default language. Each localized field takes the requested-language value
// when present and non-empty, else the default-language value, else empty.
// The returned View shares no memory with p.
func (c Catalog) Resolve(p *Product, lang string) View {
	if c.def == "" {
		c = DefaultCatalog
	}
	lang = normalizeLang(lang)
	if !c.Supports(lang) {
		lang = c.def
	}

	v := View{
		Lang:             lang,
		ID:               p.ID,
		SKU:              p.SKU,
		BrandID:          p.BrandID,
		Currency:         p.Currency,
		CategoryIDs:      slices.Clone(p.CategoryIDs),
		StockQuantity:    p.StockQuantity,
		TimesAddedToCart: p.TimesAddedToCart,
		SEOKeywords:      maps.Clone(p.SEOKeywords),
		Images:           slices.Clone(p.Images),
		VariantIDs:       slices.Clone(p.VariantIDs),
		ProductSchema:    cloneAny(p.ProductSchema),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		IsActive:         p.IsActive,
		Tags:             slices.Clone(p.Tags),
	}
	if p.ParentSKU != nil {
		s := *p.ParentSKU
		v.ParentSKU = &s
	}
	if p.CurrentPrice != nil {
		d := *p.CurrentPrice
		v.CurrentPrice = &d
	}
	if p.OriginalPrice != nil {
		d := *p.OriginalPrice
		v.OriginalPrice = &d
	}

	text := func(field string) string {
		return c.resolveText(p, field, lang)
	}
	v.URL = text(FieldURL)
	v.Title = text(FieldTitle)
	v.DescriptionText = text(FieldDescriptionText)
	v.DescriptionHTML = text(FieldDescriptionHTML)
	v.MetaTitle = text(FieldMetaTitle)
	v.MetaDescription = text(FieldMetaDescription)
	v.Slug = text(FieldSlug)
	v.GiftMessage = text(FieldGiftMessage)
	v.Categories = c.resolveList(p, FieldCategories, lang)

	v.Variants = ViewVariants{
		Numbers: slices.Clone(p.Variants.Numbers),
		Sizes:   slices.Clone(p.Variants.Sizes),
	}
	if p.Variants.ColorVariants != nil {
		v.Variants.ColorVariants = make([]VariantView, len(p.Variants.ColorVariants))
		for i, link := range p.Variants.ColorVariants {
			v.Variants.ColorVariants[i] = c.resolveVariant(link, lang)
		}
	}
	return v
}

func (c Catalog) resolveText(p *Product, field, lang string) string {
	if s, _ := p.Text(field, lang); s != "" {
		return s
	}
	s, _ := p.Text(field, c.def)
	return s
}

func (c Catalog) resolveList(p *Product, field, lang string) []string {
	if l, _ := p.List(field, lang); len(l) > 0 {
		return slices.Clone(l)
	}
	if l, _ := p.List(field, c.def); len(l) > 0 {
		return slices.Clone(l)
	}
	return []string{}
}

// resolveVariant resolves a linked variant's name and url. The url chain
// checks the literal English key before the legacy unsuffixed value even when
// English is not the catalog default.
// TODO: confirm the url_en step with catalog owners; it predates the
// configurable default language.
func (c Catalog) resolveVariant(l VariantLink, lang string) VariantView {
	return VariantView{
		ProductID: l.ProductID,
		SKU:       l.SKU,
		ImageURL:  l.ImageURL,
		Name:      firstNonEmpty(l.Names[lang], l.Names[c.def], l.Name),
		URL:       firstNonEmpty(l.URLs[lang], l.URLs[c.def], l.URLs["en"], l.URL),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
