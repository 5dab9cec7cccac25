package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatDocument = `{
  "_id": {"$oid": "6650a1b2c3d4e5f601234567"},
  "sku": "A1",
  "parent_sku": null,
  "current_price": 19.5,
  "currency": "EUR",
  "stock_quantity": 3,
  "timesAddedToCart": 7,
  "is_active": false,
  "tags": ["new"],
  "title_en": "Shoe",
  "title_it": "Scarpa",
  "meta_title_it": "Scarpa - meta",
  "description_text_de": null,
  "categories_it": ["Scarpe", "Uomo"],
  "variants": {
    "TAGLIA": ["40"],
    "COLOR_VARIANTS": [
      {"product_id": "x1", "sku": "A1-R", "name": "red", "name_it": "rosso", "url_en": "/en/red"}
    ]
  }
}`

func TestUnmarshalFlatDocument(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(flatDocument), &p))

	assert.Equal(t, "6650a1b2c3d4e5f601234567", p.ID)
	assert.Equal(t, "A1", p.SKU)
	assert.Nil(t, p.ParentSKU)
	require.NotNil(t, p.CurrentPrice)
	assert.Equal(t, "19.5", p.CurrentPrice.String())
	assert.False(t, p.IsActive)
	assert.Equal(t, 7, p.TimesAddedToCart)

	title, ok := p.Text(FieldTitle, "it")
	assert.True(t, ok)
	assert.Equal(t, "Scarpa", title)

	meta, _ := p.Text(FieldMetaTitle, "it")
	assert.Equal(t, "Scarpa - meta", meta)

	_, ok = p.Text(FieldDescriptionText, "de")
	assert.False(t, ok, "null values are absent")

	cats, _ := p.List(FieldCategories, "it")
	assert.Equal(t, []string{"Scarpe", "Uomo"}, cats)

	require.Len(t, p.Variants.ColorVariants, 1)
	link := p.Variants.ColorVariants[0]
	assert.Equal(t, "rosso", link.Names["it"])
	assert.Equal(t, "/en/red", link.URLs["en"])
	assert.Equal(t, "red", link.Name)
}

func TestUnmarshalDefaults(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"1","sku":"B","title_en":"x"}`), &p))
	assert.Equal(t, DefaultCurrency, p.Currency)
	assert.True(t, p.IsActive)
}

func TestUnmarshalRejectsWrongLocalizedType(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{"sku":"B","categories_en":"not a list"}`), &p)
	assert.ErrorContains(t, err, "categories_en")
}

func TestUnmarshalFoldsUpperCaseSuffixes(t *testing.T) {
	var p Product
	doc := `{"sku":"B","title_en":"Bag","title_IT":"Borsa","categories_DE":["Taschen"],
		"variants":{"COLOR_VARIANTS":[{"product_id":"x","sku":"B-R","name_IT":"rosso"}]}}`
	require.NoError(t, json.Unmarshal([]byte(doc), &p))

	title, ok := p.Text(FieldTitle, "it")
	assert.True(t, ok)
	assert.Equal(t, "Borsa", title)

	cats, ok := p.List(FieldCategories, "de")
	assert.True(t, ok)
	assert.Equal(t, []string{"Taschen"}, cats)

	require.Len(t, p.Variants.ColorVariants, 1)
	assert.Equal(t, "rosso", p.Variants.ColorVariants[0].Names["it"])

	view := DefaultCatalog.Resolve(&p, "it")
	assert.Equal(t, "Borsa", view.Title)
}

func TestMarshalFlattensLocales(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(flatDocument), &p))

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "Scarpa", flat["title_it"])
	assert.Equal(t, []any{"Scarpe", "Uomo"}, flat["categories_it"])
	assert.Equal(t, "A1", flat["sku"])

	var back Product
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p.Locales, back.Locales)
	assert.Equal(t, p.Variants, back.Variants)
}
