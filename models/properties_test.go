package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePropertiesCoercesTypes(t *testing.T) {
	props := ParseProperties(EventDocumentDownloadClick, []byte(
		`{"product_id":"12","catalogue_id":42.0,"document_title":"Manual","product_slug":7,"unknown":"x"}`))

	assert.Equal(t, int64(12), props.ProductID)
	assert.Equal(t, int64(42), props.CatalogueID)
	assert.Equal(t, "Manual", props.DocumentTitle)
	assert.Equal(t, "7", props.ProductSlug)
	assert.True(t, props.HasProduct())
}

func TestParsePropertiesIgnoresKeysOutsideSchema(t *testing.T) {
	props := ParseProperties(EventNavClick, []byte(`{"label":"Products","product_id":7,"tab":"documents"}`))

	assert.Equal(t, "Products", props.Label)
	assert.False(t, props.HasProduct())
	assert.Empty(t, props.Tab)
}

func TestParsePropertiesMalformed(t *testing.T) {
	for _, raw := range []string{``, `null`, `[1,2]`, `{"product_id":`, `"text"`} {
		assert.Equal(t, EventProperties{}, ParseProperties(EventProductClick, []byte(raw)), raw)
	}
}

func TestParsePropertiesNumbers(t *testing.T) {
	tests := []struct {
		raw     string
		id      int64
		seconds float64
	}{
		{`{"product_id":7,"active_seconds":150}`, 7, 150},
		{`{"product_id":"abc","active_seconds":"90.5"}`, 0, 90.5},
		{`{"product_id":true,"active_seconds":null}`, 0, 0},
		{`{"product_id":7.9,"active_seconds":"nan"}`, 7, 0},
	}
	for _, tt := range tests {
		props := ParseProperties(EventPageEngagement, []byte(tt.raw))
		assert.Equal(t, tt.id, props.ProductID, tt.raw)
		assert.Equal(t, tt.seconds, props.ActiveSeconds, tt.raw)
	}
}

func TestIndustriesAreDistinctSingleSlugFirst(t *testing.T) {
	props := ParseProperties(EventProductFiltersApplied, []byte(
		`{"industry_slug":"mining","industries":["marine","mining","",3]}`))

	assert.Equal(t, []string{"mining", "marine", "3"}, props.Industries())

	detail := ParseProperties(EventProductDetailView, []byte(`{"product_id":1,"industry_slugs":"rail"}`))
	assert.Equal(t, []string{"rail"}, detail.Industries())

	assert.Empty(t, EventProperties{}.Industries())
}

func TestIsValidEventType(t *testing.T) {
	for _, et := range EventTypes {
		assert.True(t, IsValidEventType(et), et)
	}
	assert.False(t, IsValidEventType(""))
	assert.False(t, IsValidEventType("Product_Click"))
}
