package models

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Property keys read by the scoring engine.
const (
	PropProductID       = "product_id"
	PropProductSlug     = "product_slug"
	PropProductName     = "product_name"
	PropPowerSourceSlug = "power_source_slug"
	PropPowerSourceName = "power_source_name"
	PropIndustrySlug    = "industry_slug"
	PropIndustryName    = "industry_name"
	PropIndustrySlugs   = "industry_slugs"
	PropIndustries      = "industries"
	PropCatalogueID     = "catalogue_id"
	PropDocumentTitle   = "document_title"
	PropLabel           = "label"
	PropTab             = "tab"
	PropSourceSection   = "source_section"
	PropPageType        = "page_type"
	PropActiveSeconds   = "active_seconds"
)

var productKeys = []string{
	PropProductID, PropProductSlug, PropProductName,
	PropPowerSourceSlug, PropPowerSourceName,
	PropIndustrySlug, PropIndustryName,
}

var documentKeys = append([]string{PropCatalogueID, PropDocumentTitle}, productKeys...)

// PropertyKeys is the per-event-type schema: the property keys each event
// type is allowed to contribute. Anything else in the stored map is ignored.
var PropertyKeys = map[string][]string{
	EventPageView:                         nil,
	EventPageEngagement:                   append([]string{PropPageType, PropActiveSeconds}, productKeys...),
	EventNavClick:                         {PropLabel},
	EventPowerSourceCardClick:             {PropPowerSourceSlug, PropPowerSourceName},
	EventIndustryCardClick:                {PropIndustrySlug, PropIndustryName},
	EventProductFiltersApplied:            {PropPowerSourceSlug, PropPowerSourceName, PropIndustrySlug, PropIndustryName, PropIndustries},
	EventProductClick:                     append([]string{PropSourceSection}, productKeys...),
	EventProductDetailView:                append([]string{PropIndustrySlugs}, productKeys...),
	EventProductDetailTabClick:            append([]string{PropTab}, productKeys...),
	EventRequestQuoteClick:                append([]string{PropSourceSection}, productKeys...),
	EventDocumentDownloadClick:            documentKeys,
	EventDocumentEmailRequestOpen:         documentKeys,
	EventDocumentEmailRequestSubmit:       documentKeys,
	EventDocumentEmailRequestSubmitFailed: documentKeys,
}

// EventProperties is the typed view of an event's property map. Zero values
// mean "absent".
type EventProperties struct {
	ProductID       int64
	ProductSlug     string
	ProductName     string
	PowerSourceSlug string
	PowerSourceName string
	IndustrySlug    string
	IndustryName    string
	IndustrySlugs   []string
	CatalogueID     int64
	DocumentTitle   string
	Label           string
	Tab             string
	SourceSection   string
	PageType        string
	ActiveSeconds   float64
}

// HasProduct reports whether the event references a product.
func (p EventProperties) HasProduct() bool {
	return p.ProductID != 0
}

// Industries returns the distinct industry slugs referenced by the event,
// single slug first.
func (p EventProperties) Industries() []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(slug string) {
		if slug == "" {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	add(p.IndustrySlug)
	for _, s := range p.IndustrySlugs {
		add(s)
	}
	return out
}

// ParseProperties decodes raw properties for the given event type. Malformed
// or non-object JSON yields empty properties; the ingestion path has already
// rejected those, so this only happens for legacy rows.
func ParseProperties(eventType string, raw []byte) EventProperties {
	var props EventProperties
	if len(raw) == 0 {
		return props
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return props
	}
	for _, key := range PropertyKeys[eventType] {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch key {
		case PropProductID:
			props.ProductID = coerceInt(v)
		case PropCatalogueID:
			props.CatalogueID = coerceInt(v)
		case PropActiveSeconds:
			props.ActiveSeconds = coerceNumber(v)
		case PropIndustrySlugs, PropIndustries:
			props.IndustrySlugs = append(props.IndustrySlugs, coerceStrings(v)...)
		default:
			setString(&props, key, coerceString(v))
		}
	}
	return props
}

func setString(p *EventProperties, key, v string) {
	switch key {
	case PropProductSlug:
		p.ProductSlug = v
	case PropProductName:
		p.ProductName = v
	case PropPowerSourceSlug:
		p.PowerSourceSlug = v
	case PropPowerSourceName:
		p.PowerSourceName = v
	case PropIndustrySlug:
		p.IndustrySlug = v
	case PropIndustryName:
		p.IndustryName = v
	case PropDocumentTitle:
		p.DocumentTitle = v
	case PropLabel:
		p.Label = v
	case PropTab:
		p.Tab = v
	case PropSourceSection:
		p.SourceSection = v
	case PropPageType:
		p.PageType = v
	}
}

func coerceInt(v any) int64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func coerceNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := coerceString(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
