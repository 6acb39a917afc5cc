package scoring

import (
	"strings"

	"leadsite/api/models"
)

// UserInterestEventTypes are the event types read for identified users.
var UserInterestEventTypes = []string{
	models.EventNavClick,
	models.EventPowerSourceCardClick,
	models.EventIndustryCardClick,
	models.EventProductFiltersApplied,
	models.EventProductClick,
	models.EventProductDetailView,
	models.EventProductDetailTabClick,
	models.EventRequestQuoteClick,
	models.EventDocumentDownloadClick,
	models.EventDocumentEmailRequestSubmit,
	models.EventPageEngagement,
}

// AnonymousPopularityEventTypes are the event types read for anonymous visitors.
var AnonymousPopularityEventTypes = []string{
	models.EventPowerSourceCardClick,
	models.EventIndustryCardClick,
	models.EventProductClick,
	models.EventProductDetailView,
	models.EventDocumentDownloadClick,
	models.EventDocumentEmailRequestSubmit,
}

type entityRef struct {
	Slug string
	Name string
}

type productRef struct {
	ID              int64
	Slug            string
	Name            string
	PowerSourceSlug string
	PowerSourceName string
}

// eventContext is the set of entities an event refers to.
type eventContext struct {
	product     *productRef
	powerSource entityRef
	industries  []entityRef
}

func contextOf(props models.EventProperties) eventContext {
	var ctx eventContext
	if props.HasProduct() {
		ctx.product = &productRef{
			ID:              props.ProductID,
			Slug:            props.ProductSlug,
			Name:            props.ProductName,
			PowerSourceSlug: props.PowerSourceSlug,
			PowerSourceName: props.PowerSourceName,
		}
	}
	ctx.powerSource = entityRef{Slug: props.PowerSourceSlug, Name: props.PowerSourceName}
	for _, slug := range props.Industries() {
		ref := entityRef{Slug: slug}
		if slug == props.IndustrySlug {
			ref.Name = props.IndustryName
		}
		ctx.industries = append(ctx.industries, ref)
	}
	return ctx
}

// scoredEvent is the outcome of applying the interest rules to one event.
// The same points are credited to every entity in ctx.
type scoredEvent struct {
	label  string
	points int
	ctx    eventContext
}

// scoreEvent applies the interest rule table. Unscored events keep their
// event type as label and zero points.
func scoreEvent(eventType string, props models.EventProperties, w *Weights) scoredEvent {
	ctx := contextOf(props)
	unscored := scoredEvent{label: eventType, ctx: ctx}
	flat := func(label string) scoredEvent {
		return scoredEvent{label: label, points: w.Interest[label], ctx: ctx}
	}

	switch eventType {
	case models.EventNavClick:
		if strings.EqualFold(strings.TrimSpace(props.Label), "products") {
			return flat(LabelNavClickProducts)
		}

	case models.EventPowerSourceCardClick:
		if ctx.powerSource.Slug != "" {
			return flat(eventType)
		}

	case models.EventIndustryCardClick:
		if len(ctx.industries) > 0 {
			return flat(eventType)
		}

	case models.EventProductFiltersApplied:
		if ctx.powerSource.Slug != "" || len(ctx.industries) > 0 {
			return flat(eventType)
		}

	case models.EventProductClick, models.EventProductDetailView,
		models.EventDocumentDownloadClick, models.EventDocumentEmailRequestSubmit:
		if ctx.product != nil {
			return flat(eventType)
		}

	case models.EventProductDetailTabClick:
		if ctx.product == nil {
			break
		}
		switch strings.ToLower(strings.TrimSpace(props.Tab)) {
		case "features":
			return flat(LabelTabFeatures)
		case "specifications":
			return flat(LabelTabSpecifications)
		case "documents":
			return flat(LabelTabDocuments)
		}

	case models.EventRequestQuoteClick:
		if ctx.product != nil && strings.EqualFold(strings.TrimSpace(props.SourceSection), "product_detail") {
			return flat(LabelRequestQuoteProductPage)
		}

	case models.EventPageEngagement:
		if ctx.product != nil && props.PageType == "product_detail" && props.ActiveSeconds >= w.EngagementThresholdSeconds {
			return flat(LabelPageEngagement120s)
		}
	}
	return unscored
}

// fillEmpty sets *dst to v unless *dst already holds a value.
func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
