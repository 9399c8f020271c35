package platform

import "campaign-insights-service/internal/model"

// Canonical field names every platform schema is mapped onto.
const (
	FieldCampaign    = "campaign"
	FieldDate        = "date"
	FieldImpressions = "impressions"
	FieldClicks      = "clicks"
	FieldSpend       = "spend"
	FieldConversions = "conversions"
)

// FieldVariants lists, per canonical field, the source column names a
// platform is known to export, in match-priority order.
type FieldVariants map[string][]string

var fieldMaps = map[model.Platform]FieldVariants{
	model.PlatformGoogle: {
		FieldCampaign:    {"campaign", "campaign_name", "campaignname", "name", "campaign name"},
		FieldDate:        {"day", "date", "date_served"},
		FieldImpressions: {"impressions", "impr"},
		FieldClicks:      {"clicks"},
		FieldSpend:       {"cost", "spend", "cost_micros"},
		FieldConversions: {"conversions", "conv", "all_conversions"},
	},
	model.PlatformMeta: {
		FieldCampaign:    {"campaign_name", "campaign name", "campaign", "campaignname"},
		FieldDate:        {"date_start", "datestart", "date start", "date", "day"},
		FieldImpressions: {"impressions", "reach"},
		FieldClicks:      {"clicks", "link_clicks", "link clicks"},
		FieldSpend:       {"spend", "amount_spent"},
		FieldConversions: {"conversions", "purchases", "actions"},
	},
	model.PlatformAmazon: {
		FieldCampaign:    {"campaign", "campaign_name"},
		FieldDate:        {"date", "day"},
		FieldImpressions: {"impressions"},
		FieldClicks:      {"clicks"},
		FieldSpend:       {"cost", "spend"},
		FieldConversions: {"conversions", "orders", "purchases"},
	},
	model.PlatformFlipkart: {
		FieldCampaign:    {"campaign", "campaign_name"},
		FieldDate:        {"date", "day"},
		FieldImpressions: {"impressions", "views"},
		FieldClicks:      {"clicks"},
		FieldSpend:       {"spend", "cost"},
		FieldConversions: {"conversions", "orders"},
	},
	model.PlatformLinkedIn: {
		FieldCampaign:    {"campaign_name", "campaign name", "campaign"},
		FieldDate:        {"start_at", "startat", "start at", "date", "day"},
		FieldImpressions: {"impressions"},
		FieldClicks:      {"clicks"},
		FieldSpend:       {"cost_in_local_currency", "costinlocalcurrency", "cost in local currency", "spend", "cost"},
		FieldConversions: {"conversions", "leads"},
	},
	model.PlatformTwitter: {
		FieldCampaign:    {"campaign_name", "campaign name", "campaign"},
		FieldDate:        {"date", "day"},
		FieldImpressions: {"impressions"},
		FieldClicks:      {"clicks", "url_clicks", "url clicks", "urlclicks"},
		FieldSpend:       {"spend", "billed_charge_local_micro"},
		FieldConversions: {"conversions"},
	},
}

// Variants returns the field-variant lists for a platform. Unknown platforms
// fall back to the google lists, the loosest of the supported schemas.
func Variants(p model.Platform) FieldVariants {
	if fm, ok := fieldMaps[p]; ok {
		return fm
	}
	return fieldMaps[model.PlatformGoogle]
}

// ColumnMapping maps canonical field names onto source column indexes.
// Canonical fields with no matching header are absent from the map; the
// normalizer substitutes defaults for them.
type ColumnMapping map[string]int

// BuildColumnMapping resolves each canonical field to the first header whose
// normalized form equals a normalized variant, consulting the platform's
// variant lists in priority order.
func BuildColumnMapping(headers []string, p model.Platform) ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeToken(h)
	}

	mapping := make(ColumnMapping)
	for field, variants := range Variants(p) {
		if idx := findColumnIndex(normalized, variants); idx >= 0 {
			mapping[field] = idx
		}
	}
	return mapping
}

func findColumnIndex(normalizedHeaders []string, variants []string) int {
	for _, v := range variants {
		nv := NormalizeToken(v)
		for i, h := range normalizedHeaders {
			if h == nv {
				return i
			}
		}
	}
	return -1
}
