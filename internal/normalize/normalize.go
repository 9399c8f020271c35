// Package normalize coerces raw CSV lines and API payload objects into
// canonical campaign rows. Normalization never fails: malformed values
// degrade to safe defaults and the validator decides what to discard.
package normalize

import (
	"strings"

	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/platform"
)

// legacy column order used when a CSV batch carries no header row.
var legacyOrder = []string{
	platform.FieldDate,
	platform.FieldCampaign,
	platform.FieldImpressions,
	platform.FieldClicks,
	platform.FieldSpend,
	platform.FieldConversions,
}

// CSVRows normalizes raw comma-separated data lines. With headers, each
// canonical field is read through the platform's column mapping; without
// headers the fixed legacy column order applies. Output length always equals
// input length.
func CSVRows(lines []string, p model.Platform, headers []string) []model.CanonicalRow {
	if len(lines) == 0 {
		return nil
	}

	if len(headers) == 0 {
		return legacyCSVRows(lines)
	}

	mapping := platform.BuildColumnMapping(headers, p)

	out := make([]model.CanonicalRow, 0, len(lines))
	for i, line := range lines {
		values := splitTrim(line)
		row := model.CanonicalRow{
			Campaign: model.UnknownCampaign,
			Spend:    zeroDecimal,
			Line:     i + 1,
		}
		if c := mappedValue(values, mapping, platform.FieldCampaign); c != "" {
			row.Campaign = c
		}
		row.Date = safeDate(mappedValue(values, mapping, platform.FieldDate))
		row.Impressions = safeInt(mappedValue(values, mapping, platform.FieldImpressions))
		row.Clicks = safeInt(mappedValue(values, mapping, platform.FieldClicks))
		row.Spend = safeDecimal(mappedValue(values, mapping, platform.FieldSpend))
		row.Conversions = safeInt(mappedValue(values, mapping, platform.FieldConversions))
		out = append(out, row)
	}
	return out
}

func legacyCSVRows(lines []string) []model.CanonicalRow {
	out := make([]model.CanonicalRow, 0, len(lines))
	for i, line := range lines {
		values := splitTrim(line)
		at := func(col int) string {
			if col < len(values) {
				return values[col]
			}
			return ""
		}
		row := model.CanonicalRow{
			Campaign:    model.UnknownCampaign,
			Date:        safeDate(at(0)),
			Impressions: safeInt(at(2)),
			Clicks:      safeInt(at(3)),
			Spend:       safeDecimal(at(4)),
			Conversions: safeInt(at(5)),
			Line:        i + 1,
		}
		if c := at(1); c != "" {
			row.Campaign = c
		}
		out = append(out, row)
	}
	return out
}

// APIObjects normalizes arbitrary key-value payload entries. Keys are
// normalized case/separator-insensitively before variant lookup; per field
// the first matching variant wins. When the mapped pass leaves campaign at
// its default, raw keys named campaign / campaign_name / campaignName on the
// source object are consulted directly, since the normalized-key matcher can
// collapse camelCase API fields ambiguously.
func APIObjects(objs []map[string]any, p model.Platform) []model.CanonicalRow {
	if len(objs) == 0 {
		return nil
	}

	variants := platform.Variants(p)

	out := make([]model.CanonicalRow, 0, len(objs))
	for i, obj := range objs {
		normalizedObj := make(map[string]any, len(obj))
		for k, v := range obj {
			normalizedObj[platform.NormalizeToken(k)] = v
		}

		row := model.CanonicalRow{
			Campaign: model.UnknownCampaign,
			Spend:    zeroDecimal,
			Line:     i + 1,
		}

		for field, vs := range variants {
			for _, variant := range vs {
				value, ok := normalizedObj[platform.NormalizeToken(variant)]
				if !ok {
					continue
				}
				switch field {
				case platform.FieldCampaign:
					if c := strings.TrimSpace(safeString(value)); c != "" {
						row.Campaign = c
					}
				case platform.FieldDate:
					row.Date = safeDateValue(value)
				case platform.FieldImpressions:
					row.Impressions = safeIntValue(value)
				case platform.FieldClicks:
					row.Clicks = safeIntValue(value)
				case platform.FieldSpend:
					row.Spend = safeDecimalValue(value)
				case platform.FieldConversions:
					row.Conversions = safeIntValue(value)
				}
				break
			}
		}

		if row.Campaign == "" || row.Campaign == model.UnknownCampaign {
			row.Campaign = rawCampaignFallback(obj, normalizedObj)
		}

		out = append(out, row)
	}
	return out
}

func rawCampaignFallback(obj, normalizedObj map[string]any) string {
	for _, key := range []string{"campaign", "campaign_name", "campaignName"} {
		if v, ok := obj[key]; ok {
			if c := strings.TrimSpace(safeString(v)); c != "" {
				return c
			}
		}
	}
	if v, ok := normalizedObj["campaign"]; ok {
		if c := strings.TrimSpace(safeString(v)); c != "" {
			return c
		}
	}
	return model.UnknownCampaign
}

func mappedValue(values []string, mapping platform.ColumnMapping, field string) string {
	col, ok := mapping[field]
	if !ok || col >= len(values) {
		return ""
	}
	return values[col]
}

func splitTrim(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
