package platform

import (
	"sort"
	"strings"

	"campaign-insights-service/internal/model"
)

// signature describes the column fingerprint of one ad platform.
//
// required fields must ALL fuzzy-match or the platform scores zero. strong
// fields add smaller bonuses, identifiers are substring hints over the whole
// header set, and a single exclude match disqualifies the platform outright.
// priority divides the final score so specific platforms beat the generic
// google fallback on partial matches.
type signature struct {
	required    []string
	strong      []string
	identifiers []string
	excludes    []string
	priority    int
}

const (
	requiredWeight   = 30
	strongWeight     = 10
	identifierWeight = 20

	// minScore is one required-field match; anything below is noise.
	minScore = 30
)

var signatures = map[model.Platform]signature{
	model.PlatformFlipkart: {
		required:    []string{"seller"},
		strong:      []string{"campaign", "listing", "product_id", "fassured", "orders"},
		identifiers: []string{"flipkart", "seller_id", "fassured"},
		excludes:    []string{"amazon", "asin"},
		priority:    1,
	},
	model.PlatformMeta: {
		required: []string{"campaign"},
		strong:   []string{"adset", "ad_id", "ad_name", "reach", "frequency"},
		identifiers: []string{
			"facebook", "instagram", "fb_pixel", "meta",
			"link_clicks", "link clicks", "purchases",
			"date_start", "datestart",
		},
		excludes: []string{"google", "amazon", "flipkart", "cost"},
		priority: 1,
	},
	model.PlatformAmazon: {
		required:    []string{"campaign"},
		strong:      []string{"asin", "sku", "sponsored", "orders"},
		identifiers: []string{"amazon", "sponsored products", "sponsored brands", "asin"},
		excludes:    []string{"flipkart", "seller", "cost"},
		priority:    2,
	},
	model.PlatformLinkedIn: {
		required: []string{"campaign"},
		strong:   []string{"leads", "start_at", "startat"},
		identifiers: []string{
			"linkedin", "li_",
			"cost_in_local_currency", "costinlocalcurrency",
			"start_at", "startat",
		},
		excludes: []string{"facebook", "google", "twitter"},
		priority: 2,
	},
	model.PlatformTwitter: {
		required:    []string{"campaign"},
		strong:      []string{"tweet_id", "engagements", "retweets"},
		identifiers: []string{"twitter", "x ads", "promoted tweet", "tweet", "url_clicks", "urlclicks"},
		excludes:    []string{"facebook", "google", "linkedin"},
		priority:    2,
	},
	// Generic fallback: loose required set, lowest priority.
	model.PlatformGoogle: {
		required:    []string{"campaign", "cost"},
		strong:      []string{"impressions", "conversions", "ctr"},
		identifiers: []string{"google ads", "adwords", "gclid", "cost"},
		excludes: []string{
			"facebook", "meta", "instagram", "adset", "seller",
			"link_clicks", "link clicks", "purchases", "orders", "spend",
		},
		priority: 3,
	},
}

// NormalizeToken lowercases and strips underscores, spaces and hyphens so
// "Campaign Name", "campaign_name" and "campaignname" compare equal.
func NormalizeToken(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', ' ', '-':
			return -1
		}
		return r
	}, s)
}

// fieldSet is a precomputed view over one header set: the normalized field
// names plus their concatenation for substring checks.
type fieldSet struct {
	normalized []string
	joined     string
}

func newFieldSet(fields []string) fieldSet {
	normalized := make([]string, 0, len(fields))
	for _, f := range fields {
		normalized = append(normalized, NormalizeToken(f))
	}
	return fieldSet{normalized: normalized, joined: strings.Join(normalized, " ")}
}

// has reports whether any field fuzzy-matches target: either string may
// contain the other after normalization.
func (fs fieldSet) has(target string) bool {
	t := NormalizeToken(target)
	for _, f := range fs.normalized {
		if strings.Contains(f, t) || strings.Contains(t, f) {
			return true
		}
	}
	return false
}

func (fs fieldSet) containsAnywhere(sub string) bool {
	return strings.Contains(fs.joined, NormalizeToken(sub))
}

// score computes the match score of one platform against the header set.
// Returns -1 when an exclude disqualifies the platform and 0 when any
// required field is missing.
func score(fs fieldSet, sig signature) float64 {
	for _, ex := range sig.excludes {
		if fs.containsAnywhere(ex) {
			return -1
		}
	}

	total := 0.0
	for _, req := range sig.required {
		if !fs.has(req) {
			return 0
		}
		total += requiredWeight
	}

	for _, s := range sig.strong {
		if fs.has(s) {
			total += strongWeight
		}
	}
	for _, id := range sig.identifiers {
		if fs.containsAnywhere(id) {
			total += identifierWeight
		}
	}

	priority := sig.priority
	if priority < 1 {
		priority = 1
	}
	return total / float64(priority)
}

// Detect scores a sample row's field names against every platform signature
// and returns the best match, or PlatformUnknown when nothing clears the
// minimum score. Deterministic for a given field set regardless of ordering.
func Detect(fields []string) model.Platform {
	if len(fields) == 0 {
		return model.PlatformUnknown
	}
	fs := newFieldSet(fields)

	type candidate struct {
		platform model.Platform
		score    float64
		priority int
	}
	var candidates []candidate
	for p, sig := range signatures {
		if s := score(fs, sig); s > 0 {
			candidates = append(candidates, candidate{platform: p, score: s, priority: sig.priority})
		}
	}

	// Highest score wins; on ties the more specific (lower priority) platform
	// takes precedence so the generic fallback cannot shadow it.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].platform < candidates[j].platform
	})

	if len(candidates) == 0 || candidates[0].score < minScore {
		return model.PlatformUnknown
	}
	return candidates[0].platform
}

// DetectFromHeaderLine splits a raw CSV header line and runs detection on
// the resulting field names.
func DetectFromHeaderLine(header string) model.Platform {
	parts := strings.Split(header, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		fields = append(fields, strings.TrimSpace(p))
	}
	return Detect(fields)
}

// DetectFromObject runs detection on an API object's keys.
func DetectFromObject(obj map[string]any) model.Platform {
	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	return Detect(fields)
}
