package estimate

import (
	"fmt"

	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/service/structure"
)

// Suggestion types.
const (
	SuggestNoAboveFoldCTA   = "no_above_fold_cta"
	SuggestNoHero           = "no_hero"
	SuggestContentTooShort  = "content_too_short"
	SuggestNoImages         = "no_images"
	SuggestNoConversionPath = "no_conversion_path"
	SuggestMissingH1        = "missing_h1"
	SuggestMultipleH1       = "multiple_h1"
	SuggestWeakStructure    = "weak_structure"
	SuggestLowMidPageReach  = "low_mid_page_reach"
	SuggestLowEngagement    = "low_engagement"
)

const (
	strongCTAProminence = 70
	shortContentWords   = 300
	structuredWords     = 500
	minStructuredZones  = 3
	midPageReachFloor   = 40
	engagementFloor     = 0.2
)

func suggest(page structure.Page, zones []domain.Zone, targets []domain.ClickTarget, curve []domain.ScrollDepthPoint, engagement float64) []domain.Suggestion {
	f := page.Flags
	out := make([]domain.Suggestion, 0)
	add := func(kind string, sev domain.Severity, msg, details string) {
		out = append(out, domain.Suggestion{Type: kind, Severity: sev, Message: msg, Details: details})
	}

	if !hasStrongAboveFoldCTA(targets) {
		add(SuggestNoAboveFoldCTA, domain.SeverityHigh,
			"No prominent call to action above the fold",
			fmt.Sprintf("No button in the first %dpx reaches prominence %d; place the primary action in the first view.", domain.ViewportHeight, strongCTAProminence))
	}
	if !f.HasHero {
		add(SuggestNoHero, domain.SeverityMedium,
			"No hero section detected",
			"A clear hero region anchors first-view attention and frames the page.")
	}
	if f.WordCount < shortContentWords {
		add(SuggestContentTooShort, domain.SeverityMedium,
			"Content too short",
			fmt.Sprintf("The page has %d words; fewer than %d gives visitors little reason to scroll.", f.WordCount, shortContentWords))
	}
	if f.ImageCount == 0 {
		add(SuggestNoImages, domain.SeverityLow,
			"No images",
			"Pages without imagery tend to lose attention after the first view.")
	}
	if !f.HasForm && !f.HasCTA {
		add(SuggestNoConversionPath, domain.SeverityHigh,
			"No form or call to action",
			"Visitors have no conversion path on this page.")
	}
	switch {
	case f.H1Count == 0:
		add(SuggestMissingH1, domain.SeverityMedium,
			"Missing H1 heading",
			"Add a single H1 describing the page topic.")
	case f.H1Count > 1:
		add(SuggestMultipleH1, domain.SeverityMedium,
			"Multiple H1 headings",
			fmt.Sprintf("Found %d H1 headings; keep one primary heading.", f.H1Count))
	}
	if len(zones) < minStructuredZones && f.WordCount > structuredWords {
		add(SuggestWeakStructure, domain.SeverityMedium,
			"Long content with little structure",
			fmt.Sprintf("%d words split into only %d zones; break the content into sections.", f.WordCount, len(zones)))
	}
	if mid := ReachAt(curve, 50); mid < midPageReachFloor {
		add(SuggestLowMidPageReach, domain.SeverityMedium,
			"Few visitors expected to reach mid-page",
			fmt.Sprintf("Estimated reach at 50%% depth is %.0f%%; move key content higher or shorten the page.", mid))
	}
	if engagement < engagementFloor {
		add(SuggestLowEngagement, domain.SeverityLow,
			"Low engagement signals",
			fmt.Sprintf("Engagement factor %.2f; add media, headings or interactive elements.", engagement))
	}
	return out
}

func hasStrongAboveFoldCTA(targets []domain.ClickTarget) bool {
	for _, t := range targets {
		if t.AboveFold && t.Type == domain.TargetButton && t.Prominence >= strongCTAProminence {
			return true
		}
	}
	return false
}
