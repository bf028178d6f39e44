package telemetry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/splax/heatlens/internal/domain"
)

// Thresholds for insight rules.
const (
	pvTrendMin          = 10.0
	pvCritical          = -20.0
	dwellTrendMin       = 15.0
	dwellCritical       = -25.0
	scrollTrendMin      = 10.0
	scrollWarning       = -20.0
	fvExitMinSamples    = 5
	fvExitWarning       = 60.0
	fvExitCritical      = 80.0
	rageWarningClicks   = 5
	rageCriticalClicks  = 20
	rageTopSelectors    = 3
	collapseMinSamples  = 10
	collapseRatio       = 0.3
	noNotableChangeText = "no notable change"
)

// windowStats summarises one half of the insight lookback.
type windowStats struct {
	pv        int
	avgDwell  float64
	avgDepth  float64
	pathDepth map[string][]int
	rage      map[string]int
	rageTotal int
	zones     []domain.AttentionVector
}

func summarise(records []domain.Pageview) windowStats {
	w := windowStats{
		pv:        len(records),
		pathDepth: make(map[string][]int),
		rage:      make(map[string]int),
	}
	var dwells []float64
	depthSum, depthN := 0, 0
	for _, pv := range records {
		for _, s := range pv.Scrolls {
			d := clampDepth(s.MaxDepth)
			depthSum += d
			depthN++
			w.pathDepth[pv.Path] = append(w.pathDepth[pv.Path], d)
			if s.DwellMs > 0 {
				dwells = append(dwells, float64(s.DwellMs))
			}
			if s.Zones != nil {
				w.zones = append(w.zones, *s.Zones)
			}
		}
		for _, c := range pv.Clicks {
			if !c.IsRage {
				continue
			}
			w.rageTotal++
			if c.Selector != "" {
				w.rage[c.Selector]++
			}
		}
	}
	w.avgDwell = mean(dwells)
	if depthN > 0 {
		w.avgDepth = float64(depthSum) / float64(depthN)
	}
	return w
}

// GenerateInsights compares the current half-window against the previous one and applies
// the threshold rules. Hotspot rules look at the current window only.
func GenerateInsights(current, previous []domain.Pageview) ([]domain.Insight, string) {
	cur, prev := summarise(current), summarise(previous)
	insights := make([]domain.Insight, 0)
	var parts []string

	if change := ChangePercent(float64(prev.pv), float64(cur.pv)); math.Abs(change) >= pvTrendMin {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightPVTrend,
			Severity: trendSeverity(change, pvCritical),
			Title:    "Pageview trend",
			Message:  fmt.Sprintf("Pageviews changed %+.1f%% (%d → %d)", change, prev.pv, cur.pv),
			Change:   change,
			Value:    float64(cur.pv),
		})
		parts = append(parts, fmt.Sprintf("PV %+.1f%%", change))
	}

	if change := ChangePercent(prev.avgDwell, cur.avgDwell); math.Abs(change) >= dwellTrendMin {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightDwellTrend,
			Severity: trendSeverity(change, dwellCritical),
			Title:    "Dwell time trend",
			Message:  fmt.Sprintf("Average dwell time changed %+.1f%% (%.0fms → %.0fms)", change, prev.avgDwell, cur.avgDwell),
			Change:   change,
			Value:    math.Round(cur.avgDwell),
		})
		parts = append(parts, fmt.Sprintf("dwell %+.1f%%", change))
	}

	if change := ChangePercent(prev.avgDepth, cur.avgDepth); math.Abs(change) >= scrollTrendMin {
		severity := domain.InsightInfo
		if change < scrollWarning {
			severity = domain.InsightWarning
		}
		insights = append(insights, domain.Insight{
			Type:     domain.InsightScrollTrend,
			Severity: severity,
			Title:    "Scroll depth trend",
			Message:  fmt.Sprintf("Average scroll depth changed %+.1f%% (%.1f%% → %.1f%%)", change, prev.avgDepth, cur.avgDepth),
			Change:   change,
			Value:    round1(cur.avgDepth),
		})
		parts = append(parts, fmt.Sprintf("scroll depth %+.1f%%", change))
	}

	insights = append(insights, fvExitHotspots(cur.pathDepth)...)
	if in, ok := rageHotspot(cur); ok {
		insights = append(insights, in)
	}
	if in, ok := attentionCollapse(cur.zones); ok {
		insights = append(insights, in)
	}

	critical, warning := 0, 0
	for _, in := range insights {
		switch in.Severity {
		case domain.InsightCritical:
			critical++
		case domain.InsightWarning:
			warning++
		}
	}
	if critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", critical))
	}
	if warning > 0 {
		parts = append(parts, fmt.Sprintf("%d warning", warning))
	}
	if len(parts) == 0 {
		return insights, noNotableChangeText
	}
	return insights, strings.Join(parts, ", ")
}

func trendSeverity(change, critical float64) domain.InsightSeverity {
	switch {
	case change < critical:
		return domain.InsightCritical
	case change < 0:
		return domain.InsightWarning
	default:
		return domain.InsightInfo
	}
}

func fvExitHotspots(pathDepth map[string][]int) []domain.Insight {
	var out []domain.Insight
	for path, depths := range pathDepth {
		if len(depths) < fvExitMinSamples {
			continue
		}
		exits := 0
		for _, d := range depths {
			if d <= domain.FirstViewDepth {
				exits++
			}
		}
		raw := float64(exits) / float64(len(depths)) * 100
		if raw < fvExitWarning {
			continue
		}
		severity := domain.InsightWarning
		if raw >= fvExitCritical {
			severity = domain.InsightCritical
		}
		rate := round1(raw)
		out = append(out, domain.Insight{
			Type:     domain.InsightFVExitHotspot,
			Severity: severity,
			Title:    "First-view exit hotspot",
			Message:  fmt.Sprintf("%.1f%% of %d visits to %s left without scrolling past the first view", rate, len(depths), path),
			Path:     path,
			Value:    rate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func rageHotspot(w windowStats) (domain.Insight, bool) {
	if w.rageTotal < rageWarningClicks {
		return domain.Insight{}, false
	}
	severity := domain.InsightWarning
	if w.rageTotal >= rageCriticalClicks {
		severity = domain.InsightCritical
	}
	selectors := make([]string, 0, len(w.rage))
	for sel := range w.rage {
		selectors = append(selectors, sel)
	}
	sort.Slice(selectors, func(i, j int) bool {
		if w.rage[selectors[i]] != w.rage[selectors[j]] {
			return w.rage[selectors[i]] > w.rage[selectors[j]]
		}
		return selectors[i] < selectors[j]
	})
	if len(selectors) > rageTopSelectors {
		selectors = selectors[:rageTopSelectors]
	}
	return domain.Insight{
		Type:      domain.InsightRageClickHotspot,
		Severity:  severity,
		Title:     "Rage click hotspot",
		Message:   fmt.Sprintf("%d rage clicks recorded", w.rageTotal),
		Value:     float64(w.rageTotal),
		Selectors: selectors,
	}, true
}

func attentionCollapse(zones []domain.AttentionVector) (domain.Insight, bool) {
	if len(zones) < collapseMinSamples {
		return domain.Insight{}, false
	}
	var avg domain.AttentionVector
	for _, z := range zones {
		for i, v := range z {
			avg[i] += v / float64(len(zones))
		}
	}
	top := (avg[0] + avg[1] + avg[2]) / 3
	mid := (avg[3] + avg[4] + avg[5] + avg[6]) / 4
	if top <= 0 {
		return domain.Insight{}, false
	}
	ratio := mid / top
	if ratio >= collapseRatio {
		return domain.Insight{}, false
	}
	return domain.Insight{
		Type:     domain.InsightAttentionCollapse,
		Severity: domain.InsightWarning,
		Title:    "Mid-page attention collapse",
		Message:  fmt.Sprintf("Mid-page attention is %.0f%% of the top of the page across %d sessions", ratio*100, len(zones)),
		Value:    math.Round(ratio*1000) / 1000,
	}, true
}
