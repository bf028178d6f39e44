package domain

import "time"

// InsightSeverity ranks generated insights.
type InsightSeverity string

const (
	InsightCritical InsightSeverity = "critical"
	InsightWarning  InsightSeverity = "warning"
	InsightInfo     InsightSeverity = "info"
)

// Insight types emitted by the generator.
const (
	InsightPVTrend           = "pv_trend"
	InsightDwellTrend        = "dwell_trend"
	InsightScrollTrend       = "scroll_trend"
	InsightFVExitHotspot     = "fv_exit_hotspot"
	InsightRageClickHotspot  = "rage_click_hotspot"
	InsightAttentionCollapse = "attention_collapse"
)

// Insight is one qualitative finding over a lookback window.
type Insight struct {
	Type      string          `json:"type"`
	Severity  InsightSeverity `json:"severity"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Path      string          `json:"path,omitempty"`
	Change    float64         `json:"change,omitempty"`
	Value     float64         `json:"value,omitempty"`
	Selectors []string        `json:"selectors,omitempty"`
}

// InsightReport is the insight endpoint payload.
type InsightReport struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"siteId"`
	Days        int       `json:"days"`
	Insights    []Insight `json:"insights"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Period is a closed-open time range [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Changes holds signed percentage deltas from period A to period B.
type Changes struct {
	PV              float64 `json:"pv"`
	UniqueSessions  float64 `json:"uniqueSessions"`
	AvgDwell        float64 `json:"avgDwell"`
	FVExitRate      float64 `json:"fvExitRate"`
	BottomReachRate float64 `json:"bottomReachRate"`
}

// Comparison is the comparator payload.
type Comparison struct {
	PeriodA HeatmapSnapshot `json:"periodA"`
	PeriodB HeatmapSnapshot `json:"periodB"`
	Changes Changes         `json:"changes"`
}
