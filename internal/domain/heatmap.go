package domain

// Engine constants shared by the estimator and the aggregator. Both sides must agree on
// them so snapshots are interchangeable downstream.
const (
	// ViewportHeight is the assumed first-view height in pixels.
	ViewportHeight = 900
	// ViewportWidth is the assumed layout width used to place estimated clicks.
	ViewportWidth = 1280
	// GridSize is the click map bin edge in pixels.
	GridSize = 50
	// ZoneCount is the number of vertical page deciles in an attention vector.
	ZoneCount = 10
	// FirstViewDepth is the max scroll depth (percent) at or below which a visit counts as a first-view exit.
	FirstViewDepth = 15
	// BottomDepth is the scroll depth (percent) at or above which a visit counts as reaching the bottom.
	BottomDepth = 90
)

// ScrollMilestones are the depths (percent) reported in every scroll-depth curve.
var ScrollMilestones = []int{0, 10, 25, 50, 75, 90, 100}

// ZoneType is the structural role of a page zone.
type ZoneType string

const (
	ZoneHero    ZoneType = "hero"
	ZoneNav     ZoneType = "nav"
	ZoneCTA     ZoneType = "cta"
	ZoneForm    ZoneType = "form"
	ZoneHeading ZoneType = "heading"
	ZoneImage   ZoneType = "image"
	ZoneText    ZoneType = "text"
	ZoneFooter  ZoneType = "footer"
	ZoneOther   ZoneType = "other"
)

// Zone is one positioned structural region of a page.
type Zone struct {
	Index          int      `json:"index"`
	Selector       string   `json:"selector"`
	YOffset        int      `json:"yOffset"`
	Height         int      `json:"height"`
	Type           ZoneType `json:"type"`
	AttentionScore int      `json:"attentionScore"`
	ScrollReach    int      `json:"scrollReach"`
	Content        string   `json:"content"`
}

// ClickTargetType classifies a clickable element.
type ClickTargetType string

const (
	TargetLink      ClickTargetType = "link"
	TargetButton    ClickTargetType = "button"
	TargetNavLink   ClickTargetType = "nav-link"
	TargetImageLink ClickTargetType = "image-link"
)

// ClickTarget is an estimated click candidate.
type ClickTarget struct {
	Label      string          `json:"label"`
	Href       string          `json:"href"`
	Type       ClickTargetType `json:"type"`
	Prominence int             `json:"prominence"`
	YPosition  int             `json:"yPosition"`
	AboveFold  bool            `json:"aboveFold"`
}

// ScrollDepthPoint is the share of visits (percent) that reached Depth.
type ScrollDepthPoint struct {
	Depth int `json:"depth"`
	Reach int `json:"reach"`
}

// AttentionVector holds one 0-100 score per vertical page decile, index 0 is the top.
type AttentionVector [ZoneCount]float64

// ClickMapCell is a grid-binned click accumulation. X and Y are the cell centre.
type ClickMapCell struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Count       int    `json:"count"`
	TopSelector string `json:"topSelector"`
}

// HeatmapSnapshot is the canonical engine output, produced by estimation or aggregation.
type HeatmapSnapshot struct {
	TotalPV         int                `json:"totalPV"`
	UniqueSessions  int                `json:"uniqueSessions"`
	AvgDwellMs      float64            `json:"avgDwellMs"`
	MedianDwellMs   float64            `json:"medianDwellMs"`
	FVExitRate      float64            `json:"fvExitRate"`
	BottomReachRate float64            `json:"bottomReachRate"`
	AttentionZones  AttentionVector    `json:"attentionZones"`
	AvgPageHeight   int                `json:"avgPageHeight"`
	ScrollDepth     []ScrollDepthPoint `json:"scrollDepth"`
	ClickMap        []ClickMapCell     `json:"clickMap"`
}

// EmptySnapshot returns the all-zero snapshot used when no records match a selection.
func EmptySnapshot() HeatmapSnapshot {
	return HeatmapSnapshot{
		ScrollDepth: []ScrollDepthPoint{},
		ClickMap:    []ClickMapCell{},
	}
}

// CellCenter maps a coordinate onto the centre of its click map cell.
func CellCenter(v int) int {
	cell := v / GridSize
	if v < 0 && v%GridSize != 0 {
		cell--
	}
	return cell*GridSize + GridSize/2
}

// Severity ranks suggestions.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Suggestion is a structural finding raised by the estimator.
type Suggestion struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Details  string   `json:"details"`
}

// StructureFlags summarises the raw page structure.
type StructureFlags struct {
	HasHero      bool `json:"hasHero"`
	HasCTA       bool `json:"hasCta"`
	HasForm      bool `json:"hasForm"`
	HasNav       bool `json:"hasNav"`
	HasVideo     bool `json:"hasVideo"`
	ImageCount   int  `json:"imageCount"`
	LinkCount    int  `json:"linkCount"`
	WordCount    int  `json:"wordCount"`
	SectionCount int  `json:"sectionCount"`
	HeadingCount int  `json:"headingCount"`
	H1Count      int  `json:"h1Count"`
}

// EstimateResult is the estimator response for one document.
type EstimateResult struct {
	URL           string          `json:"url"`
	Snapshot      HeatmapSnapshot `json:"snapshot"`
	Zones         []Zone          `json:"zones"`
	ClickTargets  []ClickTarget   `json:"clickTargets"`
	PageHeight    int             `json:"pageHeight"`
	Engagement    float64         `json:"engagement"`
	Structure     StructureFlags  `json:"structure"`
	Suggestions   []Suggestion    `json:"suggestions"`
	SanitizedHTML string          `json:"sanitizedHtml"`
}
