// Package estimate synthesises heatmap snapshots from page structure when no visitor
// telemetry exists yet.
package estimate

import (
	"math"
	"sort"
	"strings"

	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/service/structure"
)

const (
	defaultMaxTargets = 50
	maxClickCells     = 200
)

// Estimator turns a structural page model into a snapshot-compatible estimate.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	maxTargets int
}

// New constructs an Estimator returning at most maxTargets click targets.
func New(maxTargets int) *Estimator {
	if maxTargets <= 0 {
		maxTargets = defaultMaxTargets
	}
	return &Estimator{maxTargets: maxTargets}
}

// EstimateHTML parses rawHTML and estimates visitor behaviour for it. It never fails:
// malformed documents fall back to a three-zone model.
func (e *Estimator) EstimateHTML(rawHTML, pageURL string) domain.EstimateResult {
	page := structure.Parse(strings.NewReader(rawHTML), pageURL)
	result := e.Estimate(page)
	result.SanitizedHTML = SanitizePreview(rawHTML, pageURL)
	return result
}

// Estimate builds zones, scroll curve, click targets and suggestions for page.
func (e *Estimator) Estimate(page structure.Page) domain.EstimateResult {
	zones, pageHeight := positionZones(page.Sections)
	engagement := Engagement(page.Flags)
	curve := DecayCurve(pageHeight, engagement)

	for i := range zones {
		reach := ReachAt(curve, depthPercent(zones[i].YOffset, pageHeight))
		zones[i].ScrollReach = int(roundHalfUp(reach))
		zones[i].AttentionScore = attentionScore(page.Sections[i], zones[i], reach)
	}

	targets, cells := e.clickTargets(page.Sections, zones, curve, pageHeight)

	result := domain.EstimateResult{
		URL:          page.URL,
		Zones:        zones,
		ClickTargets: targets,
		PageHeight:   pageHeight,
		Engagement:   math.Round(engagement*100) / 100,
		Structure:    page.Flags,
	}
	result.Snapshot = domain.HeatmapSnapshot{
		FVExitRate:      round1(100 - ReachAt(curve, domain.FirstViewDepth)),
		BottomReachRate: round1(ReachAt(curve, domain.BottomDepth)),
		AttentionZones:  attentionDeciles(zones, pageHeight),
		AvgPageHeight:   pageHeight,
		ScrollDepth:     curve,
		ClickMap:        cells,
	}
	result.Suggestions = suggest(page, zones, targets, curve, engagement)
	return result
}

// positionZones lays sections out top to bottom and returns the total page height.
func positionZones(sections []structure.Section) ([]domain.Zone, int) {
	zones := make([]domain.Zone, len(sections))
	offset := 0
	for i, s := range sections {
		zones[i] = domain.Zone{
			Index:    i,
			Selector: s.Selector,
			YOffset:  offset,
			Height:   s.EstimatedHeight,
			Type:     s.Role,
			Content:  s.Text,
		}
		offset += s.EstimatedHeight
	}
	return zones, offset
}

var roleBonus = map[domain.ZoneType]float64{
	domain.ZoneHero:    25,
	domain.ZoneCTA:     18,
	domain.ZoneForm:    12,
	domain.ZoneHeading: 8,
	domain.ZoneNav:     -5,
	domain.ZoneFooter:  -10,
}

func attentionScore(s structure.Section, z domain.Zone, reach float64) int {
	score := reach*0.6 + roleBonus[z.Type]
	if z.YOffset < domain.ViewportHeight {
		score += 12
	}
	if s.Images > 0 {
		score += 6
	}
	if s.Headings > 0 {
		score += 4
	}
	if s.HasCTA {
		score += 8
	}
	if s.HasForm {
		score += 5
	}
	if s.TextLength < 20 && s.Images == 0 {
		score -= 10
	}
	return clampInt(int(roundHalfUp(score)), minReach, maxReach)
}

// attentionDeciles samples the zone under each decile midpoint.
func attentionDeciles(zones []domain.Zone, pageHeight int) domain.AttentionVector {
	var out domain.AttentionVector
	if pageHeight <= 0 || len(zones) == 0 {
		return out
	}
	for i := range out {
		y := pageHeight * (i*10 + 5) / 100
		idx := sort.Search(len(zones), func(j int) bool {
			return zones[j].YOffset+zones[j].Height > y
		})
		if idx == len(zones) {
			idx = len(zones) - 1
		}
		out[i] = float64(zones[idx].AttentionScore)
	}
	return out
}

func (e *Estimator) clickTargets(sections []structure.Section, zones []domain.Zone, curve []domain.ScrollDepthPoint, pageHeight int) ([]domain.ClickTarget, []domain.ClickMapCell) {
	type placed struct {
		target   domain.ClickTarget
		x        int
		selector string
	}
	var all []placed
	index := 0
	for i, s := range sections {
		zone := zones[i]
		for _, c := range s.Clickables {
			y := zone.YOffset + PseudoPosition(index, c.Label, zone.Height)
			t := domain.ClickTarget{
				Label:     c.Label,
				Href:      c.Href,
				Type:      targetType(c, zone.Type),
				YPosition: y,
				AboveFold: y < domain.ViewportHeight,
			}
			t.Prominence = prominence(c, t, zone.Type, ReachAt(curve, depthPercent(y, pageHeight)))
			all = append(all, placed{target: t, x: pseudoColumn(index, c.Label), selector: c.Selector})
			index++
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].target.Prominence > all[j].target.Prominence
	})

	grid := domain.NewClickGrid()
	for _, p := range all {
		grid.Add(p.x, p.target.YPosition, p.target.Prominence, p.selector)
	}

	if len(all) > e.maxTargets {
		all = all[:e.maxTargets]
	}
	targets := make([]domain.ClickTarget, len(all))
	for i, p := range all {
		targets[i] = p.target
	}
	return targets, grid.Cells(maxClickCells)
}

func targetType(c structure.Clickable, zone domain.ZoneType) domain.ClickTargetType {
	switch {
	case c.CTA:
		return domain.TargetButton
	case zone == domain.ZoneNav:
		return domain.TargetNavLink
	case c.HasImage:
		return domain.TargetImageLink
	default:
		return domain.TargetLink
	}
}

func prominence(c structure.Clickable, t domain.ClickTarget, zone domain.ZoneType, reach float64) int {
	score := 25.0
	if c.CTA {
		score += 45
	}
	if t.Type == domain.TargetNavLink {
		score += 15
	}
	if zone == domain.ZoneFooter {
		score -= 15
	}
	score += reach * 0.2
	if n := len([]rune(c.Label)); n >= 3 && n <= 30 {
		score += 5
	}
	return clampInt(int(roundHalfUp(score)), minReach, maxReach)
}

func depthPercent(y, pageHeight int) float64 {
	if pageHeight <= 0 {
		return 0
	}
	return float64(y) / float64(pageHeight) * 100
}

func round1(v float64) float64 {
	return roundHalfUp(v*10) / 10
}
