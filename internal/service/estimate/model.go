package estimate

import (
	"math"
	"unicode/utf16"

	"github.com/splax/heatlens/internal/domain"
)

const (
	minReach = 3
	maxReach = 100
)

// Engagement scores how likely a page is to hold a visitor, in [0,1].
func Engagement(f domain.StructureFlags) float64 {
	score := 0.0
	switch {
	case f.ImageCount >= 5:
		score += 0.15
	case f.ImageCount >= 2:
		score += 0.10
	case f.ImageCount >= 1:
		score += 0.05
	}
	switch {
	case f.HeadingCount >= 5:
		score += 0.15
	case f.HeadingCount >= 3:
		score += 0.10
	case f.HeadingCount >= 1:
		score += 0.05
	}
	switch {
	case f.SectionCount >= 6:
		score += 0.15
	case f.SectionCount >= 3:
		score += 0.10
	}
	if f.HasCTA {
		score += 0.10
	}
	if f.HasForm {
		score += 0.10
	}
	if f.HasVideo {
		score += 0.15
	}
	switch {
	case f.WordCount < 100:
		score -= 0.10
	case f.WordCount > 3000:
		score -= 0.05
	}
	return clampFloat(score, 0, 1)
}

// DecayCurve models scroll reach as a single exponential decay whose rate grows with page
// length and shrinks with engagement.
func DecayCurve(pageHeight int, engagement float64) []domain.ScrollDepthPoint {
	screens := float64(pageHeight) / domain.ViewportHeight
	lambda := (1.8 + screens*0.3) * (1 - clampFloat(engagement, 0, 1)*0.5)
	curve := make([]domain.ScrollDepthPoint, 0, len(domain.ScrollMilestones))
	for _, depth := range domain.ScrollMilestones {
		reach := roundHalfUp(100 * math.Exp(-lambda*float64(depth)/100))
		curve = append(curve, domain.ScrollDepthPoint{
			Depth: depth,
			Reach: clampInt(int(reach), minReach, maxReach),
		})
	}
	return curve
}

// ReachAt linearly interpolates the curve at depth (percent).
func ReachAt(curve []domain.ScrollDepthPoint, depth float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	if depth <= float64(curve[0].Depth) {
		return float64(curve[0].Reach)
	}
	for i := 1; i < len(curve); i++ {
		lo, hi := curve[i-1], curve[i]
		if depth > float64(hi.Depth) {
			continue
		}
		span := float64(hi.Depth - lo.Depth)
		if span == 0 {
			return float64(hi.Reach)
		}
		t := (depth - float64(lo.Depth)) / span
		return float64(lo.Reach) + t*float64(hi.Reach-lo.Reach)
	}
	return float64(curve[len(curve)-1].Reach)
}

// LabelHash is the 31-multiplier rolling hash over the UTF-16 code units of s,
// wrapping at 32 bits.
func LabelHash(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(unit)
	}
	return h
}

// PseudoPosition places the index-th clickable inside a zone of zoneHeight pixels.
// It looks scattered but is fully reproducible for the same label and index.
func PseudoPosition(index int, label string, zoneHeight int) int {
	slot := (int64(index)*137 + absHash(label)) % 100
	return int(slot * int64(zoneHeight) / 100)
}

// pseudoColumn spreads estimated clicks horizontally across the layout width.
func pseudoColumn(index int, label string) int {
	slot := (absHash(label) + int64(index)*71) % 100
	return int(slot * domain.ViewportWidth / 100)
}

func absHash(label string) int64 {
	h := int64(LabelHash(label))
	if h < 0 {
		h = -h
	}
	return h
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
