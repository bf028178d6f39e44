package telemetry

import (
	"math"
	"sort"

	"github.com/splax/heatlens/internal/domain"
)

const defaultClickCells = 200

// sampleSet gathers the per-scroll-record observations of one aggregation.
type sampleSet struct {
	depths   []int
	dwells   []float64
	zoneSum  domain.AttentionVector
	zoneRows int
}

func (s *sampleSet) add(r domain.ScrollRecord) {
	s.depths = append(s.depths, clampDepth(r.MaxDepth))
	if r.DwellMs > 0 {
		s.dwells = append(s.dwells, float64(r.DwellMs))
	}
	if r.Zones != nil {
		for i, v := range r.Zones {
			s.zoneSum[i] += v
		}
		s.zoneRows++
	}
}

// share returns the percentage of depth samples satisfying keep.
func (s *sampleSet) share(keep func(depth int) bool) float64 {
	if len(s.depths) == 0 {
		return 0
	}
	n := 0
	for _, d := range s.depths {
		if keep(d) {
			n++
		}
	}
	return float64(n) / float64(len(s.depths)) * 100
}

// Aggregate reduces raw pageviews into a snapshot. Zero records yield the all-zero snapshot.
func Aggregate(records []domain.Pageview, maxCells int) domain.HeatmapSnapshot {
	if len(records) == 0 {
		return domain.EmptySnapshot()
	}
	if maxCells <= 0 {
		maxCells = defaultClickCells
	}

	sessions := make(map[string]struct{}, len(records))
	var samples sampleSet
	heightSum, heightN := 0, 0
	grid := domain.NewClickGrid()

	for _, pv := range records {
		if pv.SessionID != "" {
			sessions[pv.SessionID] = struct{}{}
		}
		if pv.PageHeight > 0 {
			heightSum += pv.PageHeight
			heightN++
		}
		for _, s := range pv.Scrolls {
			samples.add(s)
		}
		for _, c := range pv.Clicks {
			grid.Add(c.X, c.Y, 1, c.Selector)
		}
	}

	snap := domain.HeatmapSnapshot{
		TotalPV:         len(records),
		UniqueSessions:  len(sessions),
		AvgDwellMs:      math.Round(mean(samples.dwells)),
		MedianDwellMs:   median(samples.dwells),
		FVExitRate:      round1(samples.share(func(d int) bool { return d <= domain.FirstViewDepth })),
		BottomReachRate: round1(samples.share(func(d int) bool { return d >= domain.BottomDepth })),
		AttentionZones:  attention(&samples),
		ScrollDepth:     scrollCurve(&samples),
		ClickMap:        grid.Cells(maxCells),
	}
	if heightN > 0 {
		snap.AvgPageHeight = int(math.Round(float64(heightSum) / float64(heightN)))
	}
	return snap
}

func scrollCurve(s *sampleSet) []domain.ScrollDepthPoint {
	curve := make([]domain.ScrollDepthPoint, 0, len(domain.ScrollMilestones))
	if len(s.depths) == 0 {
		return curve
	}
	for _, m := range domain.ScrollMilestones {
		reach := s.share(func(d int) bool { return d >= m })
		curve = append(curve, domain.ScrollDepthPoint{Depth: m, Reach: int(math.Floor(reach + 0.5))})
	}
	return curve
}

// attention averages recorded zone vectors and scales them so the peak reads 100. Without
// zone data it falls back to the reach at each decile midpoint.
func attention(s *sampleSet) domain.AttentionVector {
	var out domain.AttentionVector
	if s.zoneRows > 0 {
		peak := 0.0
		for i, sum := range s.zoneSum {
			out[i] = sum / float64(s.zoneRows)
			peak = math.Max(peak, out[i])
		}
		if peak <= 0 {
			return domain.AttentionVector{}
		}
		for i := range out {
			out[i] = round1(math.Max(0, math.Min(100, out[i]/peak*100)))
		}
		return out
	}
	for i := range out {
		mid := i*10 + 5
		out[i] = round1(s.share(func(d int) bool { return d >= mid }))
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median returns the middle element of the sorted values (the upper one for even counts).
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func clampDepth(d int) int {
	if d < 0 {
		return 0
	}
	if d > 100 {
		return 100
	}
	return d
}

func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
