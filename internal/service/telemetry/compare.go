package telemetry

import (
	"math"

	"github.com/splax/heatlens/internal/domain"
)

// ChangePercent is the signed change from a to b in percent, to one decimal place.
// From zero it reports 100 when b grew and 0 otherwise.
func ChangePercent(a, b float64) float64 {
	if a == 0 {
		if b > 0 {
			return 100
		}
		return 0
	}
	return math.Floor((b-a)/math.Abs(a)*1000+0.5) / 10
}

// CompareSnapshots computes the fixed change set from period A to period B.
func CompareSnapshots(a, b domain.HeatmapSnapshot) domain.Comparison {
	return domain.Comparison{
		PeriodA: a,
		PeriodB: b,
		Changes: domain.Changes{
			PV:              ChangePercent(float64(a.TotalPV), float64(b.TotalPV)),
			UniqueSessions:  ChangePercent(float64(a.UniqueSessions), float64(b.UniqueSessions)),
			AvgDwell:        ChangePercent(a.AvgDwellMs, b.AvgDwellMs),
			FVExitRate:      ChangePercent(a.FVExitRate, b.FVExitRate),
			BottomReachRate: ChangePercent(a.BottomReachRate, b.BottomReachRate),
		},
	}
}
