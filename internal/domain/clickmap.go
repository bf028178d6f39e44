package domain

import "sort"

type cellKey struct{ x, y int }

type cellTally struct {
	count     int
	selectors map[string]int
}

// ClickGrid accumulates clicks into GridSize cells with a per-cell selector tally.
type ClickGrid struct {
	cells map[cellKey]*cellTally
}

// NewClickGrid returns an empty grid.
func NewClickGrid() *ClickGrid {
	return &ClickGrid{cells: make(map[cellKey]*cellTally)}
}

// Add records weight clicks at (x, y) attributed to selector.
func (g *ClickGrid) Add(x, y, weight int, selector string) {
	if weight <= 0 {
		return
	}
	key := cellKey{x: CellCenter(x), y: CellCenter(y)}
	cell := g.cells[key]
	if cell == nil {
		cell = &cellTally{selectors: make(map[string]int)}
		g.cells[key] = cell
	}
	cell.count += weight
	if selector != "" {
		cell.selectors[selector] += weight
	}
}

// Cells returns up to limit cells ordered by count, busiest first. Ties are ordered top to
// bottom, then left to right.
func (g *ClickGrid) Cells(limit int) []ClickMapCell {
	out := make([]ClickMapCell, 0, len(g.cells))
	for key, cell := range g.cells {
		out = append(out, ClickMapCell{
			X:           key.x,
			Y:           key.y,
			Count:       cell.count,
			TopSelector: topSelector(cell.selectors),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topSelector(tally map[string]int) string {
	best, bestCount := "", 0
	for selector, count := range tally {
		if count > bestCount || (count == bestCount && selector < best) {
			best, bestCount = selector, count
		}
	}
	return best
}
