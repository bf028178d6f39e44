package postgres

import (
	"math"
	"strconv"
	"strings"

	"github.com/splax/heatlens/internal/domain"
)

// ParseZones decodes a stored zone-attention blob: ZoneCount comma separated numbers,
// optionally wrapped in brackets. Blobs of any other length, or holding non-finite
// values, report false.
func ParseZones(raw string) (domain.AttentionVector, bool) {
	var out domain.AttentionVector
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if strings.TrimSpace(raw) == "" {
		return out, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) != domain.ZoneCount {
		return out, false
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.AttentionVector{}, false
		}
		out[i] = v
	}
	return out, true
}
