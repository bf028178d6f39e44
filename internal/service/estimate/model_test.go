package estimate

import (
	"math"
	"testing"

	"github.com/splax/heatlens/internal/domain"
)

func TestEngagementBonusesAndClamp(t *testing.T) {
	cases := []struct {
		name  string
		flags domain.StructureFlags
		want  float64
	}{
		{name: "thin page clamps at zero", flags: domain.StructureFlags{WordCount: 10}, want: 0},
		{name: "rich page", flags: domain.StructureFlags{ImageCount: 5, HeadingCount: 5, SectionCount: 6, HasCTA: true, HasForm: true, HasVideo: true, WordCount: 800}, want: 0.8},
		{name: "mid page", flags: domain.StructureFlags{ImageCount: 2, HeadingCount: 3, SectionCount: 3, WordCount: 400}, want: 0.3},
		{name: "very long text", flags: domain.StructureFlags{ImageCount: 1, HeadingCount: 1, WordCount: 4000}, want: 0.05},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Engagement(tc.flags); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %.2f, got %.4f", tc.want, got)
			}
		})
	}
}

func TestDecayCurveShape(t *testing.T) {
	for _, height := range []int{0, 900, 2700, 9000, 30000} {
		for _, e := range []float64{0, 0.5, 1} {
			curve := DecayCurve(height, e)
			if len(curve) != len(domain.ScrollMilestones) {
				t.Fatalf("expected %d points", len(domain.ScrollMilestones))
			}
			if curve[0].Reach != 100 {
				t.Fatalf("reach at depth 0 must be 100, got %d", curve[0].Reach)
			}
			for i, p := range curve {
				if p.Reach < 3 || p.Reach > 100 {
					t.Fatalf("reach out of range at %d: %d", p.Depth, p.Reach)
				}
				if i > 0 && p.Reach > curve[i-1].Reach {
					t.Fatalf("curve increases at depth %d (h=%d e=%.1f)", p.Depth, height, e)
				}
			}
		}
	}
}

func TestDecayCurveKnownValues(t *testing.T) {
	curve := DecayCurve(900, 0)
	// lambda = 2.1: 100*e^-0.21 = 81.06, 100*e^-1.05 = 34.99, 100*e^-2.1 = 12.25
	want := map[int]int{10: 81, 50: 35, 100: 12}
	for _, p := range curve {
		if w, ok := want[p.Depth]; ok && p.Reach != w {
			t.Fatalf("depth %d: expected %d, got %d", p.Depth, w, p.Reach)
		}
	}
}

func TestEngagementRaisesMidPageReach(t *testing.T) {
	for _, height := range []int{600, 1800, 5400} {
		low := ReachAt(DecayCurve(height, 0), 50)
		high := ReachAt(DecayCurve(height, 1), 50)
		if low > high {
			t.Fatalf("height %d: reach@50 with engagement 0 (%.1f) exceeds engagement 1 (%.1f)", height, low, high)
		}
	}
}

func TestReachAtInterpolates(t *testing.T) {
	curve := []domain.ScrollDepthPoint{{Depth: 0, Reach: 100}, {Depth: 10, Reach: 80}, {Depth: 25, Reach: 50}}
	cases := map[float64]float64{-5: 100, 0: 100, 5: 90, 10: 80, 20: 60, 25: 50, 80: 50}
	for depth, want := range cases {
		if got := ReachAt(curve, depth); math.Abs(got-want) > 1e-9 {
			t.Fatalf("depth %.0f: expected %.1f, got %.4f", depth, want, got)
		}
	}
	if ReachAt(nil, 50) != 0 {
		t.Fatal("empty curve must read zero")
	}
}

func TestLabelHashAndPseudoPosition(t *testing.T) {
	if got := LabelHash(""); got != 0 {
		t.Fatalf("empty hash: %d", got)
	}
	if got := LabelHash("a"); got != 97 {
		t.Fatalf("hash(a): %d", got)
	}
	if got := LabelHash("ab"); got != 3105 {
		t.Fatalf("hash(ab): %d", got)
	}
	// "Hello" matches the classic 31-multiplier string hash.
	if got := LabelHash("Hello"); got != 69609650 {
		t.Fatalf("hash(Hello): %d", got)
	}
	if got := PseudoPosition(0, "a", 100); got != 97 {
		t.Fatalf("position(0,a,100): %d", got)
	}
	if got := PseudoPosition(1, "ab", 200); got != 84 {
		t.Fatalf("position(1,ab,200): %d", got)
	}
	long := "a label long enough to overflow the thirty-two bit accumulator"
	for i := 0; i < 50; i++ {
		if p := PseudoPosition(i, long, 300); p < 0 || p >= 300 {
			t.Fatalf("position %d outside zone: %d", i, p)
		}
	}
}
