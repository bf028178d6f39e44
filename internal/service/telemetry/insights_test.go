package telemetry

import (
	"reflect"
	"testing"

	"github.com/splax/heatlens/internal/domain"
)

func views(n int, path string, depth int) []domain.Pageview {
	out := make([]domain.Pageview, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Pageview{
			SessionID: "s",
			Path:      path,
			Scrolls:   []domain.ScrollRecord{{MaxDepth: depth}},
		})
	}
	return out
}

func TestGenerateInsightsNoChange(t *testing.T) {
	insights, summary := GenerateInsights(nil, nil)
	if insights == nil || len(insights) != 0 {
		t.Fatalf("expected empty insight list, got %#v", insights)
	}
	if summary != "no notable change" {
		t.Fatalf("unexpected summary %q", summary)
	}

	insights, summary = GenerateInsights(views(3, "/", 50), views(3, "/", 50))
	if len(insights) != 0 || summary != "no notable change" {
		t.Fatalf("expected stable windows to be quiet, got %+v %q", insights, summary)
	}
}

func TestGenerateInsightsPageviewDrop(t *testing.T) {
	previous := make([]domain.Pageview, 100)
	current := make([]domain.Pageview, 50)

	insights, summary := GenerateInsights(current, previous)
	if len(insights) != 1 {
		t.Fatalf("expected one insight, got %+v", insights)
	}
	in := insights[0]
	if in.Type != domain.InsightPVTrend || in.Severity != domain.InsightCritical || in.Change != -50 {
		t.Fatalf("unexpected pv insight %+v", in)
	}
	if summary != "PV -50.0%, 1 critical" {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestGenerateInsightsPageviewGrowthIsInfo(t *testing.T) {
	insights, _ := GenerateInsights(make([]domain.Pageview, 12), make([]domain.Pageview, 10))
	if len(insights) != 1 || insights[0].Severity != domain.InsightInfo || insights[0].Change != 20 {
		t.Fatalf("unexpected growth insight %+v", insights)
	}
}

func TestGenerateInsightsFirstViewHotspots(t *testing.T) {
	current := append(views(5, "/pricing", 10), views(2, "/about", 80)...)
	current = append(current, views(3, "/about", 5)...)
	current = append(current, views(4, "/rare", 0)...)

	insights, _ := GenerateInsights(current, current)
	var hotspots []domain.Insight
	for _, in := range insights {
		if in.Type == domain.InsightFVExitHotspot {
			hotspots = append(hotspots, in)
		}
	}
	if len(hotspots) != 2 {
		t.Fatalf("expected two hotspots, got %+v", hotspots)
	}
	if hotspots[0].Path != "/pricing" || hotspots[0].Severity != domain.InsightCritical || hotspots[0].Value != 100 {
		t.Fatalf("unexpected first hotspot %+v", hotspots[0])
	}
	if hotspots[1].Path != "/about" || hotspots[1].Severity != domain.InsightWarning || hotspots[1].Value != 60 {
		t.Fatalf("unexpected second hotspot %+v", hotspots[1])
	}
}

func TestGenerateInsightsRageHotspot(t *testing.T) {
	clicks := []domain.ClickRecord{
		{Selector: "#buy", IsRage: true},
		{Selector: "#buy", IsRage: true},
		{Selector: "#buy", IsRage: true},
		{Selector: "#menu", IsRage: true},
		{Selector: "#menu", IsRage: true},
		{Selector: "#z", IsRage: true},
		{Selector: "#a", IsRage: true},
		{Selector: "#calm"},
	}
	current := []domain.Pageview{{SessionID: "s", Path: "/", Clicks: clicks}}
	previous := []domain.Pageview{{SessionID: "s", Path: "/"}}

	insights, summary := GenerateInsights(current, previous)
	if len(insights) != 1 {
		t.Fatalf("expected one insight, got %+v", insights)
	}
	in := insights[0]
	if in.Type != domain.InsightRageClickHotspot || in.Severity != domain.InsightWarning || in.Value != 7 {
		t.Fatalf("unexpected rage insight %+v", in)
	}
	if want := []string{"#buy", "#menu", "#a"}; !reflect.DeepEqual(in.Selectors, want) {
		t.Fatalf("expected selectors %v, got %v", want, in.Selectors)
	}
	if summary != "1 warning" {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestGenerateInsightsAttentionCollapse(t *testing.T) {
	z := domain.AttentionVector{100, 100, 100, 10, 10, 10, 10, 0, 0, 0}
	var records []domain.Pageview
	for i := 0; i < 10; i++ {
		records = append(records, domain.Pageview{
			SessionID: "s",
			Path:      "/",
			Scrolls:   []domain.ScrollRecord{{MaxDepth: 40, Zones: &z}},
		})
	}

	insights, _ := GenerateInsights(records, records)
	if len(insights) != 1 || insights[0].Type != domain.InsightAttentionCollapse {
		t.Fatalf("expected attention collapse, got %+v", insights)
	}
	if insights[0].Value != 0.1 || insights[0].Severity != domain.InsightWarning {
		t.Fatalf("unexpected collapse insight %+v", insights[0])
	}

	insights, _ = GenerateInsights(records[:9], records[:9])
	if len(insights) != 0 {
		t.Fatalf("expected no collapse below the sample floor, got %+v", insights)
	}
}

func dwellViews(n, dwellMs int) []domain.Pageview {
	out := views(n, "/", 50)
	for i := range out {
		out[i].Scrolls[0].DwellMs = int64(dwellMs)
	}
	return out
}

func onlyInsight(t *testing.T, insights []domain.Insight, kind string) (domain.Insight, bool) {
	t.Helper()
	var found []domain.Insight
	for _, in := range insights {
		if in.Type == kind {
			found = append(found, in)
		}
	}
	if len(found) > 1 {
		t.Fatalf("expected at most one %s insight, got %+v", kind, found)
	}
	if len(found) == 0 {
		return domain.Insight{}, false
	}
	return found[0], true
}

func TestGenerateInsightsDwellTrendThresholds(t *testing.T) {
	cases := []struct {
		name     string
		prev     int
		cur      int
		fires    bool
		severity domain.InsightSeverity
		change   float64
	}{
		{name: "small growth stays quiet", prev: 1000, cur: 1149},
		{name: "small drop stays quiet", prev: 1000, cur: 851},
		{name: "growth at threshold", prev: 1000, cur: 1150, fires: true, severity: domain.InsightInfo, change: 15},
		{name: "drop at threshold", prev: 1000, cur: 850, fires: true, severity: domain.InsightWarning, change: -15},
		{name: "drop at critical boundary", prev: 1000, cur: 750, fires: true, severity: domain.InsightWarning, change: -25},
		{name: "drop past critical boundary", prev: 1000, cur: 700, fires: true, severity: domain.InsightCritical, change: -30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			insights, _ := GenerateInsights(dwellViews(4, tc.cur), dwellViews(4, tc.prev))
			in, ok := onlyInsight(t, insights, domain.InsightDwellTrend)
			if ok != tc.fires {
				t.Fatalf("expected fires=%v, got %+v", tc.fires, insights)
			}
			if !tc.fires {
				return
			}
			if in.Severity != tc.severity || in.Change != tc.change || in.Value != float64(tc.cur) {
				t.Fatalf("unexpected dwell insight %+v", in)
			}
			if len(insights) != 1 {
				t.Fatalf("expected only the dwell insight, got %+v", insights)
			}
		})
	}
}

func TestGenerateInsightsScrollTrendThresholds(t *testing.T) {
	cases := []struct {
		name     string
		prev     int
		cur      int
		fires    bool
		severity domain.InsightSeverity
		change   float64
	}{
		{name: "small drop stays quiet", prev: 50, cur: 46},
		{name: "growth at threshold", prev: 50, cur: 55, fires: true, severity: domain.InsightInfo, change: 10},
		{name: "drop at warning boundary", prev: 50, cur: 40, fires: true, severity: domain.InsightInfo, change: -20},
		{name: "drop past warning boundary", prev: 50, cur: 35, fires: true, severity: domain.InsightWarning, change: -30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			insights, summary := GenerateInsights(views(4, "/", tc.cur), views(4, "/", tc.prev))
			in, ok := onlyInsight(t, insights, domain.InsightScrollTrend)
			if ok != tc.fires {
				t.Fatalf("expected fires=%v, got %+v", tc.fires, insights)
			}
			if !tc.fires {
				if summary != "no notable change" {
					t.Fatalf("unexpected summary %q", summary)
				}
				return
			}
			if in.Severity != tc.severity || in.Change != tc.change || in.Value != float64(tc.cur) {
				t.Fatalf("unexpected scroll insight %+v", in)
			}
		})
	}

	_, summary := GenerateInsights(views(4, "/", 35), views(4, "/", 50))
	if summary != "scroll depth -30.0%, 1 warning" {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestGenerateInsightsFirstViewThresholdsUseUnroundedRate(t *testing.T) {
	window := func(exits, total int) []domain.Pageview {
		return append(views(exits, "/x", 0), views(total-exits, "/x", 100)...)
	}
	cases := []struct {
		name     string
		exits    int
		fires    bool
		severity domain.InsightSeverity
		value    float64
	}{
		{name: "just below warning", exits: 1199},
		{name: "at warning", exits: 1200, fires: true, severity: domain.InsightWarning, value: 60},
		{name: "just below critical", exits: 1599, fires: true, severity: domain.InsightWarning, value: 80},
		{name: "at critical", exits: 1600, fires: true, severity: domain.InsightCritical, value: 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current := window(tc.exits, 2000)
			insights, _ := GenerateInsights(current, current)
			in, ok := onlyInsight(t, insights, domain.InsightFVExitHotspot)
			if ok != tc.fires {
				t.Fatalf("expected fires=%v, got %+v", tc.fires, insights)
			}
			if tc.fires && (in.Severity != tc.severity || in.Value != tc.value) {
				t.Fatalf("unexpected hotspot %+v", in)
			}
		})
	}
}
