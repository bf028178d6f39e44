package structure

import (
	"strings"
	"testing"

	"github.com/splax/heatlens/internal/domain"
)

const landingPage = `<!doctype html><html><head><title>x</title><script>var a = 1;</script></head><body>
<nav><a href="/">Home</a><a href="/pricing">Pricing</a></nav>
<header><h1>Welcome aboard</h1><a class="btn" href="/signup">Start free trial</a></header>
<section id="signup"><form><input name="email"><input name="name"><input type="hidden" name="t"><button>Join</button></form></section>
<footer><a href="/terms">Terms</a></footer>
</body></html>`

func TestParseClassifiesSections(t *testing.T) {
	page := Parse(strings.NewReader(landingPage), "https://example.com/")
	if page.Fallback {
		t.Fatal("expected detected sections, got fallback")
	}
	want := []domain.ZoneType{domain.ZoneNav, domain.ZoneHero, domain.ZoneForm, domain.ZoneFooter}
	if len(page.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(page.Sections))
	}
	for i, role := range want {
		if page.Sections[i].Role != role {
			t.Fatalf("section %d: expected role %s, got %s", i, role, page.Sections[i].Role)
		}
		if page.Sections[i].Index != i {
			t.Fatalf("section %d: unexpected index %d", i, page.Sections[i].Index)
		}
	}
	form := page.Sections[2]
	if form.FormFields != 2 || !form.HasForm {
		t.Fatalf("expected two visible form fields, got %+v", form)
	}
	if form.Selector != "body > section#signup" {
		t.Fatalf("unexpected selector %q", form.Selector)
	}

	f := page.Flags
	if !f.HasHero || !f.HasNav || !f.HasForm || !f.HasCTA {
		t.Fatalf("unexpected flags: %+v", f)
	}
	if f.H1Count != 1 || f.SectionCount != 4 || f.LinkCount != 4 {
		t.Fatalf("unexpected counts: %+v", f)
	}
}

func TestParseCollectsClickables(t *testing.T) {
	page := Parse(strings.NewReader(landingPage), "")
	hero := page.Sections[1]
	if len(hero.Clickables) != 1 {
		t.Fatalf("expected one hero clickable, got %d", len(hero.Clickables))
	}
	c := hero.Clickables[0]
	if c.Label != "Start free trial" || c.Href != "/signup" || !c.CTA {
		t.Fatalf("unexpected clickable: %+v", c)
	}
	if page.Sections[0].Clickables[0].CTA {
		t.Fatal("plain nav link must not be a CTA")
	}
}

func TestParseFallsBackWithoutContainers(t *testing.T) {
	page := Parse(strings.NewReader(`<html><body><div><h1>Only</h1><p>Some plain body text here.</p><a href="/x">Go</a></div></body></html>`), "")
	if !page.Fallback {
		t.Fatal("expected fallback sections")
	}
	if len(page.Sections) != 3 {
		t.Fatalf("expected three fallback sections, got %d", len(page.Sections))
	}
	if page.Sections[0].Role != domain.ZoneOther || page.Sections[2].Role != domain.ZoneFooter {
		t.Fatalf("unexpected fallback roles: %s, %s", page.Sections[0].Role, page.Sections[2].Role)
	}
	if page.Flags.HasHero {
		t.Fatal("fallback header must not count as a hero")
	}
	if page.Flags.SectionCount != 0 {
		t.Fatalf("synthesized zones must not count as sections, got %d", page.Flags.SectionCount)
	}
	if len(page.Sections[1].Clickables) != 1 {
		t.Fatalf("expected body clickables from the whole page, got %d", len(page.Sections[1].Clickables))
	}
}

func TestParseEmptyInputNeverYieldsZeroSections(t *testing.T) {
	for _, doc := range []string{"", "<<<not html", "<html></html>"} {
		page := Parse(strings.NewReader(doc), "")
		if len(page.Sections) == 0 {
			t.Fatalf("expected sections for %q", doc)
		}
	}
}

func TestParseDeduplicatesIdenticalContainers(t *testing.T) {
	doc := `<body><section class="feature" id="a"><p>First block of feature text.</p></section>
<section class="feature" id="a"><p>Duplicate block of feature text.</p></section>
<section><p>Anonymous one</p></section><section><p>Anonymous two</p></section></body>`
	page := Parse(strings.NewReader(doc), "")
	if len(page.Sections) != 3 {
		t.Fatalf("expected duplicate keyed section to be skipped, got %d sections", len(page.Sections))
	}
}

func TestParseDescendsIntoWrapperContainers(t *testing.T) {
	doc := `<body><main><section><h2>One</h2></section><section><h2>Two</h2></section></main></body>`
	page := Parse(strings.NewReader(doc), "")
	if len(page.Sections) != 2 {
		t.Fatalf("expected the wrapper to be transparent, got %d sections", len(page.Sections))
	}
	for _, s := range page.Sections {
		if !strings.HasPrefix(s.Selector, "body > main > section") {
			t.Fatalf("unexpected selector %q", s.Selector)
		}
	}
}

func TestEstimateHeightClamps(t *testing.T) {
	cases := []struct {
		name string
		in   counts
		want int
	}{
		{name: "empty clamps to minimum", in: counts{}, want: 120},
		{name: "text blocks round up", in: counts{textLen: 201}, want: 200},
		{name: "mixed content", in: counts{images: 1, headings: 1, listItems: 2, formFields: 1}, want: 80 + 300 + 48 + 64 + 56},
		{name: "huge clamps to maximum", in: counts{images: 20}, want: 3000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := estimateHeight(tc.in); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSampleTruncatesWithoutEscaping(t *testing.T) {
	got := sample(strings.Repeat("a", 200), sampleLength)
	if len([]rune(got)) != sampleLength {
		t.Fatalf("expected %d runes, got %d", sampleLength, len([]rune(got)))
	}
	text := `Tom & Jerry say 1 < 2 and "quote" it's <b>fine</b>`
	if got := sample(text, sampleLength); got != text {
		t.Fatalf("expected text kept verbatim, got %q", got)
	}
}

func TestParseKeepsEntityTextInLabels(t *testing.T) {
	doc := `<html><body><section class="legal"><p>Tom &amp; Jerry say it&#39;s fine</p>
<a href="/terms">Terms &amp; Conditions</a>
<a href="/offer">&lt;b&gt;Bold&lt;/b&gt; offer</a>
<a href="/help" aria-label="Help &amp; <i>support</i>"></a></section></body></html>`
	page := Parse(strings.NewReader(doc), "")
	if page.Fallback || len(page.Sections) != 1 {
		t.Fatalf("expected one detected section, got %+v", page.Sections)
	}
	s := page.Sections[0]
	if !strings.HasPrefix(s.Text, "Tom & Jerry say it's fine") {
		t.Fatalf("unexpected text sample %q", s.Text)
	}
	want := []string{"Terms & Conditions", "<b>Bold</b> offer", "Help & support"}
	if len(s.Clickables) != len(want) {
		t.Fatalf("expected %d clickables, got %+v", len(want), s.Clickables)
	}
	for i, label := range want {
		if s.Clickables[i].Label != label {
			t.Fatalf("clickable %d: expected label %q, got %q", i, label, s.Clickables[i].Label)
		}
	}
}
