// Package structure derives an ordered list of layout sections from a parsed HTML document.
package structure

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/splax/heatlens/internal/domain"
)

const (
	baseHeight      = 80
	lineBlockHeight = 60
	charsPerBlock   = 200
	imageHeight     = 300
	headingHeight   = 48
	listItemHeight  = 32
	formFieldHeight = 56
	minHeight       = 120
	maxHeight       = 3000

	sampleLength = 120
	labelLength  = 80
)

// Section is one detected container with an estimated (unpositioned) height.
type Section struct {
	Index           int
	Selector        string
	Role            domain.ZoneType
	EstimatedHeight int
	Text            string
	TextLength      int
	Links           int
	Images          int
	Headings        int
	ListItems       int
	FormFields      int
	HasForm         bool
	HasCTA          bool
	Clickables      []Clickable
}

// Clickable is an anchor or button found inside a section, in document order.
type Clickable struct {
	Label    string
	Href     string
	Selector string
	CTA      bool
	HasImage bool
}

// Page is the structural model of a single document.
type Page struct {
	URL      string
	Sections []Section
	Flags    domain.StructureFlags
	Fallback bool
}

// Parse reads and analyses an HTML document. Unreadable input degrades to the fallback model.
func Parse(r io.Reader, pageURL string) Page {
	doc, err := html.Parse(r)
	if err != nil {
		return Analyze(nil, pageURL)
	}
	return Analyze(doc, pageURL)
}

// Analyze builds the section list for doc. A nil doc yields the three-zone fallback.
func Analyze(doc *html.Node, pageURL string) Page {
	page := Page{URL: pageURL}
	root := findElement(doc, atom.Body)
	if root == nil {
		root = doc
	}

	var whole counts
	if root != nil {
		whole = collect(root)
	}

	if root != nil {
		w := &walker{seen: make(map[string]struct{})}
		w.visit(root)
		page.Sections = w.sections
	}
	if len(page.Sections) == 0 {
		page.Sections = fallbackSections(root, whole)
		page.Fallback = true
	}

	detected := len(page.Sections)
	if page.Fallback {
		detected = 0
	}
	page.Flags = domain.StructureFlags{
		HasCTA:       whole.ctas > 0,
		HasForm:      whole.forms > 0,
		HasNav:       whole.navs > 0,
		HasVideo:     whole.videos > 0,
		ImageCount:   whole.images,
		LinkCount:    whole.links,
		WordCount:    whole.words,
		SectionCount: detected,
		HeadingCount: whole.headings,
		H1Count:      whole.h1,
	}
	for _, s := range page.Sections {
		switch s.Role {
		case domain.ZoneHero:
			page.Flags.HasHero = true
		case domain.ZoneNav:
			page.Flags.HasNav = true
		}
	}
	return page
}

type walker struct {
	seen       map[string]struct{}
	sections   []Section
	headerSeen bool
}

func (w *walker) visit(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || skipped(c) {
			continue
		}
		if !isContainer(c) {
			w.visit(c)
			continue
		}
		if nestedContainers(c) >= 2 {
			w.visit(c)
			continue
		}
		w.add(c)
	}
}

func (w *walker) add(n *html.Node) {
	class := attr(n, "class")
	id := attr(n, "id")
	if class != "" || id != "" {
		key := n.Data + "|" + class + "|" + id
		if _, dup := w.seen[key]; dup {
			return
		}
		w.seen[key] = struct{}{}
	}

	c := collect(n)
	firstHeader := false
	if n.DataAtom == atom.Header && !w.headerSeen {
		firstHeader = true
		w.headerSeen = true
	}
	w.sections = append(w.sections, Section{
		Index:           len(w.sections),
		Selector:        selectorPath(n),
		Role:            classify(n, c, firstHeader),
		EstimatedHeight: estimateHeight(c),
		Text:            sample(c.text, sampleLength),
		TextLength:      c.textLen,
		Links:           c.links,
		Images:          c.images,
		Headings:        c.headings,
		ListItems:       c.listItems,
		FormFields:      c.formFields,
		HasForm:         c.forms > 0 || c.formFields >= 2,
		HasCTA:          c.ctas > 0,
		Clickables:      clickables(n),
	})
}

// classify assigns one role by priority: nav, hero, footer, form, cta, image, heading, text, other.
func classify(n *html.Node, c counts, firstHeader bool) domain.ZoneType {
	role := strings.ToLower(attr(n, "role"))
	switch {
	case n.DataAtom == atom.Nav || role == "navigation" || classContains(n, "nav", "menu"):
		return domain.ZoneNav
	case firstHeader || classContains(n, "hero", "banner", "jumbotron"):
		return domain.ZoneHero
	case n.DataAtom == atom.Footer || role == "contentinfo" || classContains(n, "footer"):
		return domain.ZoneFooter
	}
	return classifyContent(c)
}

func classifyContent(c counts) domain.ZoneType {
	switch {
	case c.forms > 0 || c.formFields >= 2:
		return domain.ZoneForm
	case c.ctas > 0:
		return domain.ZoneCTA
	case c.images > 0 && c.textLen < 100:
		return domain.ZoneImage
	case c.headings > 0:
		return domain.ZoneHeading
	case c.textLen >= 40:
		return domain.ZoneText
	default:
		return domain.ZoneOther
	}
}

// estimateHeight approximates the rendered pixel height of a region from its content counts.
func estimateHeight(c counts) int {
	blocks := (c.textLen + charsPerBlock - 1) / charsPerBlock
	h := baseHeight +
		blocks*lineBlockHeight +
		c.images*imageHeight +
		c.headings*headingHeight +
		c.listItems*listItemHeight +
		c.formFields*formFieldHeight
	if h < minHeight {
		return minHeight
	}
	if h > maxHeight {
		return maxHeight
	}
	return h
}

func fallbackSections(root *html.Node, whole counts) []Section {
	header := counts{headings: min(whole.h1, 1)}
	sections := []Section{
		{
			Selector:        "body > header",
			Role:            domain.ZoneOther,
			EstimatedHeight: estimateHeight(header),
			Headings:        header.headings,
		},
		{
			Selector:        "body",
			Role:            classifyContent(whole),
			EstimatedHeight: estimateHeight(whole),
			Text:            sample(whole.text, sampleLength),
			TextLength:      whole.textLen,
			Links:           whole.links,
			Images:          whole.images,
			Headings:        whole.headings,
			ListItems:       whole.listItems,
			FormFields:      whole.formFields,
			HasForm:         whole.forms > 0 || whole.formFields >= 2,
			HasCTA:          whole.ctas > 0,
		},
		{
			Selector:        "body > footer",
			Role:            domain.ZoneFooter,
			EstimatedHeight: minHeight,
		},
	}
	if root != nil {
		sections[1].Clickables = clickables(root)
	}
	for i := range sections {
		sections[i].Index = i
	}
	return sections
}
