package structure

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// plainTextPolicy strips every element from author-supplied attribute values.
func plainTextPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// counts are the content signals of one subtree.
type counts struct {
	text       string
	textLen    int
	words      int
	links      int
	images     int
	headings   int
	h1         int
	listItems  int
	formFields int
	forms      int
	ctas       int
	navs       int
	videos     int
}

func collect(root *html.Node) counts {
	var c counts
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strings.Join(strings.Fields(text), " "))
			}
			return
		case html.ElementNode:
			if skipped(n) {
				return
			}
			tally(&c, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	c.text = sb.String()
	c.textLen = utf8.RuneCountInString(c.text)
	c.words = len(strings.Fields(c.text))
	return c
}

func tally(c *counts, n *html.Node) {
	switch n.DataAtom {
	case atom.A:
		if attr(n, "href") != "" {
			c.links++
		}
	case atom.Img:
		c.images++
	case atom.H1:
		c.h1++
		c.headings++
	case atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.headings++
	case atom.Li:
		c.listItems++
	case atom.Select, atom.Textarea:
		c.formFields++
	case atom.Input:
		switch strings.ToLower(attr(n, "type")) {
		case "hidden", "submit", "button", "reset", "image":
		default:
			c.formFields++
		}
	case atom.Form:
		c.forms++
	case atom.Nav:
		c.navs++
	case atom.Video:
		c.videos++
	case atom.Iframe:
		src := strings.ToLower(attr(n, "src"))
		if strings.Contains(src, "youtube") || strings.Contains(src, "vimeo") || strings.Contains(src, "player") {
			c.videos++
		}
	}
	if isCTA(n) {
		c.ctas++
	}
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return true
	}
	return false
}

func isContainer(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Header, atom.Nav, atom.Main, atom.Section, atom.Article, atom.Aside, atom.Footer:
		return true
	}
	return classContains(n, "hero", "section")
}

// nestedContainers counts the outermost containers below n.
func nestedContainers(n *html.Node) int {
	total := 0
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || skipped(c) {
				continue
			}
			if isContainer(c) {
				total++
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return total
}

func isCTA(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button:
		return true
	case atom.Input:
		t := strings.ToLower(attr(n, "type"))
		return t == "submit" || t == "button"
	}
	if strings.EqualFold(attr(n, "role"), "button") {
		return true
	}
	return n.DataAtom == atom.A && classContains(n, "btn", "button", "cta")
}

func clickables(root *html.Node) []Clickable {
	var out []Clickable
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode || skipped(n) {
			return
		}
		if item, ok := clickable(n); ok {
			out = append(out, item)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func clickable(n *html.Node) (Clickable, bool) {
	button := isCTA(n)
	if n.DataAtom != atom.A && !button {
		return Clickable{}, false
	}
	if n.DataAtom == atom.A && !button && attr(n, "href") == "" {
		return Clickable{}, false
	}
	c := collect(n)
	label := c.text
	for _, key := range []string{"aria-label", "title", "value"} {
		if label != "" {
			break
		}
		label = attrText(n, key)
	}
	if label == "" && c.images > 0 {
		if img := findElement(n, atom.Img); img != nil {
			label = attrText(img, "alt")
		}
	}
	if label == "" {
		return Clickable{}, false
	}
	return Clickable{
		Label:    sample(label, labelLength),
		Href:     attr(n, "href"),
		Selector: simpleSelector(n),
		CTA:      button,
		HasImage: c.images > 0,
	}, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// classContains reports whether any class token contains one of the fragments.
func classContains(n *html.Node, fragments ...string) bool {
	for _, token := range strings.Fields(strings.ToLower(attr(n, "class"))) {
		for _, f := range fragments {
			if strings.Contains(token, f) {
				return true
			}
		}
	}
	return false
}

func simpleSelector(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Data)
	if id := attr(n, "id"); id != "" {
		sb.WriteByte('#')
		sb.WriteString(id)
	}
	classes := strings.Fields(attr(n, "class"))
	if len(classes) > 2 {
		classes = classes[:2]
	}
	for _, cls := range classes {
		sb.WriteByte('.')
		sb.WriteString(cls)
	}
	return sb.String()
}

// selectorPath describes n by its element chain below <body>.
func selectorPath(n *html.Node) string {
	var parts []string
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if p.DataAtom == atom.Body || p.DataAtom == atom.Html {
			parts = append(parts, "body")
			break
		}
		parts = append(parts, simpleSelector(p))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// sample truncates text to limit runes. Text node content is already unescaped
// plain text and is kept as is.
func sample(text string, limit int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:limit]))
	}
	return text
}

// attrText reads an attribute as plain text with any embedded markup removed.
func attrText(n *html.Node, key string) string {
	v := strings.TrimSpace(attr(n, key))
	if v == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy().Sanitize(v)))
}
