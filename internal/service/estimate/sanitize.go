package estimate

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const previewCSS = `* { pointer-events: none !important; cursor: default !important; }
html, body { overflow: hidden !important; scrollbar-width: none !important; }
::-webkit-scrollbar { display: none !important; }`

// SanitizePreview makes rawHTML safe to embed as a static visual preview: scripts and inline
// event handlers are removed, relative URLs resolve against the page origin, and pointer
// events and scrollbars are disabled. It returns "" if the document cannot be rendered.
func SanitizePreview(rawHTML, pageURL string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	strip(doc)

	head := findHead(doc)
	if head != nil {
		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: previewCSS})
		head.AppendChild(style)
		if origin := originOf(pageURL); origin != "" {
			base := &html.Node{
				Type:     html.ElementNode,
				Data:     "base",
				DataAtom: atom.Base,
				Attr:     []html.Attribute{{Key: "href", Val: origin + "/"}},
			}
			head.InsertBefore(base, head.FirstChild)
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return ""
	}
	return buf.String()
}

// strip removes script and base elements and on* attributes below n.
func strip(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Base) {
			n.RemoveChild(c)
			c = next
			continue
		}
		if c.Type == html.ElementNode {
			kept := c.Attr[:0]
			for _, a := range c.Attr {
				if strings.HasPrefix(strings.ToLower(a.Key), "on") {
					continue
				}
				kept = append(kept, a)
			}
			c.Attr = kept
		}
		strip(c)
		c = next
	}
}

func findHead(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Head {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := findHead(c); h != nil {
			return h
		}
	}
	return nil
}

func originOf(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
