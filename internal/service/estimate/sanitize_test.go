package estimate

import (
	"strings"
	"testing"
)

func TestSanitizePreview(t *testing.T) {
	raw := `<html><head><base href="https://evil.example/"><script src="/x.js"></script></head>
<body onload="track()"><a href="/buy" onclick="go()" class="btn">Buy</a><script>alert(1)</script><img src="a.png" onerror="x()"></body></html>`
	out := SanitizePreview(raw, "https://shop.example.com/products/vase?x=1")
	if out == "" {
		t.Fatal("expected rendered preview")
	}
	lower := strings.ToLower(out)
	for _, banned := range []string{"<script", "onclick", "onload", "onerror", "evil.example"} {
		if strings.Contains(lower, banned) {
			t.Fatalf("preview still contains %q: %s", banned, out)
		}
	}
	if !strings.Contains(out, `<head><base href="https://shop.example.com/"/>`) {
		t.Fatalf("expected origin base as first head child: %s", out)
	}
	if !strings.Contains(out, "pointer-events: none") {
		t.Fatal("expected pointer-events css")
	}
	if !strings.Contains(out, `href="/buy"`) {
		t.Fatal("expected regular attributes to survive")
	}
}

func TestSanitizePreviewWithoutOrigin(t *testing.T) {
	out := SanitizePreview("<p>hello</p>", "not a url")
	if strings.Contains(out, "<base") {
		t.Fatalf("expected no base without an origin: %s", out)
	}
	if !strings.Contains(out, "<p>hello</p>") {
		t.Fatalf("expected body preserved: %s", out)
	}
}
