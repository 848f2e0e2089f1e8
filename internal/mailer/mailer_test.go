package mailer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// legacyContentCellDoc reproduces the previous template generation: the
// content cell is recognizable only by its padding signature and shares
// its cell with the CTA table. No comment markers.
func legacyContentCellDoc(fragment string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Old Campaign</title>
<style>body { background: #eee; }</style>
</head>
<body>
<table role="presentation" width="100%%"><tr><td align="center">
<table role="presentation" width="600">
<tr><td style="background:linear-gradient(135deg,#312e81,#6366f1);padding:24px;"><img src="https://cdn.example.com/logo.png" alt="logo"></td></tr>
<tr><td style="padding: 32px 40px 8px 40px; font-family: Arial;">
%s
<table class="cta-block"><tr><td><a href="https://example.com/go">Learn More</a></td></tr></table>
</td></tr>
<tr><td class="footer" style="padding:20px;">About us. &copy; 2021</td></tr>
</table>
</td></tr></table>
</body></html>`, fragment)
}

// legacyEditorClassDoc reproduces the oldest shape, which dropped the
// editor container into the document verbatim.
func legacyEditorClassDoc(fragment string) string {
	return fmt.Sprintf(`<html><head><title>Oldest Campaign</title></head>
<body>
<div class="header-banner">Logo here</div>
<div class="editor-content ql-editor">%s</div>
<div class="footer">Footer text</div>
</body></html>`, fragment)
}

func TestWrapProducesCompleteDocument(t *testing.T) {
	r := NewRenderer(Config{})
	doc := r.Wrap("<p>Hello <b>World</b></p>", "Spring Offers")

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>Spring Offers</title>")
	assert.Contains(t, doc, "<p>Hello <b>World</b></p>")
	assert.Contains(t, doc, ContentStartMarker)
	assert.Contains(t, doc, ContentEndMarker)
	assert.Contains(t, doc, `role="presentation"`)
	assert.Contains(t, doc, "cta-block")
	assert.Contains(t, doc, "All rights reserved")
	// Fragment appears exactly once
	assert.Equal(t, 1, strings.Count(doc, "<p>Hello <b>World</b></p>"))
}

func TestWrapUsesConfiguredChrome(t *testing.T) {
	r := NewRenderer(Config{
		CompanyName: "Acme Outreach",
		LogoURL:     "https://cdn.acme.test/logo.png",
		CTAURL:      "https://acme.test/claim",
		CTALabel:    "Claim Now",
	})
	doc := r.Wrap("<p>x</p>", "s")

	assert.Contains(t, doc, "https://cdn.acme.test/logo.png")
	assert.Contains(t, doc, `href="https://acme.test/claim"`)
	assert.Contains(t, doc, ">Claim Now</a>")
	assert.Contains(t, doc, "Acme Outreach")
}

func TestWrapTotalOverEmptyFragment(t *testing.T) {
	r := NewRenderer(Config{})
	doc := r.Wrap("", "Empty")
	assert.Contains(t, doc, ContentStartMarker)
	assert.Contains(t, doc, "<title>Empty</title>")
}

func TestWrapDoesNotRenderFragmentAsTemplate(t *testing.T) {
	r := NewRenderer(Config{})
	fragment := "<p>Dear {{ first_name }}, see {% raw %}</p>"
	doc := r.Wrap(fragment, "Merge Fields")
	assert.Contains(t, doc, fragment)
}

func TestRoundTrip(t *testing.T) {
	r := NewRenderer(Config{})

	fragments := []string{
		"<p>Hello <b>World</b></p>",
		"<p></p>",
		"<h1>Big news</h1><p>Body text with <a href=\"https://example.com\">a link</a>.</p>",
		"<p>Nested table:</p><table><tr><td>cell</td></tr></table>",
		"<p>Unicode: café — über</p>",
	}

	for _, f := range fragments {
		doc := r.Wrap(f, "Test")
		got := Extract(doc)
		assert.Equal(t, normalizeWhitespace(f), normalizeWhitespace(got), "fragment %q", f)
	}
}

func TestExtractLegacyContentCellShape(t *testing.T) {
	fragment := "<p>Legacy content with <strong>bold</strong> text</p>"
	doc := legacyContentCellDoc(fragment)

	got := Extract(doc)
	assert.Equal(t, normalizeWhitespace(fragment), normalizeWhitespace(got))
	assert.NotContains(t, got, "Learn More")
	assert.NotContains(t, got, "linear-gradient")
}

func TestExtractLegacyEditorClassShape(t *testing.T) {
	fragment := "<p>Oldest shape content</p><p>Second paragraph</p>"
	doc := legacyEditorClassDoc(fragment)

	got := Extract(doc)
	assert.Equal(t, normalizeWhitespace(fragment), normalizeWhitespace(got))
	assert.NotContains(t, got, "Footer text")
}

func TestExtractMultiShapeTolerance(t *testing.T) {
	r := NewRenderer(Config{})
	fragment := "<p>Same fragment everywhere</p>"

	docs := map[string]string{
		"current":      r.Wrap(fragment, "s"),
		"content-cell": legacyContentCellDoc(fragment),
		"editor-class": legacyEditorClassDoc(fragment),
	}

	for shape, doc := range docs {
		got := Extract(doc)
		assert.Equal(t, normalizeWhitespace(fragment), normalizeWhitespace(got), "shape %s", shape)
	}
}

func TestExtractChromeStripFallback(t *testing.T) {
	// A wrapped-looking document with chrome but none of the recognizable
	// content containers: strategies 1-3 miss, the strip fallback recovers
	// the user content.
	doc := `<html><head><style>td { padding: 0; }</style></head><body>
<table role="presentation" width="100%">
<tr><td style="background:linear-gradient(90deg,#000,#fff);">Header banner</td></tr>
<tr><td><p>Surviving user content</p></td></tr>
<tr><td><table class="cta-block"><tr><td><a href="#">Go</a></td></tr></table></td></tr>
<tr><td class="footer">Footer legal text</td></tr>
</table>
</body></html>`

	got := Extract(doc)
	assert.Contains(t, got, "<p>Surviving user content</p>")
	assert.NotContains(t, got, "Header banner")
	assert.NotContains(t, got, "Footer legal text")
	assert.NotContains(t, got, "cta-block")
}

func TestExtractTotalFailureReturnsPlaceholder(t *testing.T) {
	assert.Equal(t, EmptyFragment, Extract("<html><body>garbage</body></html>"))
	assert.Equal(t, EmptyFragment, Extract(""))
	assert.Equal(t, EmptyFragment, Extract("not html at all"))
}

func TestExtractNeverReturnsEmpty(t *testing.T) {
	inputs := []string{
		"",
		"<html></html>",
		"<html><body><style>p{}</style></body></html>",
	}
	for _, in := range inputs {
		got := Extract(in)
		require.NotEmpty(t, got, "input %q", in)
	}
}

func TestExtractIgnoresMarkerlessMarkerStrategy(t *testing.T) {
	// Start marker without end marker must not short-circuit the chain.
	doc := legacyEditorClassDoc("<p>content</p>")
	doc = strings.Replace(doc, "<body>", "<body>"+ContentStartMarker, 1)

	got := Extract(doc)
	assert.Equal(t, "<p>content</p>", strings.TrimSpace(got))
}
