package mailer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EmptyFragment is what the editor is initialized with when no content can
// be recovered. The editor requires syntactically valid content, so
// extraction degrades to this rather than returning an empty string or an
// error.
const EmptyFragment = "<p><br></p>"

// strategy recovers an editor fragment from one known document shape.
// TryExtract reports false when the document does not match the shape, at
// which point the next strategy in the chain is attempted.
type strategy interface {
	TryExtract(document string) (string, bool)
}

// strategies is the ordered recognition chain. New shapes go first; the
// chrome-strip fallback stays last.
var strategies = []strategy{
	markerStrategy{},
	contentCellStrategy{},
	editorClassStrategy{},
	chromeStripStrategy{},
}

// Extract recovers the user-authored fragment from a mailer document of
// any supported historical shape. It never fails: a document no strategy
// recognizes yields EmptyFragment.
func Extract(document string) string {
	for _, s := range strategies {
		if fragment, ok := s.TryExtract(document); ok {
			return fragment
		}
	}
	return EmptyFragment
}

// markerStrategy handles documents produced by the current Wrap, which
// delimits the content region with stable HTML comments.
type markerStrategy struct{}

func (markerStrategy) TryExtract(document string) (string, bool) {
	start := strings.Index(document, ContentStartMarker)
	if start < 0 {
		return "", false
	}
	rest := document[start+len(ContentStartMarker):]
	end := strings.Index(rest, ContentEndMarker)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// contentCellStrategy handles the previous template generation: no
// markers, but the main content cell is recognizable by its padding
// signature (and, in some revisions, a content-cell class). In that shape
// the CTA table shared the cell with the content, so anything from the CTA
// block onward is discarded.
type contentCellStrategy struct{}

func (contentCellStrategy) TryExtract(document string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", false
	}

	cell := doc.Find("td.content-cell").First()
	if cell.Length() == 0 {
		cell = doc.Find("td").FilterFunction(func(_ int, s *goquery.Selection) bool {
			style, _ := s.Attr("style")
			style = strings.ReplaceAll(style, " ", "")
			return strings.Contains(style, "padding:32px40px")
		}).First()
	}
	if cell.Length() == 0 {
		return "", false
	}

	inner, err := cell.Html()
	if err != nil {
		return "", false
	}
	if idx := strings.Index(inner, `<table class="cta-block"`); idx >= 0 {
		inner = inner[:idx]
	}
	inner = strings.TrimSpace(stripMarkerComments(inner))
	if inner == "" {
		return "", false
	}
	return inner, true
}

// editorClassStrategy handles the oldest shape, which embedded the editor's
// own container element verbatim.
type editorClassStrategy struct{}

func (editorClassStrategy) TryExtract(document string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", false
	}

	container := doc.Find("div.editor-content, div.ql-editor").First()
	if container.Length() == 0 {
		return "", false
	}
	inner, err := container.Html()
	if err != nil {
		return "", false
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return "", false
	}
	return inner, true
}

// chromeStripStrategy is the last-resort shape: remove every fixed chrome
// block we know how to recognize and return what survives. It only claims
// a match when at least one chrome pattern was actually found; otherwise
// an arbitrary HTML page would be "extracted" wholesale.
type chromeStripStrategy struct{}

var (
	bodyRe = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

	chromeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		// Header: gradient banner cell with logo and tagline.
		regexp.MustCompile(`(?is)<td[^>]*linear-gradient[^>]*>.*?</td>`),
		regexp.MustCompile(`(?is)<tr[^>]*class="[^"]*header[^"]*"[^>]*>.*?</tr>`),
		// Feature-highlight block used by one template revision.
		regexp.MustCompile(`(?is)<table[^>]*class="[^"]*feature[^"]*"[^>]*>.*?</table>`),
		// Standalone CTA table.
		regexp.MustCompile(`(?is)<table[^>]*class="[^"]*cta[^"]*"[^>]*>.*?</table>`),
		// Footer block.
		regexp.MustCompile(`(?is)<td[^>]*class="[^"]*footer[^"]*"[^>]*>.*?</td>`),
		regexp.MustCompile(`(?is)<table[^>]*class="[^"]*footer[^"]*"[^>]*>.*?</table>`),
	}

	// Layout wrappers are tagged role="presentation"; user tables are not.
	layoutTagRe   = regexp.MustCompile(`(?is)<(?:table|tr|td)[^>]*role="presentation"[^>]*>`)
	orphanCloseRe = regexp.MustCompile(`(?is)</(?:table|tr|td)>`)
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
)

func (chromeStripStrategy) TryExtract(document string) (string, bool) {
	working := document
	if m := bodyRe.FindStringSubmatch(working); m != nil {
		working = m[1]
	}

	matched := false
	for _, re := range chromeRes {
		if re.MatchString(working) {
			matched = true
			working = re.ReplaceAllString(working, "")
		}
	}
	if !matched {
		return "", false
	}

	if layoutTagRe.MatchString(working) {
		opens := len(layoutTagRe.FindAllString(working, -1))
		working = layoutTagRe.ReplaceAllString(working, "")
		// Drop as many closing tags as layout opens were removed, from the
		// end, so user-authored tables keep their own closers.
		for i := 0; i < opens; i++ {
			if idx := orphanCloseRe.FindAllStringIndex(working, -1); len(idx) > 0 {
				last := idx[len(idx)-1]
				working = working[:last[0]] + working[last[1]:]
			}
		}
	}

	working = commentRe.ReplaceAllString(working, "")
	working = strings.TrimSpace(working)
	if working == "" {
		return "", false
	}
	return working, true
}

func stripMarkerComments(s string) string {
	s = strings.ReplaceAll(s, ContentStartMarker, "")
	s = strings.ReplaceAll(s, ContentEndMarker, "")
	return s
}
