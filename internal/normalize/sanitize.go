package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text strips HTML markup and entities from feed-provided free text and
// collapses runs of whitespace. Some upstream abstracts arrive with inline
// JATS/HTML fragments; storing them raw pollutes both ranking and prompts.
func Text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
