package htmlutil

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CompactText returns the selection's text with leading/trailing
// whitespace removed and internal runs of whitespace collapsed to a
// single space.
func CompactText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// LineText returns the selection's text with each text node trimmed
// and the non-empty pieces joined by newlines, so block structure
// inside a cell survives as line breaks.
func LineText(sel *goquery.Selection) string {
	var pieces []string
	for _, node := range sel.Nodes {
		collectTextPieces(node, &pieces)
	}
	return strings.Join(pieces, "\n")
}

func collectTextPieces(node *html.Node, pieces *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		trimmed := strings.TrimSpace(node.Data)
		if trimmed != "" {
			*pieces = append(*pieces, trimmed)
		}
		return
	}
	child := node.FirstChild
	for child != nil {
		collectTextPieces(child, pieces)
		child = child.NextSibling
	}
}

// ResolveRef turns a possibly relative href from a portal page into an
// absolute URL under base. Hrefs of the form "./x" and "/x" and "x"
// all resolve against the base host; absolute URLs pass through.
func ResolveRef(base *url.URL, href string) string {
	href = strings.TrimPrefix(href, "./")
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
