package heaven

import (
	"bytes"
	"context"
	"html"
	"log/slog"
	"strings"

	"heavenwatch-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	castImagePath = "/img/girls/"
	decoImagePath = "/img/deco/"
)

// enrichEntry fetches the entry's edit page and fills in the full body
// and image URLs. Every failure here is absorbed: the entry keeps its
// listing-page fields and the crawl moves on, so one broken detail
// page never kills a crawl.
func (c *Client) enrichEntry(ctx context.Context, entry *Entry) {
	reqCtx, cancel := context.WithTimeout(ctx, detailTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(reqCtx).
		Get(entry.DetailUrl)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch diary detail page", "url", entry.DetailUrl, "err", err)
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse diary detail page", "url", entry.DetailUrl, "err", err)
		return
	}

	// the edit form's textarea carries the full body; bodies are
	// frequently double-escaped so unescape once more on top of the
	// parser's own pass
	textarea := doc.Find("textarea[name=body]").First()
	if textarea.Length() > 0 {
		entry.Body = html.UnescapeString(textarea.Text())
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" {
			return
		}

		isCastPhoto := strings.Contains(src, castImagePath)
		isDeco := strings.Contains(src, decoImagePath)
		if !isCastPhoto && !isDeco {
			return
		}

		resolved := htmlutil.ResolveRef(c.baseUrl, src)
		if isCastPhoto && entry.MainImage == "" {
			entry.MainImage = resolved
		}
		entry.Images = append(entry.Images, resolved)
	})
}
