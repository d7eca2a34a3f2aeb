package webplus

import (
	"regexp"
	"strings"
	"zjubulletin/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type NoticeItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// WebPlus article URL pattern, e.g. /2026/0213/c12577a3134640/page.htm
var articleHrefRegex = regexp.MustCompile(`/\d{4}/\d{4}/[^/]+/page\.htm$`)

var dateRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ParseItems extracts notice records from a list page. Anchors whose
// href matches the article pattern become items; anchors with no
// visible text are skipped, and a URL repeated within the page keeps
// only its first occurrence.
func ParseItems(doc *goquery.Document, baseURL string) []NoticeItem {
	items := []NoticeItem{}
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(htmlutil.Attr(a.Nodes[0], "href"))
		if !articleHrefRegex.MatchString(href) {
			return
		}

		title := htmlutil.NormalizeText(a.Text())
		if title == "" {
			return
		}

		fullURL := href
		if !strings.HasPrefix(href, "http") {
			fullURL = strings.TrimRight(baseURL, "/") + href
		}

		if seen[fullURL] {
			return
		}
		seen[fullURL] = true

		items = append(items, NoticeItem{
			Title: title,
			URL:   fullURL,
			Date:  extractDate(a),
		})
	})

	return items
}

// extractDate looks for a YYYY-MM-DD substring near the anchor: first
// inside <span> descendants of the enclosing <li> (WebPlus renders the
// date as a span badge next to the title), then in the li's raw text.
// Best effort only, "" when nothing matches.
func extractDate(a *goquery.Selection) string {
	if len(a.Nodes) == 0 {
		return ""
	}
	li := htmlutil.ClosestAncestor(a.Nodes[0], "li")
	if li == nil {
		return ""
	}
	for _, span := range htmlutil.FindDescendants(li, "span") {
		if m := dateRegex.FindString(htmlutil.GetText(span)); m != "" {
			return m
		}
	}
	return dateRegex.FindString(htmlutil.GetText(li))
}
