package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{"  关于2026年研究生\n\t  推免工作的通知  ", "关于2026年研究生 推免工作的通知"},
		{"plain", "plain"},
		{"\n\n\n", ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, NormalizeText(test.in))
	}
}

func TestClosestAncestor(t *testing.T) {
	doc := parse(t, `<ul><li><em><a href="#">x</a></em></li></ul>`)
	a := doc.Find("a").Nodes[0]

	li := ClosestAncestor(a, "li")
	require.NotNil(t, li)
	require.Equal(t, "li", li.Data)

	require.Nil(t, ClosestAncestor(a, "table"))
}

func TestFindDescendants(t *testing.T) {
	doc := parse(t, `<li><span>a</span><div><span>b</span></div></li>`)
	li := doc.Find("li").Nodes[0]

	spans := FindDescendants(li, "span")
	require.Len(t, spans, 2)
	require.Equal(t, "a", GetText(spans[0]))
	require.Equal(t, "b", GetText(spans[1]))
}

func TestAttr(t *testing.T) {
	doc := parse(t, `<a href="/2026/0213/c12577a3134640/page.htm" target="_blank">t</a>`)
	a := doc.Find("a").Nodes[0]
	require.Equal(t, "/2026/0213/c12577a3134640/page.htm", Attr(a, "href"))
	require.Equal(t, "", Attr(a, "rel"))
}
