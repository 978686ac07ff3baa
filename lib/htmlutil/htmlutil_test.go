package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestText(t *testing.T) {
	doc := parse(t, `<div id="a">
		Totale:
		<b>12,34 €</b>
		<script>var x = 1;</script>
	</div>`)
	require.Equal(t, "Totale: 12,34 €", Text(doc.Find("#a")))
	require.Equal(t, "", Text(doc.Find("#missing")))
}

func TestGetAnchors(t *testing.T) {
	base, err := url.Parse("https://www.amazon.it/your-orders/orders?timeFilter=year-2024")
	require.NoError(t, err)

	doc := parse(t, `<div>
		<a href="/gp/your-account/order-details?orderID=405-1">Dettagli   ordine</a>
		<a href="javascript:void(0)">noop</a>
		<a href="#">top</a>
		<a>no href</a>
		<a href="https://www.amazon.it/other">Other</a>
	</div>`)

	anchors := GetAnchors(context.Background(), base, doc.Find("a"))
	require.Len(t, anchors, 2)
	require.Equal(t, "Dettagli ordine", anchors[0].Name)
	require.Equal(t, "https://www.amazon.it/gp/your-account/order-details?orderID=405-1", anchors[0].Url.String())
	require.Equal(t, "https://www.amazon.it/other", anchors[1].Url.String())
}

func TestVisibilityAndEnabled(t *testing.T) {
	doc := parse(t, `<ul>
		<li class="a-last"><a id="ok" href="?startIndex=10">Next</a></li>
		<li class="a-disabled a-last"><a id="disabled-parent" href="?startIndex=20">Next</a></li>
		<li><a id="disabled-attr" disabled href="#">x</a></li>
		<li style="display: none"><a id="hidden-style" href="#">x</a></li>
		<li hidden><a id="hidden-attr" href="#">x</a></li>
		<li aria-hidden="true"><a id="aria-hidden" href="#">x</a></li>
	</ul>`)

	node := func(id string) *goquery.Selection { return doc.Find("#" + id) }

	require.True(t, IsVisible(node("ok").Nodes[0]))
	require.True(t, IsEnabled(node("ok").Nodes[0]))
	require.False(t, IsEnabled(node("disabled-parent").Nodes[0]))
	require.False(t, IsEnabled(node("disabled-attr").Nodes[0]))
	require.False(t, IsVisible(node("hidden-style").Nodes[0]))
	require.False(t, IsVisible(node("hidden-attr").Nodes[0]))
	require.False(t, IsVisible(node("aria-hidden").Nodes[0]))
}
