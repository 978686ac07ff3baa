package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"amazon-firefly/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("amazon-firefly.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// script/style contents are never visible text
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Text returns the normalized visible text of the first node in sel.
func Text(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	return textutil.Normalize(GetText(sel.Nodes[0]))
}

type Anchor struct {
	Name string
	Url  *url.URL
}

// GetAnchors returns the anchors in sel with their hrefs resolved against base,
// anchors without a followable href (empty, fragment only, javascript:) or
// with an unparsable one are skipped.
func GetAnchors(ctx context.Context, base *url.URL, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = strings.TrimSpace(a.Val)
				break
			}
		}
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			continue
		}

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}
		if base != nil {
			link = base.ResolveReference(link)
		}

		name := textutil.Normalize(GetText(n))
		anchors = append(anchors, Anchor{
			Name: name,
			Url:  link,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", link.String()),
		))
	}

	return anchors
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hiddenStyle(style string) bool {
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// IsVisible approximates element visibility for a static document: the node and
// none of its ancestors may be hidden through the `hidden` attribute,
// `aria-hidden="true"`, an inline display/visibility style or the `aui-hidden` class.
func IsVisible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(cur, "hidden"); ok {
			return false
		}
		if v, ok := attr(cur, "aria-hidden"); ok && v == "true" {
			return false
		}
		if v, ok := attr(cur, "style"); ok && hiddenStyle(v) {
			return false
		}
		if hasClass(cur, "aui-hidden") {
			return false
		}
	}
	return true
}

// IsEnabled reports whether the element accepts interaction: no `disabled`
// attribute, no `aria-disabled="true"` and neither it nor its parent carries the
// `a-disabled` class that marks inactive pagination items.
func IsEnabled(n *html.Node) bool {
	if _, ok := attr(n, "disabled"); ok {
		return false
	}
	if v, ok := attr(n, "aria-disabled"); ok && v == "true" {
		return false
	}
	if hasClass(n, "a-disabled") {
		return false
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode && hasClass(n.Parent, "a-disabled") {
		return false
	}
	return true
}
