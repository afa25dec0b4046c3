package sanitizer

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/fetchkit/pkg/urlutil"
	"golang.org/x/net/html"
)

// resolveReferences rewrites a[href] and img[src] to absolute URLs and
// returns the distinct targets of each in document order. References that
// cannot be resolved to http(s) are left untouched and not collected.
func resolveReferences(base *url.URL, node *html.Node) ([]url.URL, []url.URL) {
	doc := goquery.NewDocumentFromNode(node)

	var links []url.URL
	seenLinks := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, ok := urlutil.Resolve(base, href)
		if !ok {
			return
		}
		s.SetAttr("href", resolved.String())
		if _, dup := seenLinks[resolved.String()]; dup {
			return
		}
		seenLinks[resolved.String()] = struct{}{}
		links = append(links, *resolved)
	})

	var images []url.URL
	seenImages := make(map[string]struct{})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			// lazy-loaded images
			src, ok = s.Attr("data-src")
		}
		if !ok {
			return
		}
		resolved, ok := urlutil.Resolve(base, src)
		if !ok {
			return
		}
		s.SetAttr("src", resolved.String())
		if _, dup := seenImages[resolved.String()]; dup {
			return
		}
		seenImages[resolved.String()] = struct{}{}
		images = append(images, *resolved)
	})

	return links, images
}
