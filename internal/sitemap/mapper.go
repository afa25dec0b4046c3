package sitemap

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rohmanhakim/fetchkit/internal/frontier"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/robots"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/urlutil"
)

const (
	sitemapLocXPath = "//*[local-name()='url']/*[local-name()='loc']"
	indexLocXPath   = "//*[local-name()='sitemap']/*[local-name()='loc']"
)

/*
Mapper lists the URLs of a site without a remote API.

  - the sitemaps named by robots.txt are read first, /sitemap.xml when it
    names none; a sitemap index is followed one level deep
  - when the sitemap yields nothing, the links of the page itself are used,
    restricted to its host
  - URLs robots.txt disallows for the user agent are dropped
  - URLs are deduplicated and returned in discovery order
*/
type Mapper struct {
	metadataSink   metadata.MetadataSink
	robots         *robots.Fetcher
	userAgent      string
	requestTimeout time.Duration
}

func NewMapper(metadataSink metadata.MetadataSink, userAgent string, requestTimeout time.Duration) *Mapper {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Mapper{
		metadataSink:   metadataSink,
		robots:         robots.NewFetcher(metadataSink, &http.Client{Timeout: requestTimeout}, userAgent),
		userAgent:      userAgent,
		requestTimeout: requestTimeout,
	}
}

// Map returns up to limit URLs of the site. A limit below one means no
// limit.
func (m *Mapper) Map(ctx context.Context, site url.URL, limit int) ([]string, failure.ClassifiedError) {
	// zero rules on failure; the fetcher records it
	rules, _ := m.robots.Fetch(ctx, site)
	found := newDiscovered(limit, func(u *url.URL) bool {
		return rules.Allowed(u.RequestURI(), m.userAgent)
	})

	for _, sitemapUrl := range sitemapURLs(site, rules) {
		if found.full() {
			break
		}
		if err := m.readSitemap(ctx, sitemapUrl, found); err != nil {
			m.recordError(site, &MapError{
				Message:   err.Error(),
				Retryable: true,
				Cause:     ErrCauseSitemapUnavailable,
			})
		}
	}

	if found.size() == 0 {
		if err := m.readLinks(ctx, &site, found); err != nil {
			mapErr := &MapError{
				Message:   err.Error(),
				Retryable: true,
				Cause:     ErrCausePageUnavailable,
			}
			m.recordError(site, mapErr)
			return nil, mapErr
		}
	}

	urls := found.list()
	m.metadataSink.RecordArtifact(metadata.ArtifactSiteMap, site.String(), []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, site.String()),
	})
	return urls, nil
}

// sitemapURLs lists the sitemaps robots.txt names, or /sitemap.xml.
func sitemapURLs(site url.URL, rules robots.Rules) []*url.URL {
	var urls []*url.URL
	for _, raw := range rules.Sitemaps {
		if u, ok := urlutil.Resolve(&site, raw); ok {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		urls = append(urls, site.ResolveReference(&url.URL{Path: "/sitemap.xml"}))
	}
	return urls
}

func (m *Mapper) newCollector(ctx context.Context, maxDepth int) *colly.Collector {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(m.userAgent),
		colly.MaxDepth(maxDepth),
		colly.IgnoreRobotsTxt(),
	)
	if m.requestTimeout > 0 {
		c.SetRequestTimeout(m.requestTimeout)
	}
	return c
}

func (m *Mapper) readSitemap(ctx context.Context, sitemapUrl *url.URL, found *discovered) error {
	// depth 1 is the root sitemap, depth 2 the sitemaps of an index
	c := m.newCollector(ctx, 2)
	c.OnXML(indexLocXPath, func(e *colly.XMLElement) {
		if found.full() {
			return
		}
		_ = e.Request.Visit(strings.TrimSpace(e.Text))
	})
	c.OnXML(sitemapLocXPath, func(e *colly.XMLElement) {
		if loc, ok := urlutil.Resolve(e.Request.URL, e.Text); ok {
			found.add(loc)
		}
	})
	return c.Visit(sitemapUrl.String())
}

func (m *Mapper) readLinks(ctx context.Context, site *url.URL, found *discovered) error {
	c := m.newCollector(ctx, 1)
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link, ok := urlutil.Resolve(e.Request.URL, e.Attr("href"))
		if !ok || !urlutil.SameHost(link, site) {
			return
		}
		found.add(link)
	})
	return c.Visit(site.String())
}

func (m *Mapper) recordError(site url.URL, err *MapError) {
	m.metadataSink.RecordError(
		time.Now(),
		"sitemap",
		"Mapper.Map",
		mapMapErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, site.String()),
		},
	)
}

// discovered collects unique allowed URLs up to a limit.
type discovered struct {
	mu      sync.Mutex
	seen    frontier.Set[string]
	urls    []string
	limit   int
	allowed func(*url.URL) bool
}

func newDiscovered(limit int, allowed func(*url.URL) bool) *discovered {
	return &discovered{seen: frontier.NewSet[string](), limit: limit, allowed: allowed}
}

func (d *discovered) add(u *url.URL) {
	if !d.allowed(u) {
		return
	}
	rawUrl := u.String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.limit > 0 && len(d.urls) >= d.limit {
		return
	}
	if d.seen.Add(rawUrl) {
		d.urls = append(d.urls, rawUrl)
	}
}

func (d *discovered) full() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.limit > 0 && len(d.urls) >= d.limit
}

func (d *discovered) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *discovered) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.urls...)
}
