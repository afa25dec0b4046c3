package robots

import "github.com/temoto/robotstxt"

// Rules is the parsed robots.txt of one host. The zero value allows
// everything and names no sitemap.
type Rules struct {
	Host     string
	Sitemaps []string
	data     *robotstxt.RobotsData
}

// Parse reads robots.txt content. An empty body allows everything.
func Parse(content []byte, host string) (Rules, error) {
	data, err := robotstxt.FromBytes(content)
	if err != nil {
		return Rules{Host: host}, err
	}
	return Rules{
		Host:     host,
		Sitemaps: append([]string{}, data.Sitemaps...),
		data:     data,
	}, nil
}

// Allowed reports whether userAgent may fetch requestURI (path plus query).
// The group of the longest matching user agent applies, then the longest
// matching path rule.
func (r Rules) Allowed(requestURI, userAgent string) bool {
	if r.data == nil {
		return true
	}
	if requestURI == "" {
		requestURI = "/"
	}
	return r.data.TestAgent(requestURI, userAgent)
}
