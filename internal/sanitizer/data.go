package sanitizer

import (
	"net/url"

	"golang.org/x/net/html"
)

type SanitizedHTMLDoc struct {
	contentNode *html.Node
	links       []url.URL
	images      []url.URL
}

func (s *SanitizedHTMLDoc) GetContentNode() *html.Node {
	return s.contentNode
}

// GetLinks returns the absolute, de-duplicated anchor targets in document order.
func (s *SanitizedHTMLDoc) GetLinks() []url.URL {
	return s.links
}

func (s *SanitizedHTMLDoc) GetImages() []url.URL {
	return s.images
}

// NewSanitizedHTMLDoc creates a SanitizedHTMLDoc for testing purposes.
// The fields remain private to maintain immutability.
func NewSanitizedHTMLDoc(contentNode *html.Node, links []url.URL, images []url.URL) SanitizedHTMLDoc {
	return SanitizedHTMLDoc{
		contentNode: contentNode,
		links:       links,
		images:      images,
	}
}

// SanitizeParam holds configuration parameters for the sanitization process.
type SanitizeParam struct {
	// StripChrome also removes header and aside. Navigation and footers
	// are always removed along with scripts and styles.
	StripChrome bool
}

func DefaultSanitizeParam() SanitizeParam {
	return SanitizeParam{
		StripChrome: true,
	}
}
