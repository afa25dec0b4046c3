package sanitizer

import (
	"net/url"

	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"golang.org/x/net/html"
)

// Sanitizer defines the interface for HTML sanitization.
type Sanitizer interface {
	// Sanitize cleans the content node and returns it together with the
	// absolute links and images it references.
	Sanitize(pageUrl url.URL, inputContentNode *html.Node) (SanitizedHTMLDoc, failure.ClassifiedError)
}

// Compile-time interface check
var _ Sanitizer = (*HtmlSanitizer)(nil)
