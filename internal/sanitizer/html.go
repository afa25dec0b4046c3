/*
Responsibilities
- Drop non-content elements and comments
- Resolve relative link and image references to absolute URLs
- Collect page links and images
- Remove empty nodes

This stage ensures downstream conversion sees stable, self-contained markup.
The input node is modified in place.
*/
package sanitizer

import (
	"errors"
	"net/url"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"golang.org/x/net/html"
)

type HtmlSanitizer struct {
	metadataSink metadata.MetadataSink
	param        SanitizeParam
}

func NewHTMLSanitizer(metadataSink metadata.MetadataSink, param SanitizeParam) HtmlSanitizer {
	return HtmlSanitizer{
		metadataSink: metadataSink,
		param:        param,
	}
}

func (h *HtmlSanitizer) Sanitize(
	pageUrl url.URL,
	inputContentNode *html.Node,
) (SanitizedHTMLDoc, failure.ClassifiedError) {
	sanitizedHtmlDoc, err := sanitize(pageUrl, inputContentNode, h.param)
	if err != nil {
		var sanitizationError *SanitizationError
		errors.As(err, &sanitizationError)
		h.metadataSink.RecordError(
			time.Now(),
			"sanitizer",
			"HtmlSanitizer.Sanitize",
			mapSanitizationErrorToMetadataCause(sanitizationError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, pageUrl.String()),
			},
		)
		return SanitizedHTMLDoc{}, sanitizationError
	}
	return sanitizedHtmlDoc, nil
}

func sanitize(pageUrl url.URL, node *html.Node, param SanitizeParam) (SanitizedHTMLDoc, error) {
	if node == nil || (node.Type != html.ElementNode && node.Type != html.DocumentNode) {
		return SanitizedHTMLDoc{}, &SanitizationError{
			Message:   "content node is missing or not an element",
			Retryable: false,
			Cause:     ErrCauseBrokenDOM,
		}
	}

	removeNonContent(node, param.StripChrome)
	links, images := resolveReferences(&pageUrl, node)
	removeEmptyNodesBottomUp(node)

	if node.FirstChild == nil {
		return SanitizedHTMLDoc{}, &SanitizationError{
			Message:   "nothing left after sanitization",
			Retryable: false,
			Cause:     ErrCauseEmptyContent,
		}
	}

	return NewSanitizedHTMLDoc(node, links, images), nil
}
