package fetcher

import (
	"net/url"

	"github.com/rohmanhakim/fetchkit/internal/extractor"
	"github.com/rohmanhakim/fetchkit/internal/mdconvert"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/sanitizer"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

/*
contentPipeline turns raw HTML into a Page for the local strategies.

	raw HTML -> extractor -> sanitizer -> mdconvert

rawHtml requests skip conversion; the page metadata and links are still
taken from the processed document.
*/
type contentPipeline struct {
	metadataSink metadata.MetadataSink
	extractor    extractor.DomExtractor
	converter    *mdconvert.StrictConversionRule
}

func newContentPipeline(metadataSink metadata.MetadataSink) *contentPipeline {
	return &contentPipeline{
		metadataSink: metadataSink,
		extractor:    extractor.NewDomExtractor(metadataSink),
		converter:    mdconvert.NewRule(metadataSink),
	}
}

func (p *contentPipeline) render(
	pageUrl url.URL,
	raw []byte,
	format Format,
	options ExtractionOptions,
) (Page, failure.ClassifiedError) {
	extracted, err := p.extractor.Extract(pageUrl, raw, extractor.ExtractParam{
		OnlyMainContent: options.OnlyMainContent,
		IncludeTags:     options.IncludeTags,
		ExcludeTags:     options.ExcludeTags,
	})
	if err != nil {
		return Page{}, err
	}

	htmlSanitizer := sanitizer.NewHTMLSanitizer(p.metadataSink, sanitizer.SanitizeParam{
		StripChrome: options.OnlyMainContent,
	})
	sanitized, err := htmlSanitizer.Sanitize(pageUrl, extracted.ContentNode)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Title:       extracted.Title,
		Description: extracted.Description,
		Links:       sanitized.GetLinks(),
		Images:      sanitized.GetImages(),
	}

	if format == FormatRawHTML {
		page.Content = string(raw)
		return page, nil
	}

	converted, err := p.converter.Convert(sanitized, conversionTarget(format))
	if err != nil {
		return Page{}, err
	}
	page.Content = string(converted.GetContent())
	return page, nil
}

func conversionTarget(format Format) mdconvert.Target {
	switch format {
	case FormatHTML:
		return mdconvert.TargetHTML
	case FormatText:
		return mdconvert.TargetText
	default:
		return mdconvert.TargetMarkdown
	}
}
