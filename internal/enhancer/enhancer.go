package enhancer

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
)

/*
Responsibilities
- Derive structured metadata from a fetched result
  - tables, code blocks, language, summary
- Never change fetch success: every failure is recorded and the
  enhancement is skipped

Markdown content is rendered to HTML first so both formats share one DOM
path. Plain text only supports language detection and summaries.
*/
type Enhancer struct {
	param        Param
	summarizer   Summarizer
	truncator    Truncator
	metadataSink metadata.MetadataSink
}

// NewEnhancer builds an enhancer. summarizer may be nil, which disables
// summaries; a nil truncator counts words.
func NewEnhancer(
	metadataSink metadata.MetadataSink,
	param Param,
	summarizer Summarizer,
	truncator Truncator,
) *Enhancer {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if truncator == nil {
		truncator = WordTruncator{}
	}
	if param.MaxInputTokens <= 0 {
		param.MaxInputTokens = DefaultMaxInputTokens
	}
	if param.MaxOutputTokens <= 0 {
		param.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return &Enhancer{
		param:        param,
		summarizer:   summarizer,
		truncator:    truncator,
		metadataSink: metadataSink,
	}
}

// Enhance returns result with the enabled enhancements merged into its
// metadata. It never fails; the input is returned unchanged when nothing
// applies.
func (e *Enhancer) Enhance(ctx context.Context, result fetcher.FetchResult) fetcher.FetchResult {
	if !e.param.enabled() || strings.TrimSpace(result.Content()) == "" {
		return result
	}

	doc, text := e.load(result)
	entries := make(map[string]string)

	if e.param.ExtractTables && doc != nil {
		tables := extractTables(doc)
		entries[MetaTableCount] = strconv.Itoa(len(tables))
		if len(tables) > 0 {
			if encoded, ok := e.encode(result, MetaTables, tables); ok {
				entries[MetaTables] = encoded
			}
		}
	}

	if e.param.ExtractCodeBlocks && doc != nil {
		blocks := extractCodeBlocks(doc)
		if len(blocks) > 0 {
			if encoded, ok := e.encode(result, MetaCodeBlocks, blocks); ok {
				entries[MetaCodeBlocks] = encoded
			}
			if langs := codeLanguages(blocks); len(langs) > 0 {
				entries[MetaCodeLanguages] = strings.Join(langs, ",")
			}
		}
	}

	if e.param.DetectLanguage {
		entries[MetaLanguage] = DetectLanguage(text)
	}

	if e.param.Summarize && e.summarizer != nil && text != "" {
		if summary, ok := e.summarize(ctx, result, text); ok {
			entries[MetaSummary] = summary
		}
	}

	if len(entries) == 0 {
		return result
	}
	return result.WithMetadata(entries)
}

// load parses the content into a DOM when the format has one and returns
// its visible text.
func (e *Enhancer) load(result fetcher.FetchResult) (*goquery.Document, string) {
	content := []byte(result.Content())
	switch result.Format() {
	case fetcher.FormatText:
		return nil, collapse(result.Content())
	case fetcher.FormatMarkdown:
		content = renderMarkdown(content)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		e.recordError(result, "Enhancer.load", &EnhanceError{
			Message: err.Error(),
			Cause:   ErrCauseParseFailure,
		})
		return nil, collapse(result.Content())
	}
	text := doc.Clone()
	text.Find("script, style, noscript, template").Remove()
	return doc, collapse(text.Text())
}

func (e *Enhancer) summarize(ctx context.Context, result fetcher.FetchResult, text string) (string, bool) {
	input := e.truncator.Truncate(text, e.param.MaxInputTokens)
	summary, err := e.summarizer.Complete(ctx, summaryPrompt(input), e.param.MaxOutputTokens)
	if err != nil {
		e.recordError(result, "Enhancer.summarize", &EnhanceError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseSummaryFailure,
		})
		return "", false
	}
	summary = strings.TrimSpace(summary)
	return summary, summary != ""
}

func (e *Enhancer) encode(result fetcher.FetchResult, field string, v any) (string, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		e.recordError(result, "Enhancer.encode", &EnhanceError{
			Message: field + ": " + err.Error(),
			Cause:   ErrCauseEncodeFailure,
		})
		return "", false
	}
	return string(data), true
}

func (e *Enhancer) recordError(result fetcher.FetchResult, action string, err *EnhanceError) {
	e.metadataSink.RecordError(
		time.Now(),
		"enhancer",
		action,
		mapEnhanceErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, result.URL()),
			metadata.NewAttr(metadata.AttrFormat, string(result.Format())),
		},
	)
}
