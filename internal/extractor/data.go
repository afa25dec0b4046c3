package extractor

import "golang.org/x/net/html"

// ExtractParam narrows what part of the page is kept.
// ExcludeTags are removed first; IncludeTags, when present, replace every
// other selection rule.
type ExtractParam struct {
	OnlyMainContent bool
	IncludeTags     []string
	ExcludeTags     []string
}

// ExtractionResult holds the extraction outcome.
// DocumentRoot is the original parsed HTML document.
// ContentNode is the extracted content node.
type ExtractionResult struct {
	DocumentRoot *html.Node
	ContentNode  *html.Node
	Title        string
	Description  string
	// Layer names the rule that chose ContentNode.
	Layer SelectionLayer
}

type SelectionLayer string

const (
	LayerInclude     SelectionLayer = "include_tags"
	LayerSemantic    SelectionLayer = "semantic"
	LayerKnown       SelectionLayer = "known_selector"
	LayerReadability SelectionLayer = "readability"
	LayerBody        SelectionLayer = "body"
)
