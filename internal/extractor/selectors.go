package extractor

// knownContentSelectors contains site-framework content container selectors.
// They are tried when semantic containers fail.
//
// Each slice holds selectors for one framework or platform,
// ordered by specificity.
//
//nolint:gochecknoglobals // This is a static lookup table that must be global
var knownContentSelectors = map[string][]string{
	"generic": {
		".content",
		".post-content",
		".entry-content",
		".article-body",
		".markdown-body",
		"#content",
		"#main-content",
	},
	"docusaurus": {
		".theme-doc-markdown",
		".docMainContainer",
	},
	"sphinx": {
		".rst-content",
		".document",
	},
	"mkdocs": {
		".md-content",
	},
	"gitbook": {
		".markdown-section",
	},
	"wordpress": {
		".wp-block-post-content",
		".site-main",
	},
	"medium": {
		".postArticle-content",
	},
}

// contentSelectors returns a flattened, prioritized list of known content selectors.
func contentSelectors() []string {
	frameworkOrder := []string{
		"generic",
		"docusaurus",
		"sphinx",
		"mkdocs",
		"gitbook",
		"wordpress",
		"medium",
	}

	var all []string
	seen := make(map[string]bool)
	for _, framework := range frameworkOrder {
		for _, selector := range knownContentSelectors[framework] {
			if !seen[selector] {
				seen[selector] = true
				all = append(all, selector)
			}
		}
	}
	return all
}
