package enhancer

// Metadata keys written by Enhance.
const (
	MetaTables        = "tables"
	MetaTableCount    = "table_count"
	MetaCodeBlocks    = "code_blocks"
	MetaCodeLanguages = "code_languages"
	MetaLanguage      = "language"
	MetaSummary       = "summary"
)

const (
	LanguageUnknown = "unknown"

	DefaultMaxInputTokens  = 4000
	DefaultMaxOutputTokens = 200
)

// Param toggles the individual enhancements. The zero value enables
// nothing.
type Param struct {
	ExtractTables     bool
	ExtractCodeBlocks bool
	DetectLanguage    bool
	Summarize         bool
	// Token budget of the content sent to the summarizer. Longer content
	// keeps its prefix.
	MaxInputTokens  int
	MaxOutputTokens int
}

func (p Param) enabled() bool {
	return p.ExtractTables || p.ExtractCodeBlocks || p.DetectLanguage || p.Summarize
}

// Table is one HTML table flattened to cell text.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// CodeBlock is the text of one preformatted block. Language is empty when
// the markup carries no hint.
type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}
