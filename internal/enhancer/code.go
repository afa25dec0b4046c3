package enhancer

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var languageClassPrefixes = []string{"language-", "lang-", "highlight-source-", "highlight-"}

// extractCodeBlocks collects pre blocks. The language comes from class
// hints on the code element first, then on the pre element.
func extractCodeBlocks(doc *goquery.Document) []CodeBlock {
	var blocks []CodeBlock
	doc.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		code := pre.Find("code").First()
		source := pre
		if code.Length() > 0 {
			source = code
		}
		text := strings.Trim(source.Text(), "\n")
		if strings.TrimSpace(text) == "" {
			return
		}
		lang := languageHint(code)
		if lang == "" {
			lang = languageHint(pre)
		}
		blocks = append(blocks, CodeBlock{Language: lang, Code: text})
	})
	return blocks
}

func languageHint(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"data-lang", "data-language"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	class, _ := s.Attr("class")
	for _, c := range strings.Fields(class) {
		c = strings.ToLower(c)
		for _, prefix := range languageClassPrefixes {
			if lang, ok := strings.CutPrefix(c, prefix); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}

// codeLanguages returns the distinct known languages in sorted order.
func codeLanguages(blocks []CodeBlock) []string {
	var langs []string
	for _, b := range blocks {
		if b.Language != "" && !slices.Contains(langs, b.Language) {
			langs = append(langs, b.Language)
		}
	}
	slices.Sort(langs)
	return langs
}
