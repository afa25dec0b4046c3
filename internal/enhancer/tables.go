package enhancer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractTables returns every table in document order. Rows made only of
// th cells before the first data row become the headers. Rows of nested
// tables belong to the nested table only.
func extractTables(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		t := Table{Rows: [][]string{}}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if !row.Closest("table").IsSelection(table) {
				return
			}
			cells := row.ChildrenFiltered("th, td")
			if cells.Length() == 0 {
				return
			}
			texts := make([]string, 0, cells.Length())
			cells.Each(func(_ int, cell *goquery.Selection) {
				texts = append(texts, collapse(cell.Text()))
			})
			if len(t.Rows) == 0 && t.Headers == nil && cells.Filter("td").Length() == 0 {
				t.Headers = texts
				return
			}
			t.Rows = append(t.Rows, texts)
		})
		if t.Headers == nil && len(t.Rows) == 0 {
			return
		}
		if t.Headers == nil {
			t.Headers = []string{}
		}
		tables = append(tables, t)
	})
	return tables
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
