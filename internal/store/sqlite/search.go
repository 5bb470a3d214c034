package sqlite

import (
	"strings"
)

// ftsQuery turns free text into an FTS5 query. Terms are prefix matches
// joined with AND; a term with a leading '-' is excluded.
func ftsQuery(text string) string {
	var include, exclude []string
	for _, term := range strings.Fields(text) {
		negated := len(term) > 1 && term[0] == '-'
		term = strings.TrimPrefix(term, "-")
		term = strings.Trim(strings.ReplaceAll(term, `"`, ""), "*")
		if term == "" {
			continue
		}
		quoted := `"` + term + `"*`
		if negated {
			exclude = append(exclude, quoted)
		} else {
			include = append(include, quoted)
		}
	}
	if len(include) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.Join(include, " AND "))
	for _, term := range exclude {
		b.WriteString(" NOT ")
		b.WriteString(term)
	}
	return b.String()
}
