package chart

import (
	"strconv"
	"strings"

	"github.com/vanderheijden86/modviz/pkg/table"
)

// cleanGeneList turns a printed array such as "['thrA' 'thrB']" into
// "thrA, thrB". Line breaks inside the array are dropped.
func cleanGeneList(c table.Cell) string {
	s := c.String()
	if len(s) < 4 {
		return ""
	}
	s = s[2 : len(s)-2]
	s = strings.NewReplacer("\r\n", "", "\r", "", "\n", "").Replace(s)
	return strings.ReplaceAll(s, "' '", ", ")
}

// isEmptyGeneList reports whether c holds the printed empty array "[]".
func isEmptyGeneList(c table.Cell) bool {
	return len(c.String()) == 2
}

// truncateGenes shortens a ", "-separated list to roughly budget characters,
// keeping whole names and appending " +N" for the N names left out.
func truncateGenes(list string, budget int) string {
	if len(list) <= budget {
		return list
	}
	genes := strings.Split(list, ", ")
	var b strings.Builder
	i := 0
	// The running length counts the separator that would follow.
	for i < len(genes) && (i == 0 || b.Len()+2 < budget) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(genes[i])
		i++
	}
	if i < len(genes) {
		b.WriteString(" +")
		b.WriteString(strconv.Itoa(len(genes) - i))
	}
	return b.String()
}

// capFirst upper-cases the first letter of s.
func capFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
