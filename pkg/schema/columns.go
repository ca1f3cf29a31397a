// Package schema discovers the layout of metadata tables: where named columns
// live and which of them are worth showing in tooltips.
package schema

// NotFound is the column index reported for a name that is absent from a
// header. Consumers treat it as "feature unavailable", never as an error.
const NotFound = -1

// IndexOf returns the position of the first header cell equal to name, or
// NotFound.
func IndexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return NotFound
}

// Rule describes one organism-specific metadata layout. A rule matches a
// header that contains its Trigger column and selects Columns, in order.
type Rule struct {
	Name    string   `yaml:"name"`
	Trigger string   `yaml:"trigger"`
	Columns []string `yaml:"columns"`
}

// Matches reports whether header contains the rule's trigger column.
func (r Rule) Matches(header []string) bool {
	return IndexOf(header, r.Trigger) != NotFound
}

// Resolve maps the rule's columns onto header positions. Columns missing from
// header stay in the result as NotFound.
func (r Rule) Resolve(header []string) []int {
	out := make([]int, len(r.Columns))
	for i, name := range r.Columns {
		out[i] = IndexOf(header, name)
	}
	return out
}

// DefaultRules are the layouts used by the portal's datasets, highest
// priority first.
var DefaultRules = []Rule{
	{
		Name:    "bacillus",
		Trigger: "phase",
		Columns: []string{"media", "supplement", "phase", "time_min"},
	},
	{
		Name:    "ecoli",
		Trigger: "Base Media",
		Columns: []string{"Strain Description", "Base Media", "Carbon Source (g/L)", "Supplement"},
	},
	{
		Name:    "staph",
		Trigger: "strain",
		Columns: []string{"strain", "base-media", "conditions", "sample-time"},
	},
}

// Selector picks the columns of interest for a header by evaluating Rules in
// priority order and stopping at the first match.
type Selector struct {
	Rules []Rule
}

// NewSelector returns a Selector over DefaultRules followed by extra.
func NewSelector(extra ...Rule) Selector {
	rules := make([]Rule, 0, len(DefaultRules)+len(extra))
	rules = append(rules, DefaultRules...)
	rules = append(rules, extra...)
	return Selector{Rules: rules}
}

// Match returns the first rule matching header.
func (s Selector) Match(header []string) (Rule, bool) {
	for _, r := range s.Rules {
		if r.Matches(header) {
			return r, true
		}
	}
	return Rule{}, false
}

// Select returns the columns of interest for header. The result is never nil;
// it is empty when no rule matches.
func (s Selector) Select(header []string) []int {
	r, ok := s.Match(header)
	if !ok {
		return []int{}
	}
	return r.Resolve(header)
}

// SelectColumns applies the default rules to header.
func SelectColumns(header []string) []int {
	return NewSelector().Select(header)
}
