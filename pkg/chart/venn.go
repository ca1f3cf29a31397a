package chart

import (
	"html"
	"strconv"
	"strings"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Venn defaults.
const (
	DefaultListBudget    = 1000
	DefaultTooltipBudget = 500
	vennOpacity          = 0.7
)

// Venn set names.
const (
	SetRegulon  = "Regulon Genes"
	SetIModulon = "iModulon Genes"
)

// VennOptions configures BuildVenn.
type VennOptions struct {
	ListBudget    int // characters kept of the regulon member list
	TooltipBudget int // characters of members shown in a tooltip
}

// BuildVenn compares a regulon with an iModulon. Rows 2-7 of column 1 hold
// regulon, iModulon and overlap sizes followed by the sizes used when one set
// contains the other; rows 2-4 of column 2 hold the member lists.
func BuildVenn(m *table.Matrix, opts VennOptions) (*model.Venn, error) {
	if opts.ListBudget <= 0 {
		opts.ListBudget = DefaultListBudget
	}
	if opts.TooltipBudget <= 0 {
		opts.TooltipBudget = DefaultTooltipBudget
	}

	var counts [6]float64
	for i := range counts {
		f, ok := m.At(2+i, 1).Float()
		if !ok {
			return nil, table.Malformedf("venn: count %q at row %d is not numeric", m.At(2+i, 1), 2+i)
		}
		counts[i] = f
	}
	regulon, imodulon, overlap := counts[0], counts[1], counts[2]
	regulon2, imodulon2, overlap2 := counts[3], counts[4], counts[5]

	regList := cleanGeneList(m.At(2, 2))
	if len(regList) > opts.ListBudget {
		regList = regList[:opts.ListBudget] + "..."
	}
	compList := cleanGeneList(m.At(3, 2))
	bothList := cleanGeneList(m.At(4, 2))

	const (
		blue  = "#2085e3"
		green = "#15c70c"
		cyan  = "#3de3e0"
		teal  = "#37d7b4"
		both  = "Genes in Regulon and iModulon"
	)
	regions := []model.VennRegion{
		{Sets: []string{SetIModulon}, Value: imodulon, Color: blue, Genes: compList},
		{Sets: []string{SetRegulon}, Value: regulon, Color: green, Genes: regList},
		{Sets: []string{SetRegulon, SetIModulon}, Name: both, Value: overlap, Color: cyan, Genes: bothList},
		{Sets: []string{"iModulon all contained in Regulon"}, Name: both, Value: imodulon2, Color: cyan, Genes: bothList},
		{Sets: []string{SetRegulon, "iModulon all contained in Regulon"}, Name: both, Value: imodulon2, Color: cyan, Genes: bothList},
		{Sets: []string{"Regulon all contained in iModulon"}, Name: both, Value: regulon2, Color: teal, Genes: bothList},
		{Sets: []string{SetIModulon, "Regulon all contained in iModulon"}, Name: both, Value: regulon2, Color: teal, Genes: bothList},
		{Sets: []string{"Regulon == iModulon"}, Name: both, Value: overlap2, Color: teal, Genes: bothList},
	}

	for i := range regions {
		r := &regions[i]
		r.Opacity = vennOpacity
		if r.Name == "" {
			r.Name = strings.Join(r.Sets, ", ")
		}
		r.Tooltip = vennTooltip(*r, opts.TooltipBudget)
	}
	return &model.Venn{Kind: model.KindVenn, Regions: regions}, nil
}

func vennTooltip(r model.VennRegion, budget int) string {
	var b strings.Builder
	b.WriteString(html.EscapeString(r.Name))
	b.WriteString(": <b>")
	b.WriteString(strconv.FormatFloat(r.Value, 'f', -1, 64))
	b.WriteString("</b>")
	if r.Name == SetRegulon || r.Name == SetIModulon {
		b.WriteString("<br>Genes in ")
		b.WriteString(strings.TrimSuffix(r.Name, " Genes"))
		b.WriteString(" only: <b>")
		b.WriteString(strconv.Itoa(len(strings.Split(r.Genes, ", "))))
		b.WriteString("</b>")
	}
	b.WriteString("<br>")
	b.WriteString(html.EscapeString(truncateGenes(r.Genes, budget)))
	return b.String()
}
