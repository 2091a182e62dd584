package planner

import (
	"sort"
	"strings"

	"github.com/graphvana/graphvana/pkg/gql/parser"
)

// StageDescription is one node of an explain tree.
type StageDescription struct {
	Name     string
	Data     map[string]string
	Children []*StageDescription
}

// Stages returns the explain tree for the whole plan: one description per
// stage, with later UNION segments preceded by a Union marker.
func (p *QueryPlan) Stages() []*StageDescription {
	var out []*StageDescription
	for i, seg := range p.segments {
		if i > 0 {
			name := "Union"
			if seg.unionAll {
				name = "UnionAll"
			}
			out = append(out, &StageDescription{Name: name})
		}
		for _, stg := range seg.stages {
			out = append(out, stg.describe())
		}
	}
	return out
}

// Describe renders the plan as an indented explain dump.
func (p *QueryPlan) Describe() string {
	var b strings.Builder
	for _, d := range p.Stages() {
		writeDescription(&b, d, 0)
	}
	return b.String()
}

func writeDescription(b *strings.Builder, d *StageDescription, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(d.Name)
	keys := make([]string, 0, len(d.Data))
	for k := range d.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(d.Data[k])
	}
	b.WriteByte('\n')
	for _, c := range d.Children {
		writeDescription(b, c, depth+1)
	}
}

// DescribeQuery parses and plans a query and returns its explain dump.
func DescribeQuery(query string) (string, error) {
	q, err := parser.ParseQuery(query)
	if err != nil {
		return "", err
	}
	plan, err := PlanQuery(q)
	if err != nil {
		return "", err
	}
	return plan.Describe(), nil
}
