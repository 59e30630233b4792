package analysis

import (
	"specgraph/internal/element"
	"specgraph/internal/git"
	"specgraph/internal/registry"
)

// ImpactReport summarizes the elements affected by changes.
type ImpactReport struct {
	DirectlyAffected   []element.Element
	IndirectlyAffected []element.Element
}

// Analyzer performs impact analysis on the element tree of one project.
type Analyzer struct {
	reg     *registry.Registry
	project string
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(reg *registry.Registry, project string) *Analyzer {
	return &Analyzer{reg: reg, project: project}
}

// AnalyzeImpact identifies which elements are affected by the given changes. An element is
// directly affected when a changed line falls within its location, or when its file was
// deleted; the descendants of directly affected elements are indirectly affected.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) (*ImpactReport, error) {
	report := &ImpactReport{
		DirectlyAffected:   []element.Element{},
		IndirectlyAffected: []element.Element{},
	}

	byFile := make(map[string][]element.Element)
	for _, e := range a.reg.Elements(a.project) {
		if f := e.Location().File; f != "" {
			byFile[f] = append(byFile[f], e)
		}
	}

	seenDirect := make(map[string]bool)
	seenIndirect := make(map[string]bool)

	// 1. Find Direct Impacts
	for _, change := range changes {
		for _, e := range byFile[change.Path] {
			if seenDirect[e.ID()] {
				continue
			}
			if change.Deleted || isAffected(e.Location(), change.ChangedLines) {
				report.DirectlyAffected = append(report.DirectlyAffected, e)
				seenDirect[e.ID()] = true
			}
		}
	}

	// 2. Find Indirect Impacts (descendants)
	for _, e := range report.DirectlyAffected {
		for _, d := range element.Flatten(e) {
			if !seenDirect[d.ID()] && !seenIndirect[d.ID()] {
				report.IndirectlyAffected = append(report.IndirectlyAffected, d)
				seenIndirect[d.ID()] = true
			}
		}
	}

	return report, nil
}

func isAffected(loc element.Location, lines []int) bool {
	for _, line := range lines {
		if line >= loc.StartLine && line <= loc.EndLine {
			return true
		}
	}
	return false
}
