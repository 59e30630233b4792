package registry

import "specgraph/internal/element"

func (r *Registry) StateCounts(project string) map[element.State]int {
	counts := make(map[element.State]int)
	if r == nil {
		return counts
	}
	for _, e := range r.Elements(project) {
		counts[e.State()]++
	}
	return counts
}

func (r *Registry) KindCounts(project string) map[element.Kind]int {
	counts := make(map[element.Kind]int)
	if r == nil {
		return counts
	}
	for _, e := range r.Elements(project) {
		counts[e.Kind()]++
	}
	return counts
}
