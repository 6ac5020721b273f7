package categorize

import (
	"strings"

	"focal/internal/store"
)

// AppendPattern adds a detection pattern with case-insensitive dedup.
// Adding the same pattern twice is a no-op.
func AppendPattern(patterns []string, pattern string) []string {
	if pattern == "" {
		return patterns
	}
	for _, p := range patterns {
		if strings.EqualFold(p, pattern) {
			return patterns
		}
	}
	return append(patterns, pattern)
}

// MatchProject resolves a proposed project name against known projects:
// exact case-insensitive name match first, then the first project whose any
// stored pattern appears in the combined observation text. First hit wins;
// this is deliberately not best-match, so ambiguous multi-pattern cases
// resolve deterministically by project order.
func MatchProject(known []store.Project, name, appName, windowTitle string) *store.Project {
	for i := range known {
		if strings.EqualFold(known[i].Name, name) {
			return &known[i]
		}
	}

	combined := strings.ToLower(name + " " + appName + " " + windowTitle)
	for i := range known {
		for _, p := range known[i].Patterns {
			if p != "" && strings.Contains(combined, strings.ToLower(p)) {
				return &known[i]
			}
		}
	}
	return nil
}

// MatchConfidence scores a candidate as the fraction of its patterns found
// in the combined observation text. Diagnostic only; reconciliation never
// picks by this score.
func MatchConfidence(p *store.Project, name, appName, windowTitle string) float64 {
	if len(p.Patterns) == 0 {
		return 0
	}
	combined := strings.ToLower(name + " " + appName + " " + windowTitle)
	matched := 0
	for _, pat := range p.Patterns {
		if pat != "" && strings.Contains(combined, strings.ToLower(pat)) {
			matched++
		}
	}
	return float64(matched) / float64(len(p.Patterns))
}

// dedupPatterns normalizes a proposed pattern list, dropping empty entries
// and case-insensitive duplicates while keeping order.
func dedupPatterns(patterns []string) []string {
	out := []string{}
	for _, p := range patterns {
		out = AppendPattern(out, p)
	}
	return out
}
