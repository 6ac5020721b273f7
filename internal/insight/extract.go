package insight

import "regexp"

// The two extraction rules are deliberately heuristic and isolated here so
// they can be tested and swapped without touching insight assembly.
var (
	// DISP-42 -> "DISP-": the prefix keeps matching future tickets.
	ticketRe = regexp.MustCompile(`\b([A-Z][A-Z0-9]{1,9})-\d+`)
	// [release] -> "release"
	bracketRe = regexp.MustCompile(`\[([^\[\]]+)\]`)
)

// ExtractCandidates pulls recurring-substring candidates out of a window
// title: ticket-style prefixes (with the trailing dash) and bracketed
// content. Each candidate appears once, in order of appearance.
func ExtractCandidates(title string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, m := range ticketRe.FindAllStringSubmatch(title, -1) {
		add(m[1] + "-")
	}
	for _, m := range bracketRe.FindAllStringSubmatch(title, -1) {
		add(m[1])
	}
	return out
}
