package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripEnvelope removes markdown fences and surrounding prose, keeping the
// outermost JSON object. Models wrap their output often enough that this is
// load-bearing, not cosmetic.
func stripEnvelope(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// parseCategorization decodes the classifier's reply. A reply missing the
// required fields is a malformed response, not a crash.
func parseCategorization(text string) (*Categorization, error) {
	cleaned := stripEnvelope(text)

	var cat Categorization
	if err := json.Unmarshal([]byte(cleaned), &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if cat.ProjectName == "" || cat.WorkCategory == "" {
		return nil, fmt.Errorf("%w: missing project_name or work_category", ErrMalformedResponse)
	}
	if cat.Confidence < 0 {
		cat.Confidence = 0
	}
	if cat.Confidence > 1 {
		cat.Confidence = 1
	}
	if cat.SuggestedPatterns == nil {
		cat.SuggestedPatterns = []string{}
	}
	return &cat, nil
}
