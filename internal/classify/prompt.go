package classify

import (
	"fmt"
	"strings"
)

// buildClassifyPrompt assembles the categorization instruction. Known
// project names are bounded so the model is biased toward reusing them
// without the prompt growing unbounded.
func buildClassifyPrompt(req Request, projectLimit int) string {
	var b strings.Builder

	b.WriteString("You are categorizing a screenshot of the user's current activity.\n\n")
	fmt.Fprintf(&b, "Focused app: %s\n", req.AppName)
	if req.WindowTitle != "" {
		fmt.Fprintf(&b, "Window title: %s\n", req.WindowTitle)
	}

	if len(req.Roles) > 0 {
		b.WriteString("\nAvailable roles:\n")
		for _, r := range req.Roles {
			fmt.Fprintf(&b, "- %s", r.Name)
			if r.Description != "" {
				fmt.Fprintf(&b, ": %s", r.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(req.Categories) > 0 {
		b.WriteString("\nAvailable work categories (use the slug):\n")
		for _, c := range req.Categories {
			fmt.Fprintf(&b, "- %s (%s)", c.Slug, c.Name)
			if c.Description != "" {
				fmt.Fprintf(&b, ": %s", c.Description)
			}
			b.WriteString("\n")
		}
	}

	known := req.KnownProjects
	if len(known) > projectLimit {
		known = known[:projectLimit]
	}
	if len(known) > 0 {
		b.WriteString("\nExisting projects - strongly prefer one of these names over inventing a near-duplicate:\n")
		for _, name := range known {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	b.WriteString(`
Respond with a single JSON object and nothing else. No prose, no markdown fences. Fields:
{
  "project_name": "short project name",
  "project_role": "one of the role names, or empty",
  "work_category": "one of the category slugs",
  "confidence": 0.0,
  "reasoning": "one sentence on why",
  "suggested_patterns": ["substrings useful to recognize this project in window titles"],
  "key_insights": ["optional short observations"],
  "summary": "optional one-line summary of the activity"
}
confidence must be between 0 and 1.`)

	return b.String()
}
