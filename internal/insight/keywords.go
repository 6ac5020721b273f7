package insight

import "strings"

// appCategoryTable maps app-name keywords to a built-in category slug.
// Ordered; the first matching row wins.
var appCategoryTable = []struct {
	keywords []string
	slug     string
}{
	{[]string{"slack", "mail", "outlook", "messages", "discord", "telegram", "whatsapp"}, "responding"},
	{[]string{"zoom", "meet", "webex", "facetime", "around"}, "meetings"},
	{[]string{"xcode", "code", "intellij", "goland", "vim", "terminal", "iterm", "figma", "sketch", "photoshop"}, "creating"},
	{[]string{"safari", "chrome", "firefox", "arc", "brave", "notion", "obsidian", "preview", "books"}, "discovery"},
	{[]string{"things", "todoist", "omnifocus", "linear", "jira", "asana", "calendar", "reminders"}, "planning"},
	{[]string{"spotify", "music", "netflix", "youtube", "steam", "twitch", "tv"}, "personal"},
}

// inferCategorySlug guesses a category for an app name, or "" when no
// keyword matches.
func inferCategorySlug(appName string) string {
	name := strings.ToLower(appName)
	for _, row := range appCategoryTable {
		for _, kw := range row.keywords {
			if strings.Contains(name, kw) {
				return row.slug
			}
		}
	}
	return ""
}

// roleKeywordTable maps a role name (lowercased) to window-title keywords
// used for role reassignment scoring. Roles absent from the table score 0.
var roleKeywordTable = map[string][]string{
	"work":        {"meeting", "review", "report", "sprint", "standup", "planning"},
	"personal":    {"youtube", "netflix", "spotify", "reddit", "twitter", "instagram", "recipe"},
	"disputes":    {"dispute", "chargeback", "claim", "fraud", "disp-"},
	"support":     {"ticket", "support", "zendesk", "helpdesk", "customer", "escalation"},
	"engineering": {"pull request", "merge", "commit", "deploy", "build failed", "stack trace"},
	"finance":     {"invoice", "budget", "expense", "payroll", "tax", "reconciliation"},
}

// roleScore counts how many titles contain any of the role's keywords.
func roleScore(roleName string, titles []string) int {
	keywords := roleKeywordTable[strings.ToLower(roleName)]
	if len(keywords) == 0 {
		return 0
	}
	score := 0
	for _, title := range titles {
		t := strings.ToLower(title)
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				score++
				break
			}
		}
	}
	return score
}
