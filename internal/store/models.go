package store

import (
	"encoding/json"
	"time"
)

// Category is a work-type label. Built-in categories are seeded at first run
// and cannot be deleted; slugs are stable once sessions reference them.
type Category struct {
	ID          int64
	Name        string
	Slug        string
	Icon        string
	Color       string
	Description string
	BuiltIn     bool
	Active      bool
	SortOrder   int
	CreatedAt   time.Time
}

// Role is a coarse work-context grouping for projects. At most one role is
// the default.
type Role struct {
	ID          int64
	Name        string
	Description string
	Color       string
	Icon        string
	IsDefault   bool
	UserDefined bool
	Active      bool
	SortOrder   int
	CreatedAt   time.Time
}

// Project is an inferred or user-declared unit of work. Patterns hold no
// case-insensitive duplicates.
type Project struct {
	ID                int64
	Name              string
	RoleID            *int64
	DefaultCategoryID *int64
	Patterns          []string
	SourceHints       []string
	Active            bool
	AISuggested       bool
	UserConfirmed     bool
	Confidence        float64
	TrackedSeconds    int64
	LastSeen          *time.Time
	Notes             string
	CreatedAt         time.Time
}

// Session is one tracked interval of attention.
type Session struct {
	ID                   int64
	StartTime            time.Time
	EndTime              *time.Time
	Duration             int64 // seconds
	AppName              string
	WindowTitle          string
	BundleID             string
	Summary              string
	KeyInsights          []string
	LegacyWorkType       string
	LegacyProjectName    string
	CategoryID           *int64
	ProjectID            *int64
	AIConfidence         *float64
	AICategorized        bool
	ConcurrentProjectIDs []int64
	Active               bool
	ScreenshotCount      int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SuggestionKind tags what a pending suggestion proposes.
type SuggestionKind string

const (
	SuggestProject    SuggestionKind = "project"
	SuggestCategory   SuggestionKind = "category"
	SuggestRole       SuggestionKind = "role"
	SuggestNewProject SuggestionKind = "new_project"
)

// SuggestionStatus transitions one-way out of pending.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionModified SuggestionStatus = "modified"
)

// SuggestionContext carries the observation that produced a suggestion.
type SuggestionContext struct {
	AppName      string `json:"app_name,omitempty"`
	WindowTitle  string `json:"window_title,omitempty"`
	ProjectName  string `json:"project_name,omitempty"`
	CategorySlug string `json:"category_slug,omitempty"`
	RoleName     string `json:"role_name,omitempty"`
}

// Suggestion is a low-confidence categorization awaiting review.
type Suggestion struct {
	ID         int64
	SessionID  int64
	Kind       SuggestionKind
	Value      string
	Confidence float64
	Reasoning  string
	Context    SuggestionContext
	Status     SuggestionStatus
	UserValue  string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// CachedCategorization is an offline fallback record. Rows are append-only;
// use count grows on reuse.
type CachedCategorization struct {
	ID           int64
	AppName      string
	WindowTitle  string
	ProjectName  string
	RoleName     string
	CategorySlug string
	Patterns     []string
	Confidence   float64
	UseCount     int
	CreatedAt    time.Time
}

// FeedbackAction records how a human resolved an insight.
type FeedbackAction string

const (
	FeedbackApplied   FeedbackAction = "applied"
	FeedbackDismissed FeedbackAction = "dismissed"
	FeedbackModified  FeedbackAction = "modified"
	FeedbackDeferred  FeedbackAction = "deferred"
)

// TargetKind names what an insight acted on.
type TargetKind string

const (
	TargetProject  TargetKind = "project"
	TargetCategory TargetKind = "category"
	TargetRole     TargetKind = "role"
	TargetSession  TargetKind = "session"
	TargetGlobal   TargetKind = "global"
)

// InsightFeedback is an append-only audit row; only AppliedAt may be set
// after creation. Changes holds the JSON-encoded change descriptor.
type InsightFeedback struct {
	ID          int64
	InsightKind string
	InsightText string
	Action      FeedbackAction
	TargetKind  TargetKind
	TargetID    *int64
	TargetName  string
	Changes     string
	Confidence  float64
	CreatedAt   time.Time
	AppliedAt   *time.Time
}

// SessionFilter narrows session queries.
type SessionFilter struct {
	From          *time.Time
	To            *time.Time
	ProjectID     *int64
	Uncategorized bool
	Limit         int
}

// encodeStrings serializes a string list column. nil encodes as [].
func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" {
		return []string{}
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return []string{}
	}
	return v
}

func encodeInt64s(v []int64) string {
	if v == nil {
		v = []int64{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeInt64s(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	var v []int64
	if err := json.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return []int64{}
	}
	return v
}
