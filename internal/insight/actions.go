package insight

import (
	"encoding/json"
	"fmt"
)

// Change is a closed set of tagged mutation descriptors. Applying a change
// type-switches over the variants, so adding one without handling it fails
// loudly at the apply site rather than silently in a string map.
type Change interface {
	kind() string
}

type BulkCategorize struct {
	SessionIDs   []int64 `json:"session_ids"`
	CategorySlug string  `json:"category_slug"`
}

type BulkAssignProject struct {
	SessionIDs []int64 `json:"session_ids"`
	ProjectID  int64   `json:"project_id"`
}

type AddPattern struct {
	ProjectID int64  `json:"project_id"`
	Pattern   string `json:"pattern"`
}

type CreateProject struct {
	Name       string  `json:"name"`
	SessionIDs []int64 `json:"session_ids"`
}

type ChangeRole struct {
	ProjectID int64 `json:"project_id"`
	NewRoleID int64 `json:"new_role_id"`
}

type Dismiss struct{}

func (BulkCategorize) kind() string    { return "bulk_categorize" }
func (BulkAssignProject) kind() string { return "bulk_assign_project" }
func (AddPattern) kind() string        { return "add_pattern" }
func (CreateProject) kind() string     { return "create_project" }
func (ChangeRole) kind() string        { return "change_role" }
func (Dismiss) kind() string           { return "dismiss" }

type changeEnvelope struct {
	Kind   string          `json:"kind"`
	Change json.RawMessage `json:"change"`
}

// MarshalChange serializes a change for the feedback audit trail. The tag
// lives only at this storage boundary.
func MarshalChange(ch Change) (string, error) {
	payload, err := json.Marshal(ch)
	if err != nil {
		return "", fmt.Errorf("marshal change: %w", err)
	}
	env, err := json.Marshal(changeEnvelope{Kind: ch.kind(), Change: payload})
	if err != nil {
		return "", fmt.Errorf("marshal change envelope: %w", err)
	}
	return string(env), nil
}

// UnmarshalChange decodes a stored change descriptor back into its variant.
func UnmarshalChange(s string) (Change, error) {
	var env changeEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("unmarshal change envelope: %w", err)
	}

	var ch Change
	switch env.Kind {
	case "bulk_categorize":
		var v BulkCategorize
		if err := json.Unmarshal(env.Change, &v); err != nil {
			return nil, err
		}
		ch = v
	case "bulk_assign_project":
		var v BulkAssignProject
		if err := json.Unmarshal(env.Change, &v); err != nil {
			return nil, err
		}
		ch = v
	case "add_pattern":
		var v AddPattern
		if err := json.Unmarshal(env.Change, &v); err != nil {
			return nil, err
		}
		ch = v
	case "create_project":
		var v CreateProject
		if err := json.Unmarshal(env.Change, &v); err != nil {
			return nil, err
		}
		ch = v
	case "change_role":
		var v ChangeRole
		if err := json.Unmarshal(env.Change, &v); err != nil {
			return nil, err
		}
		ch = v
	case "dismiss":
		ch = Dismiss{}
	default:
		return nil, fmt.Errorf("unknown change kind %q", env.Kind)
	}
	return ch, nil
}
