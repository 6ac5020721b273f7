package insight

import (
	"reflect"
	"strings"
	"testing"
)

func TestChangeRoundTrip(t *testing.T) {
	cases := []Change{
		BulkCategorize{SessionIDs: []int64{1, 2, 3}, CategorySlug: "creating"},
		BulkAssignProject{SessionIDs: []int64{4, 5}, ProjectID: 7},
		AddPattern{ProjectID: 7, Pattern: "disp-"},
		CreateProject{Name: "Disputes", SessionIDs: []int64{9}},
		ChangeRole{ProjectID: 7, NewRoleID: 2},
		Dismiss{},
	}

	for _, ch := range cases {
		encoded, err := MarshalChange(ch)
		if err != nil {
			t.Fatalf("marshal %T: %v", ch, err)
		}
		decoded, err := UnmarshalChange(encoded)
		if err != nil {
			t.Fatalf("unmarshal %T: %v", ch, err)
		}
		if !reflect.DeepEqual(decoded, ch) {
			t.Fatalf("round trip changed %T: %+v vs %+v", ch, ch, decoded)
		}
	}
}

// The kind tags are stored in the feedback audit trail, so they must never
// change once released.
func TestChangeKindTagsStable(t *testing.T) {
	tags := []struct {
		ch  Change
		tag string
	}{
		{BulkCategorize{}, "bulk_categorize"},
		{BulkAssignProject{}, "bulk_assign_project"},
		{AddPattern{}, "add_pattern"},
		{CreateProject{}, "create_project"},
		{ChangeRole{}, "change_role"},
		{Dismiss{}, "dismiss"},
	}
	for _, tc := range tags {
		encoded, err := MarshalChange(tc.ch)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(encoded, `"kind":"`+tc.tag+`"`) {
			t.Fatalf("%T should encode kind %q, got %s", tc.ch, tc.tag, encoded)
		}
	}
}

func TestUnmarshalChangeRejectsUnknownKind(t *testing.T) {
	if _, err := UnmarshalChange(`{"kind":"explode","change":{}}`); err == nil {
		t.Fatal("unknown kind must fail")
	}
	if _, err := UnmarshalChange(`not json`); err == nil {
		t.Fatal("garbage must fail")
	}
}
