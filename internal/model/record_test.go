package model

import (
	"encoding/json"
	"testing"
)

func TestRecordMarshalFlat(t *testing.T) {
	r := Record{ID: 7, MemberID: 3, Fields: Fields{"type": "Passport", "value": nil}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat["id"] != float64(7) {
		t.Errorf("id = %v, want 7", flat["id"])
	}
	if flat["family_member_id"] != float64(3) {
		t.Errorf("family_member_id = %v, want 3", flat["family_member_id"])
	}
	if flat["type"] != "Passport" {
		t.Errorf("type = %v, want Passport", flat["type"])
	}
	if v, ok := flat["value"]; !ok || v != nil {
		t.Errorf("value = %v (present %v), want null", v, ok)
	}
}

func TestRecordUnmarshal(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"id": 12, "family_member_id": 4, "type": "Savings", "value": 1500.5, "notes": null}`), &r)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.ID != 12 || r.MemberID != 4 {
		t.Errorf("ids = %d/%d, want 12/4", r.ID, r.MemberID)
	}
	if _, ok := r.Fields["id"]; ok {
		t.Error("id should not remain in fields")
	}
	if r.Fields["value"] != 1500.5 {
		t.Errorf("value = %v (%T), want 1500.5", r.Fields["value"], r.Fields["value"])
	}
	if r.Fields.String("type") != "Savings" {
		t.Errorf("type = %q", r.Fields.String("type"))
	}
}

func TestRecordUnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`null`), &r); err == nil {
		t.Error("expected error for null record")
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Error("expected error for array record")
	}
}

func TestFieldsClone(t *testing.T) {
	orig := Fields{"a": "1"}
	c := orig.Clone()
	c["a"] = "2"
	if orig["a"] != "1" {
		t.Error("clone should not alias the original")
	}
	if Fields(nil).Clone() != nil {
		t.Error("clone of nil should be nil")
	}
}
