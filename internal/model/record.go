package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fields holds the kind-specific columns of a record. Text columns are
// strings; numeric columns are float64 or nil for SQL NULL.
type Fields map[string]any

func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String returns the text value of name, or "" if absent or not text.
func (f Fields) String(name string) string {
	s, _ := f[name].(string)
	return s
}

// Record is one child row of a family member. It marshals flat, with the
// kind's columns next to id and family_member_id.
type Record struct {
	ID       int64
	MemberID int64
	Fields   Fields
}

const (
	recordIDKey     = "id"
	recordMemberKey = "family_member_id"
)

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[recordIDKey] = r.ID
	flat[recordMemberKey] = r.MemberID
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}
	if flat == nil {
		return fmt.Errorf("record must be a JSON object")
	}

	r.ID = jsonInt(flat[recordIDKey])
	r.MemberID = jsonInt(flat[recordMemberKey])
	delete(flat, recordIDKey)
	delete(flat, recordMemberKey)

	r.Fields = make(Fields, len(flat))
	for k, v := range flat {
		if n, ok := v.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return fmt.Errorf("field %s: %w", k, err)
			}
			v = f
		}
		r.Fields[k] = v
	}
	return nil
}

func jsonInt(v any) int64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		return 0
	}
	return i
}
