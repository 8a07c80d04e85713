// Package transfer moves a user's whole family tree in and out as a JSON
// document. Export decrypts through the record store; import re-encrypts
// by creating everything anew, so identities never carry over.
//
// Every member and row is validated before the first write, so a document
// with a bad value imports nothing. Import is still not transactional: a
// storage error part way through keeps the entries before it and returns
// the partial Result.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
	"github.com/dukerupert/kinvault/internal/store"
)

type Service struct {
	members *store.FamilyMemberStore
	records *store.RecordStore
	logger  *slog.Logger
}

func NewService(members *store.FamilyMemberStore, records *store.RecordStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{members: members, records: records, logger: logger.With("component", "transfer")}
}

// Export assembles every member of userID, in id order, with all records
// decrypted.
func (s *Service) Export(ctx context.Context, userID int64) (*Document, error) {
	members, err := s.members.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("export: list members: %w", err)
	}

	doc := &Document{
		ExportedAt: time.Now().UTC(),
		UserID:     userID,
		FamilyData: make([]FamilyEntry, 0, len(members)),
	}
	for _, m := range members {
		entry := FamilyEntry{Member: m}
		for _, k := range kind.All() {
			rows, err := s.records.List(ctx, userID, m.ID, k)
			if err != nil {
				return nil, fmt.Errorf("export: member %d %s: %w", m.ID, k, err)
			}
			*entry.Rows(k) = rows
		}
		doc.FamilyData = append(doc.FamilyData, entry)
	}
	return doc, nil
}

// ExportJSON is Export rendered as indented JSON.
func (s *Service) ExportJSON(ctx context.Context, userID int64) ([]byte, error) {
	doc, err := s.Export(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export json: marshal: %w", err)
	}
	return payload, nil
}

type importMember struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	DOB          string `json:"dob"`
	Notes        string `json:"notes"`
}

// Import decodes payload and creates its contents under userID. The
// payload's userId and all ids inside it are ignored.
func (s *Service) Import(ctx context.Context, userID int64, payload []byte) (Result, error) {
	doc, err := decodeDocument(payload)
	if err != nil {
		return Result{Records: map[kind.Kind]int{}}, err
	}
	return s.ImportDocument(ctx, userID, doc)
}

// ImportDocument creates the contents of an already decoded document
// under userID.
func (s *Service) ImportDocument(ctx context.Context, userID int64, doc *Document) (Result, error) {
	result := Result{Records: make(map[kind.Kind]int)}
	if doc == nil {
		return result, fmt.Errorf("import: nil document: %w", kverrors.ErrValidation)
	}
	if err := validateEntries(doc.FamilyData); err != nil {
		return result, err
	}

	for i := range doc.FamilyData {
		e := &doc.FamilyData[i]
		if skipped(e) {
			result.Skipped++
			continue
		}

		m, err := s.members.Create(ctx, userID, model.FamilyMemberInput{
			Name:         e.Member.Name,
			Relationship: e.Member.Relationship,
			DOB:          e.Member.DOB,
			Notes:        e.Member.Notes,
		})
		if err != nil {
			return result, fmt.Errorf("import entry %d: %w", i, err)
		}
		result.Members++

		for _, k := range kind.All() {
			for j, r := range *e.Rows(k) {
				if _, err := s.records.Create(ctx, userID, m.ID, k, r.Fields); err != nil {
					return result, fmt.Errorf("import entry %d %s[%d]: %w", i, k, j, err)
				}
				result.Records[k]++
			}
		}
	}

	s.logger.Info("import complete", "user_id", userID,
		"members", result.Members, "records", result.RecordTotal(), "skipped", result.Skipped)
	return result, nil
}

func skipped(e *FamilyEntry) bool {
	return strings.TrimSpace(e.Member.Name) == ""
}

// validateEntries checks every row of the entries that would be imported
// against its kind.
func validateEntries(entries []FamilyEntry) error {
	for i := range entries {
		e := &entries[i]
		if skipped(e) {
			continue
		}
		for _, k := range kind.All() {
			for j, r := range *e.Rows(k) {
				if err := store.ValidateFields(k, r.Fields); err != nil {
					return fmt.Errorf("import: entry %d %s[%d]: %w", i, k, j, err)
				}
			}
		}
	}
	return nil
}

// decodeDocument checks the payload shape before anything is written. Only
// member attributes and row fields are kept; ids are dropped.
func decodeDocument(payload []byte) (*Document, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("import: empty payload: %w", kverrors.ErrValidation)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return nil, fmt.Errorf("import: expecting { familyData: [...] }: %w", kverrors.ErrValidation)
	}
	var raw []json.RawMessage
	if err := decodeArray(top["familyData"], &raw); err != nil {
		return nil, fmt.Errorf("import: expecting { familyData: [...] }: %w", kverrors.ErrValidation)
	}

	doc := &Document{FamilyData: make([]FamilyEntry, 0, len(raw))}
	for i, r := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(r, &fields); err != nil {
			return nil, fmt.Errorf("import: entry %d is not an object: %w", i, kverrors.ErrValidation)
		}

		var e FamilyEntry
		if m, ok := fields["member"]; ok && !isNull(m) {
			var im importMember
			if err := json.Unmarshal(m, &im); err != nil {
				return nil, fmt.Errorf("import: entry %d member: %v: %w", i, err, kverrors.ErrValidation)
			}
			e.Member = model.FamilyMember{
				Name:         im.Name,
				Relationship: im.Relationship,
				DOB:          im.DOB,
				Notes:        im.Notes,
			}
		}

		for _, k := range kind.All() {
			rawRows, ok := fields[k.String()]
			if !ok || isNull(rawRows) {
				continue
			}
			var rows []model.Record
			if err := decodeArray(rawRows, &rows); err != nil {
				return nil, fmt.Errorf("import: entry %d %s: %v: %w", i, k, err, kverrors.ErrValidation)
			}
			*e.Rows(k) = rows
		}
		doc.FamilyData = append(doc.FamilyData, e)
	}
	return doc, nil
}

func decodeArray(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("not an array")
	}
	return json.Unmarshal(trimmed, v)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
