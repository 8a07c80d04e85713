package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/fieldcrypt"
	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
)

// RecordStore is the single CRUD engine for every record kind. Each call
// checks the full user -> member -> record chain in SQL before reading or
// writing anything, and runs values through the encryption policy on the
// way in and out.
//
// Update is read-merge-write without a version check; concurrent updates
// of the same record keep whichever write lands last.
type RecordStore struct {
	db     *sql.DB
	policy *fieldcrypt.Policy
}

func NewRecordStore(db *sql.DB, policy *fieldcrypt.Policy) *RecordStore {
	return &RecordStore{db: db, policy: policy}
}

func describe(k kind.Kind) (kind.Descriptor, error) {
	d, ok := kind.Describe(k)
	if !ok {
		return kind.Descriptor{}, fmt.Errorf("unknown record kind %d: %w", int(k), kverrors.ErrValidation)
	}
	return d, nil
}

func selectCols(d kind.Descriptor) string {
	return "id, family_member_id, " + strings.Join(d.FieldNames(), ", ")
}

func scanRecord(d kind.Descriptor, scanner interface{ Scan(...any) error }) (*model.Record, error) {
	var r model.Record
	text := make([]sql.NullString, len(d.Fields))
	num := make([]sql.NullFloat64, len(d.Fields))

	dest := make([]any, 0, len(d.Fields)+2)
	dest = append(dest, &r.ID, &r.MemberID)
	for i, f := range d.Fields {
		if f.Numeric {
			dest = append(dest, &num[i])
		} else {
			dest = append(dest, &text[i])
		}
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	r.Fields = make(model.Fields, len(d.Fields))
	for i, f := range d.Fields {
		if !f.Numeric {
			r.Fields[f.Name] = text[i].String
			continue
		}
		if num[i].Valid {
			r.Fields[f.Name] = num[i].Float64
		} else {
			r.Fields[f.Name] = nil
		}
	}
	return &r, nil
}

// List returns the member's records of kind k, oldest first.
func (s *RecordStore) List(ctx context.Context, userID, memberID int64, k kind.Kind) ([]model.Record, error) {
	d, err := describe(k)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(ctx, s.db, userID, memberID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectCols(d)+` FROM `+d.Name+` WHERE family_member_id = ? ORDER BY id`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.Name, err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		r, err := scanRecord(d, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.Name, err)
		}
		r.Fields = s.policy.DecryptRecord(k, r.Fields)
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Get returns one decrypted record.
func (s *RecordStore) Get(ctx context.Context, userID, memberID int64, k kind.Kind, id int64) (*model.Record, error) {
	d, err := describe(k)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(ctx, s.db, userID, memberID); err != nil {
		return nil, err
	}
	r, err := s.load(ctx, d, memberID, id)
	if err != nil {
		return nil, err
	}
	r.Fields = s.policy.DecryptRecord(k, r.Fields)
	return r, nil
}

// Create stores a new record under the member. Text fields missing from
// fields are stored as "", numeric ones as NULL. Keys that are not columns
// of k are ignored.
func (s *RecordStore) Create(ctx context.Context, userID, memberID int64, k kind.Kind, fields model.Fields) (*model.Record, error) {
	d, err := describe(k)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(ctx, s.db, userID, memberID); err != nil {
		return nil, err
	}

	values := make(model.Fields, len(d.Fields))
	for _, f := range d.Fields {
		v, err := normalize(f, fields[f.Name])
		if err != nil {
			return nil, err
		}
		values[f.Name] = v
	}

	stored, err := s.policy.EncryptRecord(k, values)
	if err != nil {
		return nil, err
	}

	names := d.FieldNames()
	args := make([]any, 0, len(names)+1)
	args = append(args, memberID)
	for _, name := range names {
		args = append(args, stored[name])
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO `+d.Name+` (family_member_id, `+strings.Join(names, ", ")+`) VALUES (?, `+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", d.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	r, err := s.load(ctx, d, memberID, id)
	if err != nil {
		return nil, err
	}
	r.Fields = s.policy.DecryptRecord(k, r.Fields)
	return r, nil
}

// Update merges partial over the stored record: supplied keys overwrite,
// omitted keys keep their current value.
func (s *RecordStore) Update(ctx context.Context, userID, memberID int64, k kind.Kind, id int64, partial model.Fields) (*model.Record, error) {
	d, err := describe(k)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(ctx, s.db, userID, memberID); err != nil {
		return nil, err
	}

	existing, err := s.load(ctx, d, memberID, id)
	if err != nil {
		return nil, err
	}
	merged := s.policy.DecryptRecord(k, existing.Fields)
	for _, f := range d.Fields {
		v, ok := partial[f.Name]
		if !ok {
			continue
		}
		nv, err := normalize(f, v)
		if err != nil {
			return nil, err
		}
		merged[f.Name] = nv
	}

	stored, err := s.policy.EncryptRecord(k, merged)
	if err != nil {
		return nil, err
	}

	names := d.FieldNames()
	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+2)
	for i, name := range names {
		sets[i] = name + " = ?"
		args = append(args, stored[name])
	}
	args = append(args, id, memberID)

	_, err = s.db.ExecContext(ctx,
		`UPDATE `+d.Name+` SET `+strings.Join(sets, ", ")+` WHERE id = ? AND family_member_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", d.Name, err)
	}

	r, err := s.load(ctx, d, memberID, id)
	if err != nil {
		return nil, err
	}
	r.Fields = s.policy.DecryptRecord(k, r.Fields)
	return r, nil
}

// Delete removes the record. A missing member or record is ErrNotFound.
func (s *RecordStore) Delete(ctx context.Context, userID, memberID int64, k kind.Kind, id int64) error {
	d, err := describe(k)
	if err != nil {
		return err
	}
	if err := ensureOwned(ctx, s.db, userID, memberID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM `+d.Name+` WHERE id = ? AND family_member_id = ?`,
		id, memberID,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", d.Name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s record %d: %w", d.Name, id, kverrors.ErrNotFound)
	}
	return nil
}

// RawColumn returns the stored, possibly encrypted, text of one column.
// It bypasses the ownership chain and exists for diagnostics.
func (s *RecordStore) RawColumn(ctx context.Context, k kind.Kind, id int64, field string) (string, error) {
	d, err := describe(k)
	if err != nil {
		return "", err
	}
	if _, ok := d.Field(field); !ok {
		return "", fmt.Errorf("%s has no field %q: %w", d.Name, field, kverrors.ErrValidation)
	}

	var v sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT `+field+` FROM `+d.Name+` WHERE id = ?`, id).Scan(&v)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s record %d: %w", d.Name, id, kverrors.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s.%s: %w", d.Name, field, err)
	}
	return v.String, nil
}

// SensitiveValues returns every non-empty stored value of k's sensitive
// fields across all owners. Used to audit how much legacy plaintext
// remains.
func (s *RecordStore) SensitiveValues(ctx context.Context, k kind.Kind) ([]string, error) {
	d, err := describe(k)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, field := range d.SensitiveFields() {
		rows, err := s.db.QueryContext(ctx, `SELECT `+field+` FROM `+d.Name+` WHERE `+field+` <> ''`)
		if err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", d.Name, field, err)
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s.%s: %w", d.Name, field, err)
			}
			values = append(values, v)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

func (s *RecordStore) load(ctx context.Context, d kind.Descriptor, memberID, id int64) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectCols(d)+` FROM `+d.Name+` WHERE id = ? AND family_member_id = ?`,
		id, memberID,
	)
	r, err := scanRecord(d, row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s record %d: %w", d.Name, id, kverrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.Name, err)
	}
	return r, nil
}

// ValidateFields reports whether Create would accept fields for kind k.
// Nothing is written.
func ValidateFields(k kind.Kind, fields model.Fields) error {
	d, err := describe(k)
	if err != nil {
		return err
	}
	for _, f := range d.Fields {
		if _, err := normalize(f, fields[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

// normalize converts an input value to the column's storage type.
func normalize(f kind.Field, v any) (any, error) {
	if f.Numeric {
		return normalizeNumber(f.Name, v)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return nil, fmt.Errorf("field %s: unsupported value %T: %w", f.Name, v, kverrors.ErrValidation)
}

func normalizeNumber(name string, v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a number: %w", name, t, kverrors.ErrValidation)
		}
		return f, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a number: %w", name, t, kverrors.ErrValidation)
		}
		return f, nil
	}
	return nil, fmt.Errorf("field %s: unsupported value %T: %w", name, v, kverrors.ErrValidation)
}
