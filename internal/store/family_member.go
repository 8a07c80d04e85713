package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/model"
)

// FamilyMemberStore scopes every query to the owning user. A member that
// exists under another user is reported exactly like one that does not
// exist at all.
type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

func scanFamilyMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var relationship, dob, notes sql.NullString
	err := scanner.Scan(&m.ID, &m.UserID, &m.Name, &relationship, &dob, &notes)
	if err != nil {
		return nil, err
	}
	m.Relationship = relationship.String
	m.DOB = dob.String
	m.Notes = notes.String
	return &m, nil
}

const familyMemberCols = `id, user_id, name, relationship, dob, notes`

func (s *FamilyMemberStore) Create(ctx context.Context, userID int64, in model.FamilyMemberInput) (*model.FamilyMember, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", kverrors.ErrValidation)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO family_members (user_id, name, relationship, dob, notes) VALUES (?, ?, ?, ?, ?)`,
		userID, name, in.Relationship, in.DOB, in.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.Get(ctx, userID, id)
}

func (s *FamilyMemberStore) List(ctx context.Context, userID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+familyMemberCols+` FROM family_members WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanFamilyMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) Get(ctx context.Context, userID, id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+familyMemberCols+` FROM family_members WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	m, err := scanFamilyMember(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("family member %d: %w", id, kverrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return m, nil
}

// Update overwrites the attributes supplied with a non-empty value and keeps
// the rest.
func (s *FamilyMemberStore) Update(ctx context.Context, userID, id int64, in model.FamilyMemberInput) (*model.FamilyMember, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name := existing.Name
	if n := strings.TrimSpace(in.Name); n != "" {
		name = n
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE family_members SET name = ?, relationship = ?, dob = ?, notes = ? WHERE id = ? AND user_id = ?`,
		name,
		orDefault(in.Relationship, existing.Relationship),
		orDefault(in.DOB, existing.DOB),
		orDefault(in.Notes, existing.Notes),
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the member and cascades to all of its records.
func (s *FamilyMemberStore) Delete(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM family_members WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("family member %d: %w", id, kverrors.ErrNotFound)
	}
	return nil
}

// ensureOwned verifies the user -> member link of the ownership chain.
func ensureOwned(ctx context.Context, db *sql.DB, userID, memberID int64) error {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM family_members WHERE id = ? AND user_id = ?`,
		memberID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("family member %d: %w", memberID, kverrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check family member: %w", err)
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
