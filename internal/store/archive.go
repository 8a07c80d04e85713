package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/model"
)

// ArchiveStore records sealed exports pushed to remote storage.
type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

const archiveCols = `id, user_id, filename, s3_key, size_bytes, status, error_message, created_at, completed_at`

func scanArchive(scanner interface{ Scan(...any) error }) (*model.Archive, error) {
	var a model.Archive
	var errMsg sql.NullString
	var completedAt sql.NullTime
	err := scanner.Scan(&a.ID, &a.UserID, &a.Filename, &a.S3Key, &a.SizeBytes, &a.Status, &errMsg, &a.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	a.ErrorMessage = errMsg.String
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

func (s *ArchiveStore) Create(ctx context.Context, userID int64, filename, s3Key string) (*model.Archive, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO archives (user_id, filename, s3_key, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, filename, s3Key, model.ArchiveStatusPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.Archive{
		ID:        id,
		UserID:    userID,
		Filename:  filename,
		S3Key:     s3Key,
		Status:    model.ArchiveStatusPending,
		CreatedAt: now,
	}, nil
}

// GetByID returns nil, nil when the archive does not exist for the user.
func (s *ArchiveStore) GetByID(ctx context.Context, id, userID int64) (*model.Archive, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveCols+` FROM archives WHERE id = ? AND user_id = ?`, id, userID,
	)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive %d: %w", id, err)
	}
	return a, nil
}

func (s *ArchiveStore) List(ctx context.Context, userID int64, limit int) ([]model.Archive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+archiveCols+` FROM archives WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []model.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

func (s *ArchiveStore) UpdateStatus(ctx context.Context, id int64, status model.ArchiveStatus, errorMsg string) error {
	var errPtr *string
	if errorMsg != "" {
		errPtr = &errorMsg
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE archives SET status = ?, error_message = ? WHERE id = ?`,
		status, errPtr, id,
	)
	if err != nil {
		return fmt.Errorf("update archive status: %w", err)
	}
	return nil
}

func (s *ArchiveStore) UpdateCompleted(ctx context.Context, id, sizeBytes int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE archives SET status = ?, size_bytes = ?, completed_at = ?, error_message = NULL WHERE id = ?`,
		model.ArchiveStatusCompleted, sizeBytes, now, id,
	)
	if err != nil {
		return fmt.Errorf("update archive completed: %w", err)
	}
	return nil
}

// Delete removes the user's archive row and returns its object key.
func (s *ArchiveStore) Delete(ctx context.Context, id, userID int64) (string, error) {
	a, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", fmt.Errorf("archive %d: %w", id, kverrors.ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM archives WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return "", fmt.Errorf("delete archive: %w", err)
	}
	return a.S3Key, nil
}
