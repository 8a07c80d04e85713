// Package archive seals export documents with a passphrase and ships them
// to S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/model"
	"github.com/dukerupert/kinvault/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastUpload *time.Time `json:"last_upload,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// StatusCallback is called whenever the manager state changes.
type StatusCallback func(Status)

// Manager uploads sealed exports and keeps the archives table in step with
// the bucket.
type Manager struct {
	mu       sync.RWMutex
	cfg      S3Config
	status   Status
	callback StatusCallback

	archives *store.ArchiveStore
	client   s3Client
	logger   *slog.Logger
}

func NewManager(cfg S3Config, archives *store.ArchiveStore, logger *slog.Logger, callback StatusCallback) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		archives: archives,
		callback: callback,
		logger:   logger.With("component", "archive"),
		status:   Status{State: StateDisabled},
	}
	if cfg.complete() {
		m.client = newS3Client(cfg)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether remote storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) target() (s3Client, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, "", kverrors.ErrNotConfigured
	}
	return m.client, m.cfg.Bucket, nil
}

// ObjectName returns the file name used for a new upload.
func ObjectName(now time.Time) string {
	return fmt.Sprintf("export-%s-%s.json.enc", now.UTC().Format("2006-01-02T150405Z"), uuid.NewString()[:8])
}

// Upload stores sealed under <userID>/<name> and records the attempt.
// The returned archive reflects the final status, including on failure.
func (m *Manager) Upload(ctx context.Context, userID int64, sealed []byte) (*model.Archive, error) {
	client, bucket, err := m.target()
	if err != nil {
		return nil, err
	}

	m.setStatus(Status{State: StateRunning})

	filename := ObjectName(time.Now())
	s3Key := fmt.Sprintf("%d/%s", userID, filename)

	record, err := m.archives.Create(ctx, userID, filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create archive record: %w", err)
	}

	if err := m.archives.UpdateStatus(ctx, record.ID, model.ArchiveStatusUploading, ""); err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}
	record.Status = model.ArchiveStatusUploading

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		if uerr := m.archives.UpdateStatus(ctx, record.ID, model.ArchiveStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("record failed upload", "archive_id", record.ID, "error", uerr)
		}
		record.Status = model.ArchiveStatusFailed
		record.ErrorMessage = err.Error()
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return record, fmt.Errorf("upload to s3: %w", err)
	}

	if err := m.archives.UpdateCompleted(ctx, record.ID, int64(len(sealed))); err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}

	now := time.Now().UTC()
	record.Status = model.ArchiveStatusCompleted
	record.SizeBytes = int64(len(sealed))
	record.CompletedAt = &now
	m.setStatus(Status{State: StateIdle, LastUpload: &now})

	m.logger.Info("archive uploaded", "archive_id", record.ID, "user_id", userID, "size_bytes", record.SizeBytes)
	return record, nil
}

// Download streams a sealed archive owned by userID.
func (m *Manager) Download(ctx context.Context, id, userID int64) (io.ReadCloser, *model.Archive, error) {
	client, bucket, err := m.target()
	if err != nil {
		return nil, nil, err
	}

	record, err := m.archives.GetByID(ctx, id, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get archive: %w", err)
	}
	if record == nil {
		return nil, nil, fmt.Errorf("archive %d: %w", id, kverrors.ErrNotFound)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record, nil
}

// List returns the user's archives, newest first.
func (m *Manager) List(ctx context.Context, userID int64, limit int) ([]model.Archive, error) {
	return m.archives.List(ctx, userID, limit)
}

// Delete removes the archive row and its object. A failure to delete the
// object is logged, not returned.
func (m *Manager) Delete(ctx context.Context, id, userID int64) error {
	client, bucket, err := m.target()
	if err != nil {
		return err
	}

	key, err := m.archives.Delete(ctx, id, userID)
	if err != nil {
		return err
	}

	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		m.logger.Warn("delete s3 object", "s3_key", key, "error", err)
	}
	return nil
}
