// Package vault is the entry point callers use once they have an
// authenticated user. Every operation resolves the acting user from the
// context and hands it to the store, which checks ownership in SQL.
package vault

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukerupert/kinvault/internal/archive"
	"github.com/dukerupert/kinvault/internal/auth"
	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/fieldcrypt"
	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
	"github.com/dukerupert/kinvault/internal/store"
	"github.com/dukerupert/kinvault/internal/transfer"
)

type Service struct {
	members  *store.FamilyMemberStore
	records  *store.RecordStore
	transfer *transfer.Service
	archives *archive.Manager
	cipher   *fieldcrypt.Cipher
	logger   *slog.Logger
}

type Deps struct {
	Members  *store.FamilyMemberStore
	Records  *store.RecordStore
	Transfer *transfer.Service
	Archives *archive.Manager
	Cipher   *fieldcrypt.Cipher
	Logger   *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		members:  d.Members,
		records:  d.Records,
		transfer: d.Transfer,
		archives: d.Archives,
		cipher:   d.Cipher,
		logger:   logger.With("component", "vault"),
	}
}

func actingUser(ctx context.Context) (int64, error) {
	id := auth.UserID(ctx)
	if id == 0 {
		return 0, kverrors.ErrNotAuthorized
	}
	return id, nil
}

func (s *Service) ListMembers(ctx context.Context) ([]model.FamilyMember, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.members.List(ctx, uid)
}

func (s *Service) GetMember(ctx context.Context, id int64) (*model.FamilyMember, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.members.Get(ctx, uid, id)
}

func (s *Service) CreateMember(ctx context.Context, in model.FamilyMemberInput) (*model.FamilyMember, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.members.Create(ctx, uid, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("member created", "user_id", uid, "member_id", m.ID)
	return m, nil
}

func (s *Service) UpdateMember(ctx context.Context, id int64, in model.FamilyMemberInput) (*model.FamilyMember, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.members.Update(ctx, uid, id, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("member updated", "user_id", uid, "member_id", id)
	return m, nil
}

// DeleteMember removes the member and every record under it.
func (s *Service) DeleteMember(ctx context.Context, id int64) error {
	uid, err := actingUser(ctx)
	if err != nil {
		return err
	}
	if err := s.members.Delete(ctx, uid, id); err != nil {
		return err
	}
	s.logger.Info("member deleted", "user_id", uid, "member_id", id)
	return nil
}

func (s *Service) ListRecords(ctx context.Context, memberID int64, k kind.Kind) ([]model.Record, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.records.List(ctx, uid, memberID, k)
}

func (s *Service) GetRecord(ctx context.Context, memberID int64, k kind.Kind, id int64) (*model.Record, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.records.Get(ctx, uid, memberID, k, id)
}

func (s *Service) CreateRecord(ctx context.Context, memberID int64, k kind.Kind, fields model.Fields) (*model.Record, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.records.Create(ctx, uid, memberID, k, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record created", "user_id", uid, "member_id", memberID, "kind", k.String(), "record_id", r.ID)
	return r, nil
}

func (s *Service) UpdateRecord(ctx context.Context, memberID int64, k kind.Kind, id int64, partial model.Fields) (*model.Record, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.records.Update(ctx, uid, memberID, k, id, partial)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record updated", "user_id", uid, "member_id", memberID, "kind", k.String(), "record_id", id)
	return r, nil
}

func (s *Service) DeleteRecord(ctx context.Context, memberID int64, k kind.Kind, id int64) error {
	uid, err := actingUser(ctx)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, uid, memberID, k, id); err != nil {
		return err
	}
	s.logger.Info("record deleted", "user_id", uid, "member_id", memberID, "kind", k.String(), "record_id", id)
	return nil
}

func (s *Service) Export(ctx context.Context) (*transfer.Document, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.transfer.Export(ctx, uid)
}

func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.transfer.ExportJSON(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export generated", "user_id", uid, "size_bytes", len(payload))
	return payload, nil
}

// Import creates the payload's members and records under the acting user.
// On error the returned Result counts what was created before the failure.
func (s *Service) Import(ctx context.Context, payload []byte) (transfer.Result, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return transfer.Result{}, err
	}
	return s.transfer.Import(ctx, uid, payload)
}

// SealExport returns the acting user's export sealed under passphrase.
func (s *Service) SealExport(ctx context.Context, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required: %w", kverrors.ErrValidation)
	}
	payload, err := s.ExportJSON(ctx)
	if err != nil {
		return nil, err
	}
	return archive.Seal(payload, passphrase)
}

// ImportSealed opens a sealed export and imports it.
func (s *Service) ImportSealed(ctx context.Context, sealed []byte, passphrase string) (transfer.Result, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return transfer.Result{}, err
	}
	payload, err := archive.Open(sealed, passphrase)
	if err != nil {
		return transfer.Result{}, fmt.Errorf("open archive: %v: %w", err, kverrors.ErrValidation)
	}
	return s.transfer.Import(ctx, uid, payload)
}

// UploadExport seals the acting user's export and pushes it to remote storage.
func (s *Service) UploadExport(ctx context.Context, passphrase string) (*model.Archive, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if s.archives == nil || !s.archives.Enabled() {
		return nil, kverrors.ErrNotConfigured
	}
	sealed, err := s.SealExport(ctx, passphrase)
	if err != nil {
		return nil, err
	}
	return s.archives.Upload(ctx, uid, sealed)
}

func (s *Service) ListArchives(ctx context.Context, limit int) ([]model.Archive, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if s.archives == nil {
		return nil, kverrors.ErrNotConfigured
	}
	return s.archives.List(ctx, uid, limit)
}

func (s *Service) DownloadArchive(ctx context.Context, id int64) (io.ReadCloser, *model.Archive, error) {
	uid, err := actingUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	if s.archives == nil {
		return nil, nil, kverrors.ErrNotConfigured
	}
	return s.archives.Download(ctx, id, uid)
}

func (s *Service) DeleteArchive(ctx context.Context, id int64) error {
	uid, err := actingUser(ctx)
	if err != nil {
		return err
	}
	if s.archives == nil {
		return kverrors.ErrNotConfigured
	}
	return s.archives.Delete(ctx, id, uid)
}

// KindAudit counts stored sensitive values of one kind.
type KindAudit struct {
	Kind      kind.Kind
	Encrypted int
	Plaintext int
}

// Audit counts, across all users, how many sensitive values are stored as
// envelopes under the current key and how many are not. Values written
// under another key are counted as plaintext.
func (s *Service) Audit(ctx context.Context) ([]KindAudit, error) {
	out := make([]KindAudit, 0, len(kind.All()))
	for _, k := range kind.All() {
		values, err := s.records.SensitiveValues(ctx, k)
		if err != nil {
			return nil, err
		}
		a := KindAudit{Kind: k}
		for _, v := range values {
			if s.cipher.IsEnvelope(v) {
				a.Encrypted++
			} else {
				a.Plaintext++
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// ArchivesEnabled reports whether remote archive storage is configured.
func (s *Service) ArchivesEnabled() bool {
	return s.archives != nil && s.archives.Enabled()
}
