package vault

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dukerupert/kinvault/internal/auth"
	"github.com/dukerupert/kinvault/internal/config"
	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
)

func openTestVault(t *testing.T) *Vault {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Path = ":memory:"
	cfg.Encryption.Key = "vault-test-secret"

	v, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("open vault: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func asUser(t *testing.T, v *Vault, name string) context.Context {
	t.Helper()
	u, err := v.Users.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return auth.WithAuth(context.Background(), auth.AuthContext{UserID: u.ID, Username: u.Username})
}

func TestNotAuthorizedWithoutIdentity(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["ListMembers"] = v.ListMembers(ctx)
	_, checks["CreateMember"] = v.CreateMember(ctx, model.FamilyMemberInput{Name: "Priya"})
	_, checks["ListRecords"] = v.ListRecords(ctx, 1, kind.Documents)
	_, checks["CreateRecord"] = v.CreateRecord(ctx, 1, kind.Documents, model.Fields{"number": "X"})
	_, checks["UpdateRecord"] = v.UpdateRecord(ctx, 1, kind.Documents, 1, model.Fields{})
	checks["DeleteRecord"] = v.DeleteRecord(ctx, 1, kind.Documents, 1)
	checks["DeleteMember"] = v.DeleteMember(ctx, 1)
	_, checks["ExportJSON"] = v.ExportJSON(ctx)
	_, checks["Import"] = v.Import(ctx, []byte(`{"familyData":[]}`))
	_, checks["ListArchives"] = v.ListArchives(ctx, 10)
	_, checks["SealExport"] = v.SealExport(ctx, "pass")
	_, checks["ImportSealed"] = v.ImportSealed(ctx, []byte("not a sealed export"), "pass")

	for name, err := range checks {
		if !errors.Is(err, kverrors.ErrNotAuthorized) {
			t.Errorf("%s err = %v, want ErrNotAuthorized", name, err)
		}
	}
}

func TestPriyaEndToEnd(t *testing.T) {
	v := openTestVault(t)
	ctx := asUser(t, v, "alice")

	m, err := v.CreateMember(ctx, model.FamilyMemberInput{Name: "Priya", Relationship: "Self"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	doc, err := v.CreateRecord(ctx, m.ID, kind.Documents, model.Fields{"type": "Passport", "number": "P1234567"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	updated, err := v.UpdateRecord(ctx, m.ID, kind.Documents, doc.ID, model.Fields{"expiry_date": "2030-01-01"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Fields.String("number") != "P1234567" || updated.Fields.String("expiry_date") != "2030-01-01" {
		t.Errorf("updated = %+v", updated.Fields)
	}

	got, err := v.GetRecord(ctx, m.ID, kind.Documents, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fields.String("type") != "Passport" {
		t.Errorf("type = %q", got.Fields.String("type"))
	}

	audit, err := v.Audit(context.Background())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	for _, a := range audit {
		if a.Kind == kind.Documents && (a.Encrypted != 1 || a.Plaintext != 0) {
			t.Errorf("documents audit = %+v, want 1 encrypted", a)
		}
	}

	if err := v.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	if _, err := v.GetRecord(ctx, m.ID, kind.Documents, doc.ID); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("get after member delete err = %v, want ErrNotFound", err)
	}
}

func TestForeignOwnerIsNotFound(t *testing.T) {
	v := openTestVault(t)
	alice := asUser(t, v, "alice")
	bob := asUser(t, v, "bob")

	m, err := v.CreateMember(alice, model.FamilyMemberInput{Name: "Priya"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	r, err := v.CreateRecord(alice, m.ID, kind.Lockers, model.Fields{"locker_number": "L-1"})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	if _, err := v.GetMember(bob, m.ID); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("get member err = %v, want ErrNotFound", err)
	}
	if _, err := v.ListRecords(bob, m.ID, kind.Lockers); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("list err = %v, want ErrNotFound", err)
	}
	if err := v.DeleteRecord(bob, m.ID, kind.Lockers, r.ID); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("delete err = %v, want ErrNotFound", err)
	}

	rows, _ := v.ListRecords(alice, m.ID, kind.Lockers)
	if len(rows) != 1 {
		t.Errorf("alice lockers = %d, want 1", len(rows))
	}
}

func TestSealedExportRoundTrip(t *testing.T) {
	v := openTestVault(t)
	alice := asUser(t, v, "alice")
	bob := asUser(t, v, "bob")

	m, _ := v.CreateMember(alice, model.FamilyMemberInput{Name: "Priya"})
	if _, err := v.CreateRecord(alice, m.ID, kind.Properties, model.Fields{"title": "Flat", "address": "12 MG Road"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := v.SealExport(alice, ""); !errors.Is(err, kverrors.ErrValidation) {
		t.Errorf("empty passphrase err = %v, want ErrValidation", err)
	}

	sealed, err := v.SealExport(alice, "family-pass")
	if err != nil {
		t.Fatalf("seal export: %v", err)
	}

	if _, err := v.ImportSealed(bob, sealed, "wrong"); !errors.Is(err, kverrors.ErrValidation) {
		t.Errorf("wrong passphrase err = %v, want ErrValidation", err)
	}

	result, err := v.ImportSealed(bob, sealed, "family-pass")
	if err != nil {
		t.Fatalf("import sealed: %v", err)
	}
	if result.Members != 1 || result.Records[kind.Properties] != 1 {
		t.Errorf("result = %+v", result)
	}

	members, _ := v.ListMembers(bob)
	props, _ := v.ListRecords(bob, members[0].ID, kind.Properties)
	if len(props) != 1 || props[0].Fields.String("address") != "12 MG Road" {
		t.Errorf("bob properties = %+v", props)
	}
}

func TestUploadWithoutS3IsNotConfigured(t *testing.T) {
	v := openTestVault(t)
	ctx := asUser(t, v, "alice")

	if _, err := v.UploadExport(ctx, "pass"); !errors.Is(err, kverrors.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	archives, err := v.ListArchives(ctx, 10)
	if err != nil {
		t.Fatalf("list archives: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("archives = %d, want 0", len(archives))
	}
}

func TestOpenFileDatabasePersists(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "vault.db")
	cfg.Encryption.Key = "persist-secret"

	v, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := asUser(t, v, "alice")
	m, _ := v.CreateMember(ctx, model.FamilyMemberInput{Name: "Priya"})
	if _, err := v.CreateRecord(ctx, m.ID, kind.Accounts, model.Fields{"account_number": "00112233"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	v.Close()

	reopened, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	rows, err := reopened.ListRecords(ctx, m.ID, kind.Accounts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Fields.String("account_number") != "00112233" {
		t.Errorf("rows = %+v", rows)
	}

	cfg.Encryption.Key = "another-secret"
	other, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("open with other key: %v", err)
	}
	defer other.Close()
	rows, _ = other.ListRecords(ctx, m.ID, kind.Accounts)
	if rows[0].Fields.String("account_number") == "00112233" {
		t.Error("a different key should not decrypt the stored value")
	}
}
