package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/kinvault/internal/database"
	"github.com/dukerupert/kinvault/internal/fieldcrypt"
	"github.com/dukerupert/kinvault/internal/keys"
)

type testStores struct {
	db      *sql.DB
	users   *UserStore
	members *FamilyMemberStore
	records *RecordStore
	cipher  *fieldcrypt.Cipher
}

func setupTestDB(t *testing.T) *testStores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	km, err := keys.New("store-test-secret")
	if err != nil {
		t.Fatalf("new key manager: %v", err)
	}
	t.Cleanup(km.Destroy)

	c, err := fieldcrypt.New(km)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	return &testStores{
		db:      db,
		users:   NewUserStore(db),
		members: NewFamilyMemberStore(db),
		records: NewRecordStore(db, fieldcrypt.NewPolicy(c)),
		cipher:  c,
	}
}

func mustUser(t *testing.T, s *testStores, name string) int64 {
	t.Helper()
	u, err := s.users.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.ID
}
