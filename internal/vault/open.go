package vault

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/kinvault/internal/archive"
	"github.com/dukerupert/kinvault/internal/config"
	"github.com/dukerupert/kinvault/internal/database"
	"github.com/dukerupert/kinvault/internal/fieldcrypt"
	"github.com/dukerupert/kinvault/internal/keys"
	"github.com/dukerupert/kinvault/internal/store"
	"github.com/dukerupert/kinvault/internal/transfer"
)

// Vault owns the open database and key for the life of the process.
type Vault struct {
	*Service
	Users *store.UserStore

	db   *sql.DB
	keys *keys.Manager
}

// Open opens the database, derives the field key and wires every store.
func Open(cfg config.Config, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}

	km, err := keys.New(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}
	if km.UsingDefault() {
		logger.Warn("encryption key not configured, using the built-in development key",
			"component", "keys")
	}

	cipher, err := fieldcrypt.New(km)
	if err != nil {
		km.Destroy()
		return nil, err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		km.Destroy()
		return nil, fmt.Errorf("open database %q: %w", cfg.Database.Path, err)
	}

	members := store.NewFamilyMemberStore(db)
	records := store.NewRecordStore(db, fieldcrypt.NewPolicy(cipher))
	archives := archive.NewManager(archive.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	}, store.NewArchiveStore(db), logger, nil)

	svc := NewService(Deps{
		Members:  members,
		Records:  records,
		Transfer: transfer.NewService(members, records, logger),
		Archives: archives,
		Cipher:   cipher,
		Logger:   logger,
	})

	return &Vault{Service: svc, Users: store.NewUserStore(db), db: db, keys: km}, nil
}

// Close closes the database and wipes the key.
func (v *Vault) Close() error {
	defer v.keys.Destroy()
	return v.db.Close()
}

// UsingDefaultKey reports whether no encryption key was configured.
func (v *Vault) UsingDefaultKey() bool {
	return v.keys.UsingDefault()
}
