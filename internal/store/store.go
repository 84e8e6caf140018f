package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/skycastd/skycast/internal/model"
)

// Store is the system of record backed by SQLite. It persists users, API key
// records (hashes only, never secrets), and devices.
type Store struct {
	db *sqlx.DB
}

// New creates a new store. Pass empty string for in-memory.
func New(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "skycast.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser inserts a new user. The ID, CreatedAt, and UpdatedAt fields on
// user are populated after a successful insert. Returns ErrDuplicate if the
// username is taken.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const q = `INSERT INTO users (username, password_hash, role, created_at, updated_at)
		VALUES (:username, :password_hash, :role, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, user)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByUsername returns a user by exact, case-sensitive username match.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = ?", username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// GetUserByID returns a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetUserRole updates a user's role. This is an operator action exposed via
// the CLI, not a request-time mutation.
func (s *Store) SetUserRole(ctx context.Context, id int64, role model.Role) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET role = ?, updated_at = ? WHERE id = ?", role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user role rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a new API key record. The key_secret_hash must already
// be set; plaintext secrets never reach the store. The ID and CreatedAt fields
// are populated after insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO api_keys
		(key_id, key_secret_hash, owner_id, name, secret_viewed, last_used, expires_at, created_at)
		VALUES
		(:key_id, :key_secret_hash, :owner_id, :name, :secret_viewed, :last_used, :expires_at, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, key)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert api key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get api key id: %w", err)
	}
	key.ID = id
	return nil
}

// GetAPIKeyByKeyID looks up an API key by its public key_id.
func (s *Store) GetAPIKeyByKeyID(ctx context.Context, keyID string) (*model.APIKey, error) {
	var key model.APIKey
	if err := s.db.GetContext(ctx, &key, "SELECT * FROM api_keys WHERE key_id = ?", keyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &key, nil
}

// ListAPIKeysByOwner returns all API keys belonging to a user.
func (s *Store) ListAPIKeysByOwner(ctx context.Context, ownerID int64) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys,
		"SELECT * FROM api_keys WHERE owner_id = ? ORDER BY created_at DESC", ownerID); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// ListAPIKeys returns all API keys.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// ReplaceAPIKeySecret swaps in a new secret hash and resets the one-time-view
// flag. The single UPDATE makes the swap atomic: at no point do both the old
// and new secrets verify.
func (s *Store) ReplaceAPIKeySecret(ctx context.Context, keyID, secretHash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET key_secret_hash = ?, secret_viewed = 0 WHERE key_id = ?", secretHash, keyID)
	if err != nil {
		return fmt.Errorf("replace api key secret: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace api key secret rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAPIKeySecretViewed sets the secret_viewed flag. Returns ErrNotFound for
// unknown key_ids; callers treat that as a no-op to keep acknowledgment
// idempotent.
func (s *Store) MarkAPIKeySecretViewed(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET secret_viewed = 1 WHERE key_id = ?", keyID)
	if err != nil {
		return fmt.Errorf("mark api key viewed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark api key viewed rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAPIKeyLastUsed sets the last_used timestamp for an API key.
func (s *Store) TouchAPIKeyLastUsed(ctx context.Context, keyID string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used = ? WHERE key_id = ?", time.Now().UTC(), keyID); err != nil {
		return fmt.Errorf("touch api key last used: %w", err)
	}
	return nil
}

// DeleteAPIKey removes an API key record. key_ids are never reused, so a
// deleted key can never verify again.
func (s *Store) DeleteAPIKey(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE key_id = ?", keyID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Devices
// ---------------------------------------------------------------------------

// CreateDevice inserts a new device. The ID, CreatedAt, and UpdatedAt fields
// are populated after a successful insert.
func (s *Store) CreateDevice(ctx context.Context, dev *model.Device) error {
	now := time.Now().UTC()
	dev.CreatedAt = now
	dev.UpdatedAt = now

	const q = `INSERT INTO devices
		(device_id, owner_id, name, address, lat, lon, timezone, display_settings, last_seen, created_at, updated_at)
		VALUES
		(:device_id, :owner_id, :name, :address, :lat, :lon, :timezone, :display_settings, :last_seen, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, dev)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert device: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get device id: %w", err)
	}
	dev.ID = id
	return nil
}

// GetDeviceByDeviceID returns a device by its public device_id.
func (s *Store) GetDeviceByDeviceID(ctx context.Context, deviceID string) (*model.Device, error) {
	var dev model.Device
	if err := s.db.GetContext(ctx, &dev, "SELECT * FROM devices WHERE device_id = ?", deviceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &dev, nil
}

// ListDevices returns all devices ordered by creation time.
func (s *Store) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.SelectContext(ctx, &devices, "SELECT * FROM devices ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// ListDevicesByOwner returns all devices owned by a user.
func (s *Store) ListDevicesByOwner(ctx context.Context, ownerID int64) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.SelectContext(ctx, &devices,
		"SELECT * FROM devices WHERE owner_id = ? ORDER BY created_at DESC", ownerID); err != nil {
		return nil, fmt.Errorf("list devices by owner: %w", err)
	}
	return devices, nil
}

// UpdateDevice updates a device's mutable fields. The UpdatedAt field is
// refreshed automatically.
func (s *Store) UpdateDevice(ctx context.Context, dev *model.Device) error {
	dev.UpdatedAt = time.Now().UTC()

	const q = `UPDATE devices SET
		name = :name, address = :address, lat = :lat, lon = :lon,
		timezone = :timezone, display_settings = :display_settings, updated_at = :updated_at
		WHERE device_id = :device_id`

	result, err := s.db.NamedExecContext(ctx, q, dev)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update device rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDevice removes a device by its public device_id.
func (s *Store) DeleteDevice(ctx context.Context, deviceID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM devices WHERE device_id = ?", deviceID)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete device rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchDeviceLastSeen sets the last_seen timestamp for a device.
func (s *Store) TouchDeviceLastSeen(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE devices SET last_seen = ? WHERE device_id = ?", time.Now().UTC(), deviceID); err != nil {
		return fmt.Errorf("touch device last seen: %w", err)
	}
	return nil
}
