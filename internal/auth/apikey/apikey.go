// Package apikey validates API keys against PostgreSQL. Raw keys are
// generated with crypto/rand and only their SHA-256 digest is stored; a
// presented key is hashed and looked up by digest.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/postgres"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

// Schema creates the table the Validator reads. It is idempotent.
const Schema = `CREATE TABLE IF NOT EXISTS api_keys (
	id         BIGSERIAL PRIMARY KEY,
	key_hash   TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	can_write  BOOLEAN NOT NULL DEFAULT false,
	rate_limit INTEGER NOT NULL DEFAULT 0,
	is_active  BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ
)`

// KeyInfo describes a validated key. RateLimit is requests per limiter
// window; zero means the anonymous default applies.
type KeyInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CanWrite  bool       `json:"can_write"`
	RateLimit int        `json:"rate_limit"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the key has passed its expiry at now.
func (k *KeyInfo) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// NewKey describes a key to create.
type NewKey struct {
	Name      string
	CanWrite  bool
	RateLimit int
	ExpiresAt *time.Time
}

// Validator reads and manages the api_keys table.
type Validator struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewValidator(db *postgres.Client) *Validator {
	return &Validator{
		db:     db,
		logger: slog.Default().With("component", "apikey-validator"),
	}
}

// EnsureSchema creates the api_keys table if it does not exist.
func (v *Validator) EnsureSchema(ctx context.Context) error {
	if _, err := v.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating api_keys table: %w", err)
	}
	return nil
}

// Validate looks up an active key by the digest of rawKey.
func (v *Validator) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	var (
		info      KeyInfo
		expiresAt sql.NullTime
	)
	err := v.db.DB.QueryRowContext(ctx,
		`SELECT id, name, can_write, rate_limit, created_at, expires_at
		 FROM api_keys
		 WHERE key_hash = $1 AND is_active = true`,
		HashKey(rawKey),
	).Scan(&info.ID, &info.Name, &info.CanWrite, &info.RateLimit, &info.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	if expiresAt.Valid {
		info.ExpiresAt = &expiresAt.Time
	}
	if info.Expired(time.Now()) {
		return nil, ErrExpiredKey
	}
	return &info, nil
}

// CreateKey stores a new key and returns the raw key. The raw key cannot
// be recovered later.
func (v *Validator) CreateKey(ctx context.Context, k NewKey) (string, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", err
	}
	var expiry sql.NullTime
	if k.ExpiresAt != nil {
		expiry = sql.NullTime{Time: *k.ExpiresAt, Valid: true}
	}
	_, err = v.db.DB.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, name, can_write, rate_limit, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		HashKey(rawKey), k.Name, k.CanWrite, k.RateLimit, expiry,
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	v.logger.Info("api key created", "name", k.Name, "can_write", k.CanWrite, "rate_limit", k.RateLimit)
	return rawKey, nil
}

// RevokeKey deactivates the key with the given digest.
func (v *Validator) RevokeKey(ctx context.Context, keyHash string) error {
	result, err := v.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = false WHERE key_hash = $1 AND is_active = true`,
		keyHash,
	)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidKey
	}
	v.logger.Info("api key revoked")
	return nil
}

// ListKeys returns all active keys, newest first.
func (v *Validator) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := v.db.DB.QueryContext(ctx,
		`SELECT id, name, can_write, rate_limit, created_at, expires_at
		 FROM api_keys WHERE is_active = true ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var k KeyInfo
		var expiresAt sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.CanWrite, &k.RateLimit, &k.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HashKey returns the SHA-256 hex digest of a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
