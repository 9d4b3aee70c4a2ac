package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"

	"github.com/mkweon/asset-tracker/internal/apperrors"
)

// Settings keys.
const (
	SettingFinnhubAPIKey = "finnhub_api_key"
)

// SettingsRepository stores key/value settings. Values written through
// SetEncrypted are fernet-encrypted at rest so provider credentials never
// land in the database in plaintext.
type SettingsRepository struct {
	db  *sql.DB
	key *fernet.Key
}

// NewSettingsRepository creates a SettingsRepository. fernetKey must be a
// base64-encoded 32-byte fernet key; an empty key disables encrypted
// settings (Get/Set return ErrSettingNotFound / an error).
func NewSettingsRepository(db *sql.DB, fernetKey string) (*SettingsRepository, error) {
	repo := &SettingsRepository{db: db}
	if fernetKey != "" {
		key, err := fernet.DecodeKey(fernetKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode fernet key: %w", err)
		}
		repo.key = key
	}
	return repo, nil
}

// SetEncrypted stores a value encrypted with the configured fernet key.
func (r *SettingsRepository) SetEncrypted(settingKey, value string) error {
	if r.key == nil {
		return fmt.Errorf("fernet key not configured")
	}

	token, err := fernet.EncryptAndSign([]byte(value), r.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt setting: %w", err)
	}

	query := `
          INSERT INTO settings (key, value, updated_at)
          VALUES (?, ?, CURRENT_TIMESTAMP)
          ON CONFLICT(key) DO UPDATE SET
              value = excluded.value,
              updated_at = CURRENT_TIMESTAMP
      `
	if _, err := r.db.Exec(query, settingKey, string(token)); err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}

// GetEncrypted retrieves and decrypts a stored value.
func (r *SettingsRepository) GetEncrypted(settingKey string) (string, error) {
	if r.key == nil {
		return "", apperrors.ErrSettingNotFound
	}

	var stored string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, settingKey).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting: %w", err)
	}

	// TTL 0: stored credentials do not expire.
	plain := fernet.VerifyAndDecrypt([]byte(stored), 0, []*fernet.Key{r.key})
	if plain == nil {
		return "", fmt.Errorf("failed to decrypt setting %q", settingKey)
	}
	return string(plain), nil
}
