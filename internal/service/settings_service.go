package service

import (
	"errors"
	"log"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/repository"
)

// SettingsService manages stored provider credentials. A key stored through
// the API takes precedence over the environment bootstrap value.
type SettingsService struct {
	settings *repository.SettingsRepository
	envKey   string
}

// NewSettingsService creates a new SettingsService. envKey is the
// FINNHUB_API_KEY from the environment, used when nothing is stored.
func NewSettingsService(settings *repository.SettingsRepository, envKey string) *SettingsService {
	return &SettingsService{settings: settings, envKey: envKey}
}

// FinnhubKey resolves the current Finnhub API key. Returns the empty
// string when no key is configured anywhere.
func (s *SettingsService) FinnhubKey() string {
	stored, err := s.settings.GetEncrypted(repository.SettingFinnhubAPIKey)
	if err == nil && stored != "" {
		return stored
	}
	if err != nil && !errors.Is(err, apperrors.ErrSettingNotFound) {
		log.Printf("Failed to read stored finnhub key: %v", err)
	}
	return s.envKey
}

// SetFinnhubKey stores a new Finnhub API key encrypted at rest.
func (s *SettingsService) SetFinnhubKey(key string) error {
	return s.settings.SetEncrypted(repository.SettingFinnhubAPIKey, key)
}

// FinnhubKeyState describes the configured key without revealing it.
type FinnhubKeyState struct {
	Configured bool   `json:"configured"`
	MaskedKey  string `json:"masked_key"`
}

// FinnhubState reports whether a key is configured, masked to its last
// four characters.
func (s *SettingsService) FinnhubState() FinnhubKeyState {
	key := s.FinnhubKey()
	if key == "" {
		return FinnhubKeyState{}
	}
	masked := "****"
	if len(key) > 4 {
		masked = "****" + key[len(key)-4:]
	}
	return FinnhubKeyState{Configured: true, MaskedKey: masked}
}
