package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is returned when the session is gone and the user must
// log in again. The message is shown to the user as is.
var ErrSessionExpired = errors.New("세션이 만료되었습니다. 다시 로그인해주세요.")

// ErrUnauthorized is what a RefreshFunc returns when the server rejected the
// token with a 401. The manager converts it into a logout plus
// ErrSessionExpired.
var ErrUnauthorized = errors.New("refresh rejected")

// RefreshFunc exchanges the current token for a new one.
type RefreshFunc func(ctx context.Context, token string) (string, error)

// DefaultExpiryThreshold is how close to expiry a token may get before
// EnsureFresh attempts a silent refresh.
const DefaultExpiryThreshold = 5 * time.Minute

// Manager wraps a Store with expiry inspection and coalesced refresh.
type Manager struct {
	store   *Store
	refresh RefreshFunc
	group   singleflight.Group

	// onLogout runs after the store is cleared, e.g. to drop to the login
	// prompt. May be nil.
	onLogout func()

	threshold time.Duration
	now       func() time.Time
}

// NewManager creates a session manager. refresh may be nil for read-only
// inspection; Refresh then fails.
func NewManager(store *Store, refresh RefreshFunc, onLogout func()) *Manager {
	return &Manager{
		store:     store,
		refresh:   refresh,
		onLogout:  onLogout,
		threshold: DefaultExpiryThreshold,
		now:       time.Now,
	}
}

// Token returns the current token, or "" when logged out.
func (m *Manager) Token() string {
	return m.store.Token()
}

// SetToken stores a freshly issued token.
func (m *Manager) SetToken(token string) error {
	return m.store.SetToken(token)
}

// TimeRemaining reports how long the token stays valid. The second return
// is false when there is no token or its expiry cannot be read; callers
// treat that as already expired.
func (m *Manager) TimeRemaining() (time.Duration, bool) {
	token := m.store.Token()
	if token == "" {
		return 0, false
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, false
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return 0, false
	}

	return time.Unix(claims.Exp, 0).Sub(m.now()), true
}

// Expired reports whether the token is unusable. Unknown expiry counts as
// expired.
func (m *Manager) Expired() bool {
	remaining, ok := m.TimeRemaining()
	return !ok || remaining <= 0
}

// ExpiringSoon reports whether the token is inside the refresh threshold.
func (m *Manager) ExpiringSoon() bool {
	remaining, ok := m.TimeRemaining()
	return ok && remaining > 0 && remaining <= m.threshold
}

// Refresh exchanges the token for a new one. Concurrent callers share a
// single network call and receive the same result. A 401 from the server
// logs the session out and returns ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	token, err, _ := m.group.Do("refresh", func() (any, error) {
		current := m.store.Token()
		if current == "" {
			return "", ErrSessionExpired
		}
		if m.refresh == nil {
			return "", errors.New("no refresh configured")
		}

		fresh, err := m.refresh(ctx, current)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				m.Logout()
				return "", ErrSessionExpired
			}
			return "", err
		}

		if err := m.store.SetToken(fresh); err != nil {
			return "", err
		}
		return fresh, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Logout clears the stored token and runs the logout hook.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		log.Printf("Failed to clear session: %v", err)
	}
	if m.onLogout != nil {
		m.onLogout()
	}
}

// EnsureFresh prepares the session for an outgoing request. An expired
// token forces a logout; a token close to expiry triggers a best-effort
// silent refresh, keeping the old token when the refresh fails.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	if m.Expired() {
		m.Logout()
		return ErrSessionExpired
	}

	if m.ExpiringSoon() {
		if _, err := m.Refresh(ctx); err != nil {
			if errors.Is(err, ErrSessionExpired) {
				return err
			}
			log.Printf("Silent token refresh failed: %v", err)
		}
	}
	return nil
}
