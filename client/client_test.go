package client_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkweon/asset-tracker/client"
	"github.com/mkweon/asset-tracker/client/session"
)

func tokenWithExp(exp time.Time) string {
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(fmt.Sprintf(`{"exp":%d}`, exp.Unix())))
	return "header." + payload + ".sig"
}

// newLoggedInClient returns a client holding a token valid for an hour, so
// requests reach the test server instead of failing the expiry check.
func newLoggedInClient(t *testing.T, serverURL string, onLogout func()) *client.Client {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.SetToken(tokenWithExp(time.Now().Add(time.Hour))))
	return client.New(serverURL, store, onLogout, client.WithQuietLog())
}

// WHY: a 401 on any authed call means the server no longer honors the token;
// the client must end the session locally instead of looping on retries.
func TestClient_UnauthorizedEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var loggedOut bool
	c := newLoggedInClient(t, srv.URL, func() { loggedOut = true })

	_, err := c.Assets(context.Background())

	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.True(t, loggedOut, "logout hook must run")
	assert.Empty(t, c.Session().Token(), "token must be cleared")
}

// WHY: login and register are how the user gets back in; a 401 there is a
// wrong password, not an expired session, and must not clear anything.
func TestClient_LoginUnauthorizedIsNotExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "Unauthorized", "detail": "Invalid credentials"}`)
	}))
	defer srv.Close()

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	c := client.New(srv.URL, store, nil, client.WithQuietLog())

	err := c.Login(context.Background(), "alice", "wrong")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.NotErrorIs(t, err, session.ErrSessionExpired)
}

// WHY: the message shown to the user comes from whichever field the server
// filled; the fallback order decides what a bare 500 looks like on screen.
func TestClient_ParseErrorPrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "detail wins over error",
			body: `{"error": "Bad request", "detail": "수량은 양의 정수여야 합니다."}`,
			want: "수량은 양의 정수여야 합니다.",
		},
		{
			name: "error wins over message",
			body: `{"error": "Conflict", "message": "ignored"}`,
			want: "Conflict",
		},
		{
			name: "message as last structured field",
			body: `{"message": "something went wrong"}`,
			want: "something went wrong",
		},
		{
			name: "plain text body",
			body: "upstream exploded",
			want: "upstream exploded",
		},
		{
			name: "empty body falls back to status text",
			body: "",
			want: http.StatusText(http.StatusBadRequest),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := newLoggedInClient(t, srv.URL, nil)
			_, err := c.Summary(context.Background())

			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

// WHY: a dead server and an expired session look completely different to the
// user; the transport error must stay distinguishable with errors.Is.
func TestClient_ServerUnreachable(t *testing.T) {
	// A port nothing listens on.
	c := newLoggedInClient(t, "http://127.0.0.1:1", nil)

	_, err := c.Assets(context.Background())

	assert.ErrorIs(t, err, client.ErrServerUnreachable)
	assert.NotErrorIs(t, err, session.ErrSessionExpired)
}

// WHY: a token inside the expiry threshold triggers a refresh before the
// actual request, and the request must then carry the renewed token.
func TestClient_SilentRefreshBeforeRequest(t *testing.T) {
	fresh := tokenWithExp(time.Now().Add(time.Hour))
	var sawToken string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /refresh-token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"access_token": %q, "token_type": "bearer"}`, fresh)
	})
	mux.HandleFunc("GET /assets", func(w http.ResponseWriter, r *http.Request) {
		sawToken = r.Header.Get("Authorization")
		fmt.Fprint(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.SetToken(tokenWithExp(time.Now().Add(2*time.Minute))))
	c := client.New(srv.URL, store, nil, client.WithQuietLog())

	_, err := c.Assets(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer "+fresh, sawToken, "request must carry the renewed token")
	assert.Equal(t, fresh, c.Session().Token())
}

// WHY: login must persist the issued token so the next process run starts
// authenticated.
func TestClient_LoginStoresToken(t *testing.T) {
	issued := tokenWithExp(time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"access_token": %q, "token_type": "bearer"}`, issued)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	c := client.New(srv.URL, session.NewStore(path), nil, client.WithQuietLog())

	require.NoError(t, c.Login(context.Background(), "alice", "password"))

	assert.Equal(t, issued, c.Session().Token())
	assert.Equal(t, issued, session.NewStore(path).Token(), "token must survive a restart")
}

// Guard against the wrapped transport error hiding the sentinel.
func TestErrServerUnreachableWrapping(t *testing.T) {
	err := fmt.Errorf("%w: %v", client.ErrServerUnreachable, errors.New("dial tcp: refused"))
	assert.ErrorIs(t, err, client.ErrServerUnreachable)
	assert.Contains(t, err.Error(), "서버에 연결할 수 없습니다")
}
