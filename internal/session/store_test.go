package session

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/log"
	"github.com/csvstats/csvstats/internal/storage"
	"github.com/csvstats/csvstats/internal/testutil"
)

// newAPIStore wires a Store to a client for the fake API, with the client
// reading its bearer token back from the store.
func newAPIStore(t *testing.T, fake *testutil.FakeAPI, kv storage.KV) (*Store, *api.Client) {
	t.Helper()
	var store *Store
	client := api.NewClient(fake.URL(), api.TokenFunc(func() string { return store.Token() }))
	store, err := NewStore(kv, client, log.Nop())
	require.NoError(t, err)
	return store, client
}

type fakeAuth struct {
	resp  *api.AuthResponse
	err   error
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

// failingKV wraps a MemoryStore and fails any write that includes failKey.
type failingKV struct {
	*storage.MemoryStore
	failKey string
}

func (f *failingKV) Set(key, value string) error {
	return f.SetMany(map[string]string{key: value})
}

func (f *failingKV) SetMany(values map[string]string) error {
	if _, ok := values[f.failKey]; ok {
		return errors.New("disk full")
	}
	return f.MemoryStore.SetMany(values)
}

// recordingKV wraps a MemoryStore and records the keys of each write.
type recordingKV struct {
	*storage.MemoryStore
	writes [][]string
}

func (r *recordingKV) Set(key, value string) error {
	return r.SetMany(map[string]string{key: value})
}

func (r *recordingKV) SetMany(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.writes = append(r.writes, keys)
	return r.MemoryStore.SetMany(values)
}

func TestLoginStoresTokenAndEmail(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("demo@example.com", "secret", 1)
	kv := storage.NewMemoryStore()
	store, _ := newAPIStore(t, fake, kv)

	resp, err := store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)

	want := &api.AuthResponse{UserID: 1, Email: "demo@example.com", Token: "jwt-token"}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("Login response mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "jwt-token", store.Token())
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "demo@example.com", store.CurrentEmail())

	token, ok, err := kv.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "jwt-token", token)
	email, ok, err := kv.Get(EmailKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "demo@example.com", email)
	assert.Equal(t, 2, kv.Len())
}

func TestStoreTokenUsedForLaterRequests(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("demo@example.com", "secret", 1)
	store, client := newAPIStore(t, fake, storage.NewMemoryStore())

	_, err := client.ListUploads(context.Background())
	assert.True(t, api.IsUnauthorized(err), "signed-out client must not authenticate")

	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)

	_, err = client.ListUploads(context.Background())
	require.NoError(t, err)

	reqs := fake.Requests()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].Authorization)
	assert.Empty(t, reqs[1].Authorization, "login request")
	assert.Equal(t, "Bearer jwt-token", reqs[2].Authorization)
}

func TestLoginRequiresCredentials(t *testing.T) {
	tests := []struct {
		name            string
		email, password string
	}{
		{"both empty", "", ""},
		{"empty email", "", "secret"},
		{"empty password", "demo@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			store, err := NewStore(storage.NewMemoryStore(), auth, log.Nop())
			require.NoError(t, err)

			_, err = store.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrCredentialsRequired)
			assert.Equal(t, 0, auth.calls)
			assert.Contains(t, LoginErrorMessage(err), "required")
		})
	}
}

func TestLoginFailureKeepsPriorSession(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("demo@example.com", "secret", 1)
	kv := storage.NewMemoryStore()
	store, _ := newAPIStore(t, fake, kv)

	_, err := store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)

	_, err = store.Login(context.Background(), "demo@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", LoginErrorMessage(err))

	assert.Equal(t, Session{Token: "jwt-token", Email: "demo@example.com"}, store.Current())
	assert.Equal(t, 2, kv.Len())
}

func TestLoginErrorMessageFallback(t *testing.T) {
	auth := &fakeAuth{err: errors.New("connection refused")}
	store, err := NewStore(storage.NewMemoryStore(), auth, log.Nop())
	require.NoError(t, err)

	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.Error(t, err)
	assert.Equal(t, MsgLoginFailed, LoginErrorMessage(err))

	serverErr := &api.Error{StatusCode: http.StatusInternalServerError}
	assert.Equal(t, MsgLoginFailed, LoginErrorMessage(serverErr))
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	auth := &fakeAuth{resp: &api.AuthResponse{UserID: 1, Email: "demo@example.com"}}
	store, err := NewStore(storage.NewMemoryStore(), auth, log.Nop())
	require.NoError(t, err)

	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated())
}

func TestLoginWritesTokenAndEmailTogether(t *testing.T) {
	kv := &recordingKV{MemoryStore: storage.NewMemoryStore()}
	auth := &fakeAuth{resp: &api.AuthResponse{UserID: 1, Email: "demo@example.com", Token: "jwt-token"}}
	store, err := NewStore(kv, auth, log.Nop())
	require.NoError(t, err)

	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{EmailKey, TokenKey}}, kv.writes)
}

func TestLoginFailedWriteStoresNothing(t *testing.T) {
	kv := &failingKV{MemoryStore: storage.NewMemoryStore(), failKey: EmailKey}
	auth := &fakeAuth{resp: &api.AuthResponse{UserID: 1, Email: "demo@example.com", Token: "jwt-token"}}
	store, err := NewStore(kv, auth, log.Nop())
	require.NoError(t, err)

	var notified int
	store.Subscribe(func(Session) { notified++ })

	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.Error(t, err)

	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, 0, kv.Len(), "no key may be stored on its own")
	assert.Equal(t, 0, notified)
}

func TestLoginFailedWriteKeepsPreviousSession(t *testing.T) {
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(TokenKey, "old-token"))
	require.NoError(t, mem.Set(EmailKey, "old@example.com"))

	kv := &failingKV{MemoryStore: mem, failKey: EmailKey}
	auth := &fakeAuth{resp: &api.AuthResponse{UserID: 2, Email: "new@example.com", Token: "new-token"}}
	store, err := NewStore(kv, auth, log.Nop())
	require.NoError(t, err)

	_, err = store.Login(context.Background(), "new@example.com", "secret")
	require.Error(t, err)

	token, _, _ := mem.Get(TokenKey)
	assert.Equal(t, "old-token", token)
	assert.Equal(t, Session{Token: "old-token", Email: "old@example.com"}, store.Current())
}

func TestLogoutClearsEverything(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("demo@example.com", "secret", 1)
	kv := storage.NewMemoryStore()
	store, _ := newAPIStore(t, fake, kv)

	_, err := store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)

	store.Logout()

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.CurrentEmail())
	assert.Empty(t, store.Token())
	assert.Equal(t, 0, kv.Len())

	// Logging out twice is harmless.
	store.Logout()
	assert.False(t, store.IsAuthenticated())
}

func TestNewStoreRestoresSession(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(TokenKey, "persisted"))
	require.NoError(t, kv.Set(EmailKey, "demo@example.com"))

	store, err := NewStore(kv, &fakeAuth{}, log.Nop())
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "persisted", Email: "demo@example.com"}, store.Current())
}

func TestNewStoreDropsOrphanKey(t *testing.T) {
	for _, key := range []string{TokenKey, EmailKey} {
		t.Run(key, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			require.NoError(t, kv.Set(key, "orphan"))

			store, err := NewStore(kv, &fakeAuth{}, log.Nop())
			require.NoError(t, err)

			assert.False(t, store.IsAuthenticated())
			assert.Empty(t, store.CurrentEmail())
			assert.Equal(t, 0, kv.Len())
		})
	}
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	auth := &fakeAuth{resp: &api.AuthResponse{UserID: 1, Email: "demo@example.com", Token: "jwt-token"}}
	store, err := NewStore(storage.NewMemoryStore(), auth, log.Nop())
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []Session
	cancel := store.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)
	store.Logout()

	cancel()
	cancel()
	_, err = store.Login(context.Background(), "demo@example.com", "secret")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	want := []Session{{Token: "jwt-token", Email: "demo@example.com"}, {}}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadPicksUpExternalChanges(t *testing.T) {
	path := t.TempDir() + "/credentials.yaml"
	ours := storage.NewFileStore(path)
	theirs := storage.NewFileStore(path)

	store, err := NewStore(ours, &fakeAuth{}, log.Nop())
	require.NoError(t, err)

	var notified int
	store.Subscribe(func(Session) { notified++ })

	require.NoError(t, theirs.Set(TokenKey, "external"))
	require.NoError(t, theirs.Set(EmailKey, "other@example.com"))

	require.NoError(t, store.Reload())
	assert.Equal(t, Session{Token: "external", Email: "other@example.com"}, store.Current())
	assert.Equal(t, 1, notified)

	require.NoError(t, store.Reload())
	assert.Equal(t, 1, notified, "unchanged storage must not notify")

	require.NoError(t, theirs.Remove(TokenKey))
	require.NoError(t, store.Reload())
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, 2, notified)
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	path := t.TempDir() + "/credentials.yaml"
	store, err := NewStore(storage.NewFileStore(path), &fakeAuth{}, log.Nop())
	require.NoError(t, err)

	changed := make(chan Session, 4)
	store.Subscribe(func(s Session) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))

	other := storage.NewFileStore(path)
	require.NoError(t, other.Set(TokenKey, "external"))
	require.NoError(t, other.Set(EmailKey, "other@example.com"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changed:
			if s.SignedIn() {
				assert.Equal(t, "other@example.com", s.Email)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for session reload")
		}
	}
}

func TestWatchUnsupportedBackend(t *testing.T) {
	store, err := NewStore(storage.NewMemoryStore(), &fakeAuth{}, log.Nop())
	require.NoError(t, err)
	assert.NoError(t, store.Watch(context.Background()))
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "demo@example.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		want   time.Time
		wantOK bool
	}{
		{"jwt with exp", signed, exp, true},
		{"opaque token", "jwt-token", time.Time{}, false},
		{"signed out", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			if tt.token != "" {
				require.NoError(t, kv.Set(TokenKey, tt.token))
				require.NoError(t, kv.Set(EmailKey, "demo@example.com"))
			}
			store, err := NewStore(kv, &fakeAuth{}, log.Nop())
			require.NoError(t, err)

			got, ok := store.ExpiresAt()
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "ExpiresAt = %v, want %v", got, tt.want)
		})
	}
}
