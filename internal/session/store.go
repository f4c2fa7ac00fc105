package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/log"
	"github.com/csvstats/csvstats/internal/storage"
)

// Store is the single owner of session state. It is safe for concurrent use.
type Store struct {
	kv     storage.KV
	auth   Authenticator
	logger *log.Logger

	// writeMu serializes storage writes; mu guards current.
	writeMu sync.Mutex
	mu      sync.RWMutex
	current Session

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

// NewStore loads the persisted session from kv. A lone token or email left in
// storage is treated as signed out and removed.
func NewStore(kv storage.KV, auth Authenticator, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Store{
		kv:     kv,
		auth:   auth,
		logger: logger,
		subs:   make(map[int]func(Session)),
	}

	sess, err := s.load(true)
	if err != nil {
		return nil, err
	}
	s.current = sess
	return s, nil
}

// load reads both keys. A lone key means signed out; it is deleted only when
// removeOrphan is set, since another process may be midway through writing
// the pair.
func (s *Store) load(removeOrphan bool) (Session, error) {
	values, err := s.kv.GetMany(TokenKey, EmailKey)
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	token, hasToken := values[TokenKey]
	email, hasEmail := values[EmailKey]

	if hasToken && hasEmail && token != "" {
		return Session{Token: token, Email: email}, nil
	}
	if removeOrphan && (hasToken || hasEmail) {
		s.logger.Zap().Warn("discarding incomplete stored session",
			zap.Bool("has_token", hasToken), zap.Bool("has_email", hasEmail))
		s.removeKeys()
	}
	return Session{}, nil
}

// ValidateCredentials is the client-side check run before any network call.
func ValidateCredentials(email, password string) error {
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}
	return nil
}

// LoginErrorMessage maps a Login error to the text shown to the user.
func LoginErrorMessage(err error) string {
	if errors.Is(err, ErrCredentialsRequired) {
		return MsgCredentialsRequired
	}
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	return MsgLoginFailed
}

// Login authenticates and, on success, persists and publishes the new session.
// On any failure the previous session is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.auth.Login(ctx, email, password)
	if err == nil && resp.Token == "" {
		err = errors.New("login response carried no token")
	}
	if err != nil {
		_ = s.logger.Append(log.LogEvent{
			Event: log.EventLoginFailed,
			Email: email,
			Error: err.Error(),
		})
		return nil, fmt.Errorf("logging in: %w", err)
	}

	next := Session{Token: resp.Token, Email: resp.Email}
	if next.Email == "" {
		next.Email = email
	}

	s.writeMu.Lock()
	if err := s.persist(next); err != nil {
		s.writeMu.Unlock()
		_ = s.logger.Append(log.LogEvent{
			Event: log.EventLoginFailed,
			Email: email,
			Error: err.Error(),
		})
		return nil, err
	}
	s.set(next)
	s.writeMu.Unlock()

	_ = s.logger.Append(log.LogEvent{
		Event:      log.EventLoginSucceeded,
		Email:      next.Email,
		DurationMs: time.Since(start).Milliseconds(),
	})
	s.notify(next)
	return resp, nil
}

// persist writes both keys in one store operation, so no reader sees the
// new token paired with the previous email.
func (s *Store) persist(next Session) error {
	err := s.kv.SetMany(map[string]string{
		TokenKey: next.Token,
		EmailKey: next.Email,
	})
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Logout clears the session. It cannot fail: storage errors are logged and
// the in-memory state is cleared regardless.
func (s *Store) Logout() {
	s.writeMu.Lock()
	prev := s.Current()
	s.removeKeys()
	s.set(Session{})
	s.writeMu.Unlock()

	_ = s.logger.Append(log.LogEvent{Event: log.EventLogout, Email: prev.Email})
	if prev.SignedIn() {
		s.notify(Session{})
	}
}

func (s *Store) removeKeys() {
	if err := s.kv.Remove(TokenKey, EmailKey); err != nil {
		s.logger.Zap().Error("removing stored session", zap.Error(err))
	}
}

// Reload re-reads storage, picking up a login or logout made by another
// process. Subscribers are notified only when the session changed.
func (s *Store) Reload() error {
	s.writeMu.Lock()
	next, err := s.load(false)
	if err != nil {
		s.writeMu.Unlock()
		return err
	}
	prev := s.Current()
	changed := prev != next
	if changed {
		s.set(next)
	}
	s.writeMu.Unlock()

	if changed {
		_ = s.logger.Append(log.LogEvent{Event: log.EventSessionReloaded, Email: next.Email})
		s.notify(next)
	}
	return nil
}

// Watch reloads the session whenever the underlying storage reports a change
// from outside this process. It returns immediately when the storage backend
// cannot be watched.
func (s *Store) Watch(ctx context.Context) error {
	w, ok := s.kv.(storage.Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func() {
		if err := s.Reload(); err != nil {
			s.logger.Zap().Warn("reloading session", zap.Error(err))
		}
	})
}

func (s *Store) set(next Session) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token, empty when signed out.
func (s *Store) Token() string {
	return s.Current().Token
}

// IsAuthenticated reports whether a token is present. Expiry is not checked.
func (s *Store) IsAuthenticated() bool {
	return s.Current().SignedIn()
}

// CurrentEmail returns the signed-in email, empty when signed out.
func (s *Store) CurrentEmail() string {
	return s.Current().Email
}

// ExpiresAt reads the token's exp claim without verifying the signature.
// ok is false when signed out or the token has no readable exp.
func (s *Store) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subscribe registers fn to be called after every session change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(sess Session) {
	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
