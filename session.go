package whatsthat

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// KeyValueStore is a durable string store. GetItem returns an error matching
// os.ErrNotExist when the key is absent. Implementations live in the store
// package.
type KeyValueStore interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Keys used by SessionStore.
const (
	KeyUserID   = "userId"
	KeyToken    = "stoken"
	// KeyPassword holds a bcrypt hash of the password, never the plaintext.
	KeyPassword = "pwd"
)

// ============================================================================
// SessionStore
// ============================================================================

// SessionStore persists the logged-in identity and a hash of the password
// used to gate local profile edits. Fields are written independently, so a
// failed Save can leave the store holding a mix of old and new values.
type SessionStore struct {
	kv   KeyValueStore
	log  zerolog.Logger
	cost int
}

type SessionStoreOption func(*SessionStore)

func WithSessionLogger(logger zerolog.Logger) SessionStoreOption {
	return func(s *SessionStore) { s.log = logger }
}

// WithHashCost sets the bcrypt cost for the cached password.
func WithHashCost(cost int) SessionStoreOption {
	return func(s *SessionStore) { s.cost = cost }
}

func NewSessionStore(kv KeyValueStore, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{kv: kv, log: log.Logger, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted session. Missing keys and read failures yield
// empty fields; Load never fails.
func (s *SessionStore) Load() Session {
	return Session{
		UserID: ID(s.read(KeyUserID)),
		Token:  s.read(KeyToken),
	}
}

func (s *SessionStore) read(key string) string {
	v, err := s.kv.GetItem(key)
	if err != nil {
		if !isNotExist(err) {
			s.log.Warn().Err(err).Str("key", key).Msg("session read failed")
		}
		return ""
	}
	return v
}

// Save writes the user id and token. Each write is attempted once; failures
// are logged and returned together.
func (s *SessionStore) Save(sess Session) error {
	var errs []error
	for _, kv := range [][2]string{{KeyUserID, string(sess.UserID)}, {KeyToken, sess.Token}} {
		if err := s.kv.SetItem(kv[0], kv[1]); err != nil {
			s.log.Warn().Err(err).Str("key", kv[0]).Msg("session write failed")
			errs = append(errs, fmt.Errorf("failed to save %s: %w", kv[0], err))
		}
	}
	return errors.Join(errs...)
}

// Clear removes all session keys, attempting each even if an earlier one
// fails.
func (s *SessionStore) Clear() error {
	var errs []error
	for _, key := range []string{KeyUserID, KeyToken, KeyPassword} {
		if err := s.kv.RemoveItem(key); err != nil && !isNotExist(err) {
			s.log.Warn().Err(err).Str("key", key).Msg("session remove failed")
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// CachePassword stores a bcrypt hash of password.
func (s *SessionStore) CachePassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.kv.SetItem(KeyPassword, string(hash)); err != nil {
		s.log.Warn().Err(err).Str("key", KeyPassword).Msg("session write failed")
		return fmt.Errorf("failed to save %s: %w", KeyPassword, err)
	}
	return nil
}

// VerifyPassword reports whether password matches the cached hash. It is
// false when nothing is cached.
func (s *SessionStore) VerifyPassword(password string) bool {
	hash := s.read(KeyPassword)
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
