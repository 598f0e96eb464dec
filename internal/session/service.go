package session

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
)

// PasswordMode selects how stored passwords are verified.
type PasswordMode string

const (
	// PasswordModeBcrypt verifies against a bcrypt hash.
	PasswordModeBcrypt PasswordMode = "bcrypt"
	// PasswordModePlain preserves the legacy byte-for-byte comparison for
	// stores that still hold plaintext passwords. Comparison is constant-time.
	PasswordModePlain PasswordMode = "plain"
)

var caseFolder = cases.Fold()

// PendingAuth is the request-scoped result of Authenticate. It lives only in
// the handler that produced it and is consumed by CreateSession; it is never
// shared across requests.
type PendingAuth struct {
	UserID   int64
	UserName string
	Profile  int64
	Status   bool
}

// Profile is one role eligible for a user.
type Profile struct {
	ID   int64  `json:"id_profile"`
	Name string `json:"profile"`
}

// Service owns the authentication handshake and session state transitions.
type Service struct {
	store  store.Querier
	logger *slog.Logger
	mode   PasswordMode
}

// NewService constructs a Service. mode defaults to bcrypt when empty.
func NewService(querier store.Querier, logger *slog.Logger, mode PasswordMode) *Service {
	if mode == "" {
		mode = PasswordModeBcrypt
	}
	return &Service{store: querier, logger: logger, mode: mode}
}

// Authenticate validates credentials and returns a pending identity. A failed
// lookup and a wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*PendingAuth, error) {
	result, err := s.store.ExecuteQuery(ctx, "security", "getUser", email)
	if err != nil {
		s.logger.Error("authenticate query", slog.Any("error", err))
		return &PendingAuth{Status: false}, shared.ErrInvalidCredentials
	}
	if len(result.Rows) == 0 {
		return &PendingAuth{Status: false}, shared.ErrInvalidCredentials
	}

	row := result.Rows[0]
	if !s.verifyPassword(row.String("password"), password) {
		return &PendingAuth{Status: false}, shared.ErrInvalidCredentials
	}

	return &PendingAuth{
		UserID:   row.Int64("id_user"),
		UserName: row.String("email"),
		Status:   true,
	}, nil
}

// Profiles returns the profiles eligible for the given user name.
func (s *Service) Profiles(ctx context.Context, userName string) ([]Profile, error) {
	result, err := s.store.ExecuteQuery(ctx, "security", "getUserProfiles", userName)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(result.Rows))
	for _, row := range result.Rows {
		profiles = append(profiles, Profile{
			ID:   row.Int64("fk_id_profile"),
			Name: row.String("profile"),
		})
	}
	return profiles, nil
}

// CreateSession binds the pending identity and chosen profile into the
// session. It fails when the prior authentication was not successful.
func (s *Service) CreateSession(sess *Session, pending *PendingAuth, profileID int64) bool {
	if sess == nil || pending == nil || !pending.Status {
		return false
	}
	sess.bind(pending.UserID, pending.UserName, profileID)
	return true
}

// SessionExists reports whether the request carries a session with a bound
// user name.
func (s *Service) SessionExists(sess *Session) bool {
	return sess != nil && !sess.destroyed && sess.UserName() != ""
}

// CloseSession destroys the server-side session record. The cookie is cleared
// when the manager commits the destroyed session.
func (s *Service) CloseSession(ctx context.Context, manager *Manager, sess *Session) error {
	if err := manager.Close(ctx, sess); err != nil {
		s.logger.Error("close session", slog.Any("error", err))
		return err
	}
	return nil
}

// EmailsEqual compares two addresses under Unicode case folding, so the
// lookup email and the stored one match regardless of casing.
func EmailsEqual(a, b string) bool {
	return caseFolder.String(a) == caseFolder.String(b)
}

func (s *Service) verifyPassword(stored, submitted string) bool {
	return VerifyPassword(s.mode, stored, submitted)
}

// VerifyPassword checks a submitted password against the stored value under
// the given mode.
func VerifyPassword(mode PasswordMode, stored, submitted string) bool {
	if mode == PasswordModePlain {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
}

// EncodePassword prepares a password for storage under the given mode, so
// every write path stores what the matching verify path expects. Plain mode
// keeps the value as-is for legacy stores.
func EncodePassword(mode PasswordMode, plain string) (string, error) {
	if mode == PasswordModePlain {
		return plain, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
