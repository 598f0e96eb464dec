package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tablero/tablero/internal/shared"
)

// Manager orchestrates cookie based sessions backed by Redis.
type Manager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds the per-request identity record: user id, user name and the
// active profile. It is owned by the Manager; other components read it
// through accessors and never mutate it directly.
type Session struct {
	ID        string
	values    map[string]string
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values map[string]string `json:"values"`
}

const (
	keyUserID   = "user_id"
	keyUserName = "user_name"
	keyProfile  = "profile"

	// Pending identity between Authenticate and CreateSession. Stored on the
	// caller's own session record, never in process-global state, so one
	// browser's handshake cannot leak into another's.
	keyPendingUserID   = "pending_user_id"
	keyPendingUserName = "pending_user_name"
	keyPendingStatus   = "pending_status"
)

// NewManager constructs a Manager. TTL and cookie name are fixed at startup.
func NewManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads the session for the request cookie, or creates a fresh one.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return m.newSession(), nil
		}
		return nil, err
	}

	payload, err := m.client.Get(ctx, m.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := m.newSession()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := &Session{ID: cookie.Value, values: stored.Values}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := m.client.Del(ctx, m.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %w", shared.ErrSessionDestroy, err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.isNew && sess.ID == "" {
		sess.ID = m.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values})
		if err != nil {
			return err
		}
		if err := m.client.Set(ctx, m.redisKey(sess.ID), data, m.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
	}

	if sess.ID != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
			Expires:  time.Now().Add(m.ttl),
		})
	}
	return nil
}

// Destroy marks the session for deletion on commit.
func (m *Manager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// Close destroys the server-side record immediately and marks the session so
// Commit clears the cookie. Failing to clear the backend is reported.
func (m *Manager) Close(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.destroyed = true
	if err := m.client.Del(ctx, m.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %w", shared.ErrSessionDestroy, err)
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) newSession() *Session {
	return &Session{
		ID:     m.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (m *Manager) redisKey(id string) string {
	return "session:" + id
}

func (m *Manager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(m.secret) > 0 {
		for i := range b {
			b[i] ^= m.secret[i%len(m.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Session accessors

// UserID returns the bound user id, 0 when unauthenticated.
func (s *Session) UserID() int64 {
	id, _ := strconv.ParseInt(s.values[keyUserID], 10, 64)
	return id
}

// UserName returns the bound user name (email), empty when unauthenticated.
func (s *Session) UserName() string {
	return s.values[keyUserName]
}

// Profile returns the active profile id, 0 when no profile is bound.
func (s *Session) Profile() int64 {
	id, _ := strconv.ParseInt(s.values[keyProfile], 10, 64)
	return id
}

// Destroyed reports whether the session is marked for deletion.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

func (s *Session) bind(userID int64, userName string, profile int64) {
	s.values[keyUserID] = strconv.FormatInt(userID, 10)
	s.values[keyUserName] = userName
	s.values[keyProfile] = strconv.FormatInt(profile, 10)
	s.clearPending()
	s.dirty = true
}

func (s *Session) bindPending(p *PendingAuth) {
	s.values[keyPendingUserID] = strconv.FormatInt(p.UserID, 10)
	s.values[keyPendingUserName] = p.UserName
	s.values[keyPendingStatus] = strconv.FormatBool(p.Status)
	s.dirty = true
}

// Pending returns the identity awaiting profile selection, or nil.
func (s *Session) Pending() *PendingAuth {
	status, err := strconv.ParseBool(s.values[keyPendingStatus])
	if err != nil || !status {
		return nil
	}
	id, _ := strconv.ParseInt(s.values[keyPendingUserID], 10, 64)
	return &PendingAuth{
		UserID:   id,
		UserName: s.values[keyPendingUserName],
		Status:   true,
	}
}

func (s *Session) clearPending() {
	delete(s.values, keyPendingUserID)
	delete(s.values, keyPendingUserName)
	delete(s.values, keyPendingStatus)
	s.dirty = true
}
