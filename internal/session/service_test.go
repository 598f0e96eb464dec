package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
	_ "github.com/tablero/tablero/testing"
)

type fakeQuerier struct {
	results map[string]*store.Result
	errs    map[string]error
	params  map[string][]any
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		results: make(map[string]*store.Result),
		errs:    make(map[string]error),
		params:  make(map[string][]any),
	}
}

func (f *fakeQuerier) ExecuteQuery(ctx context.Context, schema, queryID string, params ...any) (*store.Result, error) {
	f.params[queryID] = params
	if err, ok := f.errs[queryID]; ok {
		return nil, err
	}
	if res, ok := f.results[queryID]; ok {
		return res, nil
	}
	return &store.Result{}, nil
}

func TestAuthenticatePlainMode(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["getUser"] = &store.Result{Rows: []store.Row{{
		"id_user":  int64(7),
		"email":    "ana@test.local",
		"password": "secreta",
	}}}
	service := NewService(querier, slog.Default(), PasswordModePlain)

	pending, err := service.Authenticate(context.Background(), "ana@test.local", "secreta")
	require.NoError(t, err)
	assert.True(t, pending.Status)
	assert.Equal(t, int64(7), pending.UserID)
	assert.Equal(t, "ana@test.local", pending.UserName)

	pending, err = service.Authenticate(context.Background(), "ana@test.local", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.False(t, pending.Status)
}

func TestAuthenticateBcryptMode(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("secreta"), bcrypt.MinCost)
	require.NoError(t, err)

	querier := newFakeQuerier()
	querier.results["getUser"] = &store.Result{Rows: []store.Row{{
		"id_user":  int64(7),
		"email":    "ana@test.local",
		"password": string(hashed),
	}}}
	service := NewService(querier, slog.Default(), PasswordModeBcrypt)

	pending, err := service.Authenticate(context.Background(), "ana@test.local", "secreta")
	require.NoError(t, err)
	assert.True(t, pending.Status)

	_, err = service.Authenticate(context.Background(), "ana@test.local", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUserAndStoreError(t *testing.T) {
	querier := newFakeQuerier()
	service := NewService(querier, slog.Default(), PasswordModePlain)

	pending, err := service.Authenticate(context.Background(), "ghost@test.local", "x")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.False(t, pending.Status)

	querier.errs["getUser"] = errors.New("connection refused")
	pending, err = service.Authenticate(context.Background(), "ana@test.local", "x")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "store failures look like bad credentials")
	assert.False(t, pending.Status)
}

func TestCreateSessionRequiresSuccessfulAuth(t *testing.T) {
	service := NewService(newFakeQuerier(), slog.Default(), PasswordModePlain)
	sess := &Session{values: make(map[string]string)}

	assert.False(t, service.CreateSession(sess, &PendingAuth{UserID: 7, Status: false}, 2))
	assert.False(t, service.CreateSession(sess, nil, 2))
	assert.False(t, service.CreateSession(nil, &PendingAuth{Status: true}, 2))
	assert.Empty(t, sess.UserName())

	ok := service.CreateSession(sess, &PendingAuth{UserID: 7, UserName: "ana@test.local", Status: true}, 2)
	require.True(t, ok)
	assert.Equal(t, int64(7), sess.UserID())
	assert.Equal(t, int64(2), sess.Profile())
}

func TestSessionExists(t *testing.T) {
	service := NewService(newFakeQuerier(), slog.Default(), PasswordModePlain)

	assert.False(t, service.SessionExists(nil))

	sess := &Session{values: make(map[string]string)}
	assert.False(t, service.SessionExists(sess))

	sess.bind(7, "ana@test.local", 2)
	assert.True(t, service.SessionExists(sess))

	sess.destroyed = true
	assert.False(t, service.SessionExists(sess))
}

func TestProfiles(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["getUserProfiles"] = &store.Result{Rows: []store.Row{
		{"fk_id_profile": int64(2), "profile": "Editor"},
		{"fk_id_profile": int64(3), "profile": "Viewer"},
	}}
	service := NewService(querier, slog.Default(), PasswordModePlain)

	profiles, err := service.Profiles(context.Background(), "ana@test.local")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, Profile{ID: 2, Name: "Editor"}, profiles[0])
	assert.Equal(t, []any{"ana@test.local"}, querier.params["getUserProfiles"])
}

func TestEmailsEqual(t *testing.T) {
	assert.True(t, EmailsEqual("Ana@Test.Local", "ana@test.local"))
	assert.True(t, EmailsEqual("ANA@TEST.LOCAL", "ana@test.local"))
	assert.False(t, EmailsEqual("ana@test.local", "anna@test.local"))
}
