package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/tablero/tablero/testing"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager(client, "test_session", "secret", time.Hour, false), mr
}

func TestLoadWithoutCookieCreatesFreshSession(t *testing.T) {
	manager, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.isNew)
	assert.Zero(t, sess.UserID())
	assert.Empty(t, sess.UserName())
}

func TestCommitThenLoadRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.bind(42, "ana@test.local", 2)

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)

	assert.Equal(t, int64(42), loaded.UserID())
	assert.Equal(t, "ana@test.local", loaded.UserName())
	assert.Equal(t, int64(2), loaded.Profile())
}

func TestCloseDeletesBackendRecordImmediately(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.bind(42, "ana@test.local", 2)

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	require.NoError(t, manager.Close(ctx, sess))
	assert.False(t, mr.Exists("session:"+sess.ID))
	assert.True(t, sess.Destroyed())
}

func TestCommitDestroyedSessionExpiresCookie(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	manager.Destroy(sess)

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}

func TestPendingRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)

	assert.Nil(t, sess.Pending())

	sess.bindPending(&PendingAuth{UserID: 7, UserName: "ana@test.local", Status: true})
	pending := sess.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, int64(7), pending.UserID)
	assert.Equal(t, "ana@test.local", pending.UserName)

	// Binding the real identity consumes the pending one.
	sess.bind(7, "ana@test.local", 2)
	assert.Nil(t, sess.Pending())
}

func TestPendingSurvivesCommitReload(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.bindPending(&PendingAuth{UserID: 7, UserName: "ana@test.local", Status: true})

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(res.Result().Cookies()[0])
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)

	pending := loaded.Pending()
	require.NotNil(t, pending, "the handshake spans two requests")
	assert.Equal(t, int64(7), pending.UserID)
	assert.Empty(t, loaded.UserName(), "pending identity is not a login")
}
