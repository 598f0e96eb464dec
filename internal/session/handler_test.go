package session_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablero/tablero/internal/security"
	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/store"
	_ "github.com/tablero/tablero/testing"
)

type stubQuerier struct {
	results map[string]*store.Result
}

func (s *stubQuerier) ExecuteQuery(ctx context.Context, schema, queryID string, params ...any) (*store.Result, error) {
	if res, ok := s.results[queryID]; ok {
		return res, nil
	}
	return &store.Result{}, nil
}

// commitWriter flushes the session before the first byte of the response,
// the same ordering the application middleware guarantees.
type commitWriter struct {
	http.ResponseWriter
	ctx       context.Context
	manager   *session.Manager
	sess      *session.Session
	committed bool
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.committed {
		w.committed = true
		_ = w.manager.Commit(w.ctx, w.ResponseWriter, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

type loginFixture struct {
	router  http.Handler
	manager *session.Manager
	querier *stubQuerier
}

// newLoginFixture wires the handler behind a router with the same
// load-then-commit session semantics the application middleware applies.
func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := session.NewManager(client, "test_session", "secret", time.Hour, false)

	querier := &stubQuerier{results: map[string]*store.Result{
		"getUser": {Rows: []store.Row{{
			"id_user":  int64(7),
			"email":    "ana@test.local",
			"password": "secreta",
		}}},
		"getUserProfiles": {Rows: []store.Row{
			{"fk_id_profile": int64(2), "profile": "Editor"},
		}},
		"loadMenu": {Rows: []store.Row{
			{"id_profile": int64(2), "menu": "boards", "fk_id_module": int64(1)},
		}},
	}}

	service := session.NewService(querier, slog.Default(), session.PasswordModePlain)
	cache := security.NewCache(querier, slog.Default())
	require.NoError(t, cache.Reload(context.Background()))
	handler := session.NewHandler(slog.Default(), service, manager, cache)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := manager.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := session.ContextWith(req.Context(), sess)
			next.ServeHTTP(&commitWriter{ResponseWriter: w, ctx: ctx, manager: manager, sess: sess}, req.WithContext(ctx))
		})
	})
	handler.MountRoutes(r)

	return &loginFixture{router: r, manager: manager, querier: querier}
}

func (f *loginFixture) do(t *testing.T, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestLoginSingleProfileBindsSession(t *testing.T) {
	f := newLoginFixture(t)

	res := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"secreta"}`, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var body struct {
		Sts     bool   `json:"sts"`
		Msg     string `json:"msg"`
		Options []any  `json:"options"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Sts)
	assert.Equal(t, "Usuario autenticado", body.Msg)
	assert.Len(t, body.Options, 1)

	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies)

	check := f.do(t, http.MethodGet, "/check-session", "", cookies)
	assert.JSONEq(t, `{"authenticated":true}`, check.Body.String())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newLoginFixture(t)

	res := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body.String(), "Datos inválidos")

	check := f.do(t, http.MethodGet, "/check-session", "", res.Result().Cookies())
	assert.JSONEq(t, `{"authenticated":false}`, check.Body.String())
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	f := newLoginFixture(t)

	res := f.do(t, http.MethodPost, "/login", `{"email":"not-an-email","password":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginWithoutProfilesIsForbidden(t *testing.T) {
	f := newLoginFixture(t)
	f.querier.results["getUserProfiles"] = &store.Result{}

	res := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"secreta"}`, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "No tienes perfiles asignados")
}

func TestLoginMultiProfileRequiresSelection(t *testing.T) {
	f := newLoginFixture(t)
	f.querier.results["getUserProfiles"] = &store.Result{Rows: []store.Row{
		{"fk_id_profile": int64(2), "profile": "Editor"},
		{"fk_id_profile": int64(3), "profile": "Viewer"},
	}}

	res := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"secreta"}`, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Selecciona un perfil")
	cookies := res.Result().Cookies()

	// Identity is parked, not logged in.
	check := f.do(t, http.MethodGet, "/check-session", "", cookies)
	assert.JSONEq(t, `{"authenticated":false}`, check.Body.String())

	// A profile outside the eligible set is rejected.
	sel := f.do(t, http.MethodPost, "/select-profile", `{"id_profile":9}`, cookies)
	assert.Equal(t, http.StatusForbidden, sel.Code)

	sel = f.do(t, http.MethodPost, "/select-profile", `{"id_profile":3}`, cookies)
	require.Equal(t, http.StatusOK, sel.Code, sel.Body.String())
	assert.Contains(t, sel.Body.String(), "Perfil seleccionado correctamente")

	check = f.do(t, http.MethodGet, "/check-session", "", cookies)
	assert.JSONEq(t, `{"authenticated":true}`, check.Body.String())
}

func TestSelectProfileWithoutPendingIdentity(t *testing.T) {
	f := newLoginFixture(t)

	res := f.do(t, http.MethodPost, "/select-profile", `{"id_profile":2}`, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginTwiceIsRejected(t *testing.T) {
	f := newLoginFixture(t)

	res := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"secreta"}`, nil)
	require.Equal(t, http.StatusOK, res.Code)
	cookies := res.Result().Cookies()

	again := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"secreta"}`, cookies)
	assert.Equal(t, http.StatusBadRequest, again.Code)
	assert.Contains(t, again.Body.String(), "Ya tienes una sesión activa")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	f := newLoginFixture(t)

	res := f.do(t, http.MethodPost, "/login", `{"email":"ana@test.local","password":"secreta"}`, nil)
	require.Equal(t, http.StatusOK, res.Code)
	cookies := res.Result().Cookies()

	out := f.do(t, http.MethodPost, "/logout", "", cookies)
	require.Equal(t, http.StatusOK, out.Code)
	assert.Contains(t, out.Body.String(), "Logout ok!")

	check := f.do(t, http.MethodGet, "/check-session", "", cookies)
	assert.JSONEq(t, `{"authenticated":false}`, check.Body.String())
}
