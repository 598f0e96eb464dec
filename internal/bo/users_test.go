package bo

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
	_ "github.com/tablero/tablero/testing"
)

func newUserBO(querier *fakeQuerier, mode session.PasswordMode) *UserBO {
	deps := Deps{Store: querier, Logger: slog.Default(), Mode: mode}
	return &UserBO{deps: deps, ident: shared.Identity{UserID: 1, Profile: 1}}
}

func createUserPayload() json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"name": "Ana", "lastName": "García", "birthDate": "1990-05-01",
		"email": "ana@test.local", "password": "supersecreta",
		"numberId": "12345678", "id_profile": []int64{2},
	})
	return raw
}

func TestCreateUserStoresVerifiablePassword(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["createPerson"] = &store.Result{Rows: []store.Row{{"id_person": int64(12)}}}
	querier.results["createUser"] = &store.Result{Rows: []store.Row{{"id_user": int64(34)}}}
	bo := newUserBO(querier, session.PasswordModeBcrypt)

	result, err := bo.createUser(context.Background(), createUserPayload())
	require.NoError(t, err)
	require.True(t, result.(response).Sts)

	require.Len(t, querier.params["createUser"], 1)
	stored := querier.params["createUser"][0][1].(string)
	assert.NotEqual(t, "supersecreta", stored, "the column never holds the plaintext")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("supersecreta")),
		"the stored hash verifies under the login flow's mode")
}

func TestCreateUserPlainModeKeepsPassword(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["createPerson"] = &store.Result{Rows: []store.Row{{"id_person": int64(12)}}}
	querier.results["createUser"] = &store.Result{Rows: []store.Row{{"id_user": int64(34)}}}
	bo := newUserBO(querier, session.PasswordModePlain)

	result, err := bo.createUser(context.Background(), createUserPayload())
	require.NoError(t, err)
	require.True(t, result.(response).Sts)
	assert.Equal(t, "supersecreta", querier.params["createUser"][0][1])
}

func TestCreateUserValidation(t *testing.T) {
	querier := newFakeQuerier()
	bo := newUserBO(querier, session.PasswordModeBcrypt)

	result, err := bo.createUser(context.Background(), json.RawMessage(`{"email":"ana@test.local"}`))
	require.NoError(t, err)
	assert.False(t, result.(response).Sts)
	assert.Empty(t, querier.params["createPerson"])
}
