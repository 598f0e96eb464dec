package bo

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
	_ "github.com/tablero/tablero/testing"
)

func newBoardBO(querier *fakeQuerier, userID int64) *BoardBO {
	deps := Deps{Store: querier, Logger: slog.Default()}
	return &BoardBO{deps: deps, ident: shared.Identity{UserID: userID, Profile: 2}}
}

func TestCreateBoardSeedsMemberAndDefaultLists(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["createBoard"] = &store.Result{Rows: []store.Row{{"id_board": int64(99)}}}
	b := newBoardBO(querier, 7)

	result, err := b.createBoard(context.Background(), json.RawMessage(`{"name":"Sprint 12"}`))
	require.NoError(t, err)

	payload := result.(map[string]any)
	assert.Equal(t, true, payload["sts"])
	assert.Equal(t, int64(99), payload["id_board"])

	require.Len(t, querier.params["addBoardMember"], 1)
	assert.Equal(t, []any{int64(99), int64(7), "ADMIN"}, querier.params["addBoardMember"][0])

	require.Len(t, querier.params["createList"], 3)
	assert.Equal(t, []any{int64(99), "To Do", 1}, querier.params["createList"][0])
	assert.Equal(t, []any{int64(99), "Doing", 2}, querier.params["createList"][1])
	assert.Equal(t, []any{int64(99), "Done", 3}, querier.params["createList"][2])
}

func TestCreateBoardRequiresName(t *testing.T) {
	querier := newFakeQuerier()
	b := newBoardBO(querier, 7)

	result, err := b.createBoard(context.Background(), json.RawMessage(`{"description":"x"}`))
	require.NoError(t, err)
	assert.False(t, result.(response).Sts)
	assert.Empty(t, querier.calls)
}

func TestGetMyBoardsScopedToCaller(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["getBoardsByUser"] = &store.Result{Rows: []store.Row{
		{"id_board": int64(1), "name": "Sprint 12"},
	}}
	b := newBoardBO(querier, 7)

	result, err := b.getMyBoards(context.Background(), nil)
	require.NoError(t, err)
	resp := result.(response)
	assert.True(t, resp.Sts)
	assert.Equal(t, []any{int64(7)}, querier.params["getBoardsByUser"][0])
}

func TestMoveTaskRequiresPosition(t *testing.T) {
	querier := newFakeQuerier()
	taskBO := &TaskBO{deps: Deps{Store: querier, Logger: slog.Default()}, ident: shared.Identity{UserID: 7, Profile: 2}}

	// Position zero is a valid slot, omitting it is not.
	result, err := taskBO.moveTask(context.Background(), json.RawMessage(`{"id_task":4,"new_id_list":2}`))
	require.NoError(t, err)
	assert.False(t, result.(response).Sts)

	querier.results["updateTaskPosition"] = &store.Result{RowsAffected: 1}
	result, err = taskBO.moveTask(context.Background(), json.RawMessage(`{"id_task":4,"new_id_list":2,"new_position":3}`))
	require.NoError(t, err)
	assert.True(t, result.(response).Sts)
	assert.Equal(t, []any{int64(2), int64(3), int64(4)}, querier.params["updateTaskPosition"][0])
}

func TestMoveTaskUnknownTask(t *testing.T) {
	querier := newFakeQuerier()
	querier.results["updateTaskPosition"] = &store.Result{RowsAffected: 0}
	taskBO := &TaskBO{deps: Deps{Store: querier, Logger: slog.Default()}, ident: shared.Identity{UserID: 7, Profile: 2}}

	result, err := taskBO.moveTask(context.Background(), json.RawMessage(`{"id_task":999,"new_id_list":2,"new_position":0}`))
	require.NoError(t, err)
	assert.False(t, result.(response).Sts)
}
