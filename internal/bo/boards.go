package bo

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/shared"
)

// BoardBO manages kanban boards for the calling user. The caller identity is
// injected by the dispatcher; the object never sees the session.
type BoardBO struct {
	deps  Deps
	ident shared.Identity
}

// Methods lists the exposed operations.
func (b *BoardBO) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"createBoard": b.createBoard,
		"getMyBoards": b.getMyBoards,
	}
}

type createBoardParams struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (b *BoardBO) createBoard(ctx context.Context, params json.RawMessage) (any, error) {
	var p createBoardParams
	if err := decode(params, &p); err != nil {
		return fail("Board name is required"), nil
	}

	boardResult, err := b.deps.Store.ExecuteQuery(ctx, "public", "createBoard", p.Name, p.Description, b.ident.UserID)
	if err != nil || len(boardResult.Rows) == 0 {
		b.deps.Logger.Error("create board", slog.Any("error", err))
		return fail("Failed to create board"), nil
	}
	boardID := boardResult.Rows[0].Int64("id_board")

	// Creator becomes an admin member; every board starts with the three
	// default lists.
	if _, err := b.deps.Store.ExecuteQuery(ctx, "public", "addBoardMember", boardID, b.ident.UserID, "ADMIN"); err != nil {
		b.deps.Logger.Error("add board member", slog.Any("error", err))
	}
	for i, list := range []string{"To Do", "Doing", "Done"} {
		if _, err := b.deps.Store.ExecuteQuery(ctx, "public", "createList", boardID, list, i+1); err != nil {
			b.deps.Logger.Error("create default list", slog.String("list", list), slog.Any("error", err))
		}
	}

	return map[string]any{
		"sts":      true,
		"msg":      "Board created successfully",
		"id_board": boardID,
	}, nil
}

func (b *BoardBO) getMyBoards(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "public", "getBoardsByUser", b.ident.UserID)
	if err != nil {
		b.deps.Logger.Error("getMyBoards", slog.Any("error", err))
		return fail("Error fetching boards"), nil
	}
	return okData(result.Rows), nil
}
