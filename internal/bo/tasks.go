package bo

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/shared"
)

// TaskBO manages tasks within board lists.
type TaskBO struct {
	deps  Deps
	ident shared.Identity
}

// Methods lists the exposed operations.
func (b *TaskBO) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"createTask": b.createTask,
		"moveTask":   b.moveTask,
	}
}

type createTaskParams struct {
	ListID      int64  `json:"id_list" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	AssignedTo  *int64 `json:"assigned_to_user"`
	DueDate     string `json:"due_date"`
}

func (b *TaskBO) createTask(ctx context.Context, params json.RawMessage) (any, error) {
	var p createTaskParams
	if err := decode(params, &p); err != nil {
		return fail("List ID and Title are required"), nil
	}

	// New tasks append to the end of the list.
	const tailPosition = 9999

	var due any
	if p.DueDate != "" {
		due = p.DueDate
	}
	result, err := b.deps.Store.ExecuteQuery(ctx, "public", "createTask",
		p.ListID, p.Title, p.Description, p.AssignedTo, tailPosition, due)
	if err != nil || len(result.Rows) == 0 {
		b.deps.Logger.Error("create task", slog.Any("error", err))
		return fail("Failed to create task"), nil
	}
	return response{Sts: true, Msg: "Task created", Data: result.Rows[0]}, nil
}

type moveTaskParams struct {
	TaskID      int64  `json:"id_task" validate:"required"`
	NewListID   int64  `json:"new_id_list" validate:"required"`
	NewPosition *int64 `json:"new_position" validate:"required"`
}

func (b *TaskBO) moveTask(ctx context.Context, params json.RawMessage) (any, error) {
	var p moveTaskParams
	if err := decode(params, &p); err != nil {
		return fail("Missing parameters for moving task"), nil
	}

	result, err := b.deps.Store.ExecuteQuery(ctx, "public", "updateTaskPosition",
		p.NewListID, *p.NewPosition, p.TaskID)
	if err != nil || result.RowsAffected == 0 {
		return fail("Failed to move task"), nil
	}
	return ok("Task moved successfully"), nil
}
