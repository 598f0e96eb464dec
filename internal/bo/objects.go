package bo

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/shared"
)

// ObjectBO manages the object catalog. Protected object.
type ObjectBO struct {
	deps  Deps
	ident shared.Identity
}

// Methods lists the exposed operations.
func (b *ObjectBO) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"getObjects":    b.getObjects,
		"createObject":  b.createObject,
		"updateObject":  b.updateObject,
		"deleteObjects": b.deleteObjects,
	}
}

func (b *ObjectBO) getObjects(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getObjects")
	if err != nil {
		b.deps.Logger.Error("getObjects", slog.Any("error", err))
		return fail("Error al obtener los objetos"), nil
	}
	return okData(result.Rows), nil
}

type createObjectParams struct {
	Object string `json:"object" validate:"required"`
}

func (b *ObjectBO) createObject(ctx context.Context, params json.RawMessage) (any, error) {
	var p createObjectParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "createObject", p.Object)
	if err != nil || result.RowsAffected == 0 {
		return fail("No se pudo crear el objeto"), nil
	}
	return ok("Objeto creado exitosamente"), nil
}

type updateObjectParams struct {
	ObjectID int64  `json:"id_object" validate:"required"`
	Object   string `json:"object" validate:"required"`
}

func (b *ObjectBO) updateObject(ctx context.Context, params json.RawMessage) (any, error) {
	var p updateObjectParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "updateObject", p.Object, p.ObjectID)
	if err != nil || result.RowsAffected == 0 {
		return fail("No se pudo actualizar el objeto"), nil
	}
	return ok("Objeto actualizado exitosamente"), nil
}

type deleteObjectsParams struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// deleteObjects cascades dependent grants and methods before removing the
// objects, then reloads the cache.
func (b *ObjectBO) deleteObjects(ctx context.Context, params json.RawMessage) (any, error) {
	var p deleteObjectsParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios o formato incorrecto"), nil
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deletePermissionMethodsByObjectIds", p.IDs); err != nil {
		return fail("No se pudieron eliminar los objetos"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteMethodsByObjectIds", p.IDs); err != nil {
		return fail("No se pudieron eliminar los objetos"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteObjects", p.IDs); err != nil {
		return fail("No se pudieron eliminar los objetos"), nil
	}

	if err := b.deps.Cache.Reload(ctx); err != nil {
		b.deps.Logger.Error("cache reload after object delete", slog.Any("error", err))
	}
	return ok("Objetos eliminados exitosamente"), nil
}
