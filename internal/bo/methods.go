package bo

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/security"
	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
)

// MethodBO manages the method catalog and method grants. Grant mutations
// patch the live permission cache so authorization reflects them without a
// full reload. Protected object.
type MethodBO struct {
	deps  Deps
	ident shared.Identity
}

// Methods lists the exposed operations.
func (b *MethodBO) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"getMethods":              b.getMethods,
		"createMethod":            b.createMethod,
		"updateMethod":            b.updateMethod,
		"deleteMethods":           b.deleteMethods,
		"getPermissionMethods":    b.getPermissionMethods,
		"createPermissionMethod":  b.createPermissionMethod,
		"updatePermissionMethod":  b.updatePermissionMethod,
		"deletePermissionMethods": b.deletePermissionMethods,
		"syncPermissions":         b.syncPermissions,
	}
}

// methodByID resolves one catalog row for validation.
func (b *MethodBO) methodByID(ctx context.Context, id int64) (store.Row, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getMethods")
	if err != nil {
		return nil, err
	}
	for _, row := range result.Rows {
		if row.Int64("id_method") == id {
			return row, nil
		}
	}
	return nil, nil
}

func (b *MethodBO) getMethods(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getMethods")
	if err != nil {
		b.deps.Logger.Error("getMethods", slog.Any("error", err))
		return fail("Error al obtener los metodos"), nil
	}
	return okData(result.Rows), nil
}

type createMethodParams struct {
	Name     string `json:"name" validate:"required"`
	ObjectID int64  `json:"id_object" validate:"required"`
}

func (b *MethodBO) createMethod(ctx context.Context, params json.RawMessage) (any, error) {
	var p createMethodParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "createMethod", p.Name, p.ObjectID); err != nil {
		return fail("No se pudo crear el metodo"), nil
	}
	return ok("Metodo creado exitosamente"), nil
}

type updateMethodParams struct {
	MethodID int64  `json:"id_method" validate:"required"`
	Method   string `json:"method" validate:"required"`
	ObjectID int64  `json:"fk_id_object" validate:"required"`
}

func (b *MethodBO) updateMethod(ctx context.Context, params json.RawMessage) (any, error) {
	var p updateMethodParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "updateMethod", p.Method, p.ObjectID, p.MethodID); err != nil {
		return fail("No se pudo actualizar el metodo"), nil
	}
	return ok("Metodo actualizado exitosamente"), nil
}

type deleteMethodsParams struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (b *MethodBO) deleteMethods(ctx context.Context, params json.RawMessage) (any, error) {
	var p deleteMethodsParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios o formato incorrecto"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deletePermissionMethodsByMethodIds", p.IDs); err != nil {
		return fail("No se pudieron eliminar los metodos"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteMethods", p.IDs); err != nil {
		return fail("No se pudieron eliminar los metodos"), nil
	}
	if err := b.deps.Cache.Reload(ctx); err != nil {
		b.deps.Logger.Error("cache reload after method delete", slog.Any("error", err))
	}
	return ok("Metodos eliminados exitosamente"), nil
}

func (b *MethodBO) getPermissionMethods(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getPermissionMethods")
	if err != nil {
		b.deps.Logger.Error("getPermissionMethods", slog.Any("error", err))
		return fail("Error al obtener los permisos"), nil
	}
	return okData(result.Rows), nil
}

type createPermissionMethodParams struct {
	ProfileID int64 `json:"fk_id_profile" validate:"required"`
	MethodID  int64 `json:"fk_id_method" validate:"required"`
}

func (b *MethodBO) createPermissionMethod(ctx context.Context, params json.RawMessage) (any, error) {
	var p createPermissionMethodParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	methodRow, err := b.methodByID(ctx, p.MethodID)
	if err != nil || methodRow == nil {
		return fail("Metodo no valido"), nil
	}
	if p.ProfileID != security.SuperAdminProfile && security.IsProtectedObject(methodRow.String("object")) {
		return fail("No se puede asignar este objeto de negocio a perfiles no-admin"), nil
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "createPermissionMethod", p.ProfileID, p.MethodID); err != nil {
		if store.IsUniqueViolation(err) {
			return fail("El permiso ya existe"), nil
		}
		return fail("No se pudo crear el permiso"), nil
	}

	b.deps.Cache.GrantMethod(security.MethodGrant{
		Profile: p.ProfileID,
		Object:  methodRow.String("object"),
		Method:  methodRow.String("method"),
	})
	return ok("Permiso creado exitosamente"), nil
}

type updatePermissionMethodParams struct {
	PermissionID int64  `json:"id_permission_method" validate:"required"`
	ProfileID    int64  `json:"fk_id_profile" validate:"required"`
	MethodID     int64  `json:"fk_id_method" validate:"required"`
	OldProfileID int64  `json:"old_fk_id_profile" validate:"required"`
	Method       string `json:"method" validate:"required"`
	Object       string `json:"object" validate:"required"`
}

func (b *MethodBO) updatePermissionMethod(ctx context.Context, params json.RawMessage) (any, error) {
	var p updatePermissionMethodParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	methodRow, err := b.methodByID(ctx, p.MethodID)
	if err != nil || methodRow == nil {
		return fail("Metodo no valido"), nil
	}
	if p.ProfileID != security.SuperAdminProfile && security.IsProtectedObject(methodRow.String("object")) {
		return fail("No se puede asignar este objeto de negocio a perfiles no-admin"), nil
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "updatePermissionMethod", p.ProfileID, p.MethodID, p.PermissionID); err != nil {
		return fail("No se pudo actualizar el permiso"), nil
	}

	b.deps.Cache.RegrantMethod(
		security.MethodGrant{Profile: p.OldProfileID, Object: p.Object, Method: p.Method},
		security.MethodGrant{Profile: p.ProfileID, Object: methodRow.String("object"), Method: methodRow.String("method")},
	)
	return ok("Permiso actualizado exitosamente"), nil
}

type deletePermissionMethodsParams struct {
	Permissions []struct {
		PermissionID int64  `json:"id_permission_method" validate:"required"`
		Object       string `json:"object"`
	} `json:"permissions" validate:"required,min=1,dive"`
}

func (b *MethodBO) deletePermissionMethods(ctx context.Context, params json.RawMessage) (any, error) {
	var p deletePermissionMethodsParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios o formato incorrecto"), nil
	}

	ids := make([]int64, 0, len(p.Permissions))
	wanted := make(map[int64]struct{}, len(p.Permissions))
	for _, perm := range p.Permissions {
		ids = append(ids, perm.PermissionID)
		wanted[perm.PermissionID] = struct{}{}
	}

	// Snapshot the affected rows before the delete so the cache can be
	// patched afterwards.
	allResult, err := b.deps.Store.ExecuteQuery(ctx, "security", "getPermissionMethods")
	if err != nil {
		return fail("No se pudieron eliminar los permisos"), nil
	}
	var toRevoke []security.MethodGrant
	for _, row := range allResult.Rows {
		if _, ok := wanted[row.Int64("id_permission_method")]; ok {
			toRevoke = append(toRevoke, security.MethodGrant{
				Profile: row.Int64("fk_id_profile"),
				Object:  row.String("object"),
				Method:  row.String("method"),
			})
		}
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deletePermissionMethods", ids); err != nil {
		return fail("No se pudieron eliminar los permisos"), nil
	}
	for _, grant := range toRevoke {
		b.deps.Cache.RevokeMethod(grant)
	}
	return ok("Permisos eliminados exitosamente"), nil
}

type syncPermissionsParams struct {
	ProfileID int64   `json:"id_profile" validate:"required"`
	MethodIDs []int64 `json:"method_ids"`
}

// syncPermissions replaces every grant of a profile with the requested set,
// then reloads the cache wholesale.
func (b *MethodBO) syncPermissions(ctx context.Context, params json.RawMessage) (any, error) {
	var p syncPermissionsParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	if p.ProfileID != security.SuperAdminProfile {
		for _, methodID := range p.MethodIDs {
			methodRow, err := b.methodByID(ctx, methodID)
			if err != nil {
				return fail("No se pudieron sincronizar los permisos"), nil
			}
			if methodRow != nil && security.IsProtectedObject(methodRow.String("object")) {
				return fail("No se pueden asignar objetos de negocio predeterminados a perfiles no-admin"), nil
			}
		}
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deletePermissionsByProfile", p.ProfileID); err != nil {
		return fail("No se pudieron sincronizar los permisos"), nil
	}
	for _, methodID := range p.MethodIDs {
		if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "createPermissionMethod", p.ProfileID, methodID); err != nil {
			b.deps.Logger.Error("sync grant", slog.Int64("method", methodID), slog.Any("error", err))
		}
	}

	if err := b.deps.Cache.Reload(ctx); err != nil {
		b.deps.Logger.Error("cache reload after sync", slog.Any("error", err))
	}
	return ok("Permisos sincronizados correctamente"), nil
}
