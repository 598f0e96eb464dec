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

// ProfileBO manages the profile catalog. Protected object.
type ProfileBO struct {
	deps  Deps
	ident shared.Identity
}

// Methods lists the exposed operations.
func (b *ProfileBO) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"getProfiles":           b.getProfiles,
		"createProfile":         b.createProfile,
		"updateProfile":         b.updateProfile,
		"deleteProfiles":        b.deleteProfiles,
		"getPermissionMenus":    b.getPermissionMenus,
		"createPermissionMenu":  b.createPermissionMenu,
		"updatePermissionMenu":  b.updatePermissionMenu,
		"deletePermissionMenus": b.deletePermissionMenus,
	}
}

func (b *ProfileBO) getProfiles(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getProfiles")
	if err != nil {
		b.deps.Logger.Error("getProfiles", slog.Any("error", err))
		return fail("Error al obtener perfiles"), nil
	}
	return okData(result.Rows), nil
}

type createProfileParams struct {
	ProfileName string `json:"profileName" validate:"required"`
}

func (b *ProfileBO) createProfile(ctx context.Context, params json.RawMessage) (any, error) {
	var p createProfileParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "createProfile", p.ProfileName)
	if err != nil || result.RowsAffected == 0 {
		return fail("No se pudo crear el perfil"), nil
	}
	return ok("Perfil creado correctamente"), nil
}

type updateProfileParams struct {
	ProfileID   int64  `json:"id_profile" validate:"required"`
	ProfileName string `json:"profileName" validate:"required"`
}

func (b *ProfileBO) updateProfile(ctx context.Context, params json.RawMessage) (any, error) {
	var p updateProfileParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "updateProfile", p.ProfileName, p.ProfileID)
	if err != nil || result.RowsAffected == 0 {
		return fail("No se pudo actualizar el perfil"), nil
	}
	return ok("Perfil actualizado correctamente"), nil
}

type deleteProfilesParams struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// deleteProfiles clears grants and user links first to avoid foreign key
// failures, then reloads the cache so stale grants disappear at once.
func (b *ProfileBO) deleteProfiles(ctx context.Context, params json.RawMessage) (any, error) {
	var p deleteProfilesParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	for _, queryID := range []string{
		"deletePermissionMethodsByProfiles",
		"deletePermissionMenusByProfiles",
		"deleteUserProfilesByProfiles",
	} {
		if _, err := b.deps.Store.ExecuteQuery(ctx, "security", queryID, p.IDs); err != nil {
			b.deps.Logger.Error("delete profile relations",
				slog.String("query", queryID), slog.Any("error", err))
			return fail("No se pudo eliminar los perfiles"), nil
		}
	}

	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteProfiles", p.IDs)
	if reloadErr := b.deps.Cache.Reload(ctx); reloadErr != nil {
		b.deps.Logger.Error("cache reload after profile delete", slog.Any("error", reloadErr))
	}
	if err != nil || result.RowsAffected == 0 {
		return fail("No se pudo eliminar los perfiles"), nil
	}
	return ok("Perfiles eliminados correctamente"), nil
}

func (b *ProfileBO) getPermissionMenus(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getPermissionMenus")
	if err != nil {
		b.deps.Logger.Error("getPermissionMenus", slog.Any("error", err))
		return fail("Error al obtener las opciones de menú"), nil
	}
	return okData(result.Rows), nil
}

type createPermissionMenuParams struct {
	ProfileID int64  `json:"fk_id_profile" validate:"required"`
	Menu      string `json:"menu" validate:"required"`
	ModuleID  int64  `json:"fk_id_module" validate:"required"`
}

func (b *ProfileBO) createPermissionMenu(ctx context.Context, params json.RawMessage) (any, error) {
	var p createPermissionMenuParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "createPermissionMenu", p.ProfileID, p.Menu, p.ModuleID); err != nil {
		if store.IsUniqueViolation(err) {
			return fail("La opción ya existe"), nil
		}
		return fail("No se pudo crear la opción de menú"), nil
	}
	b.deps.Cache.GrantMenu(security.MenuGrant{Profile: p.ProfileID, Menu: p.Menu, Module: p.ModuleID})
	return ok("Opción de menú creada correctamente"), nil
}

type updatePermissionMenuParams struct {
	PermissionID int64  `json:"id_permission_menu" validate:"required"`
	ProfileID    int64  `json:"fk_id_profile" validate:"required"`
	Menu         string `json:"menu" validate:"required"`
	ModuleID     int64  `json:"fk_id_module" validate:"required"`
	OldProfileID int64  `json:"old_fk_id_profile" validate:"required"`
	OldMenu      string `json:"old_menu" validate:"required"`
	OldModuleID  int64  `json:"old_fk_id_module" validate:"required"`
}

func (b *ProfileBO) updatePermissionMenu(ctx context.Context, params json.RawMessage) (any, error) {
	var p updatePermissionMenuParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "updatePermissionMenu", p.ProfileID, p.Menu, p.ModuleID, p.PermissionID); err != nil {
		return fail("No se pudo actualizar la opción de menú"), nil
	}
	b.deps.Cache.RegrantMenu(
		security.MenuGrant{Profile: p.OldProfileID, Menu: p.OldMenu, Module: p.OldModuleID},
		security.MenuGrant{Profile: p.ProfileID, Menu: p.Menu, Module: p.ModuleID},
	)
	return ok("Opción de menú actualizada correctamente"), nil
}

type deletePermissionMenusParams struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (b *ProfileBO) deletePermissionMenus(ctx context.Context, params json.RawMessage) (any, error) {
	var p deletePermissionMenusParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios o formato incorrecto"), nil
	}

	wanted := make(map[int64]struct{}, len(p.IDs))
	for _, id := range p.IDs {
		wanted[id] = struct{}{}
	}
	allResult, err := b.deps.Store.ExecuteQuery(ctx, "security", "getPermissionMenus")
	if err != nil {
		return fail("No se pudieron eliminar las opciones de menú"), nil
	}
	var toRevoke []security.MenuGrant
	for _, row := range allResult.Rows {
		if _, ok := wanted[row.Int64("id_permission_menu")]; ok {
			toRevoke = append(toRevoke, security.MenuGrant{
				Profile: row.Int64("fk_id_profile"),
				Menu:    row.String("menu"),
				Module:  row.Int64("fk_id_module"),
			})
		}
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deletePermissionMenus", p.IDs); err != nil {
		return fail("No se pudieron eliminar las opciones de menú"), nil
	}
	for _, grant := range toRevoke {
		b.deps.Cache.RevokeMenu(grant)
	}
	return ok("Opciones de menú eliminadas correctamente"), nil
}
