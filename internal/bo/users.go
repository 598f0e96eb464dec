package bo

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/shared"
)

// UserBO manages user accounts, their person rows and profile assignments.
// Protected: only the super-admin profile may ever reach it.
type UserBO struct {
	deps  Deps
	ident shared.Identity
}

// Methods lists the exposed operations.
func (b *UserBO) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"getUsers":    b.getUsers,
		"createUser":  b.createUser,
		"updateUser":  b.updateUser,
		"deleteUsers": b.deleteUsers,
	}
}

func (b *UserBO) getUsers(ctx context.Context, _ json.RawMessage) (any, error) {
	result, err := b.deps.Store.ExecuteQuery(ctx, "security", "getUsers")
	if err != nil {
		b.deps.Logger.Error("getUsers", slog.Any("error", err))
		return fail("Error al obtener usuarios"), nil
	}
	rows := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		out := map[string]any(row)
		if bd, ok := row["birth_date"].(time.Time); ok {
			out["birth_date"] = bd.Format("2006-01-02")
		}
		rows = append(rows, out)
	}
	return okData(rows), nil
}

type createUserParams struct {
	Name      string  `json:"name" validate:"required"`
	LastName  string  `json:"lastName" validate:"required"`
	BirthDate string  `json:"birthDate" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	NumberID  string  `json:"numberId" validate:"required"`
	Profiles  []int64 `json:"id_profile" validate:"required,min=1"`
}

func (b *UserBO) createUser(ctx context.Context, params json.RawMessage) (any, error) {
	var p createUserParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	personResult, err := b.deps.Store.ExecuteQuery(ctx, "public", "createPerson", p.Name, p.LastName, p.BirthDate)
	if err != nil || len(personResult.Rows) == 0 {
		b.deps.Logger.Error("create person", slog.Any("error", err))
		return fail("No se pudo crear la persona"), nil
	}
	personID := personResult.Rows[0].Int64("id_person")

	encoded, err := session.EncodePassword(b.deps.Mode, p.Password)
	if err != nil {
		b.deps.Logger.Error("encode password", slog.Any("error", err))
		return fail("No se pudo crear el usuario"), nil
	}
	userResult, err := b.deps.Store.ExecuteQuery(ctx, "security", "createUser", p.Email, encoded, p.NumberID, personID)
	if err != nil || len(userResult.Rows) == 0 {
		b.deps.Logger.Error("create user", slog.Any("error", err))
		return fail("No se pudo crear el usuario"), nil
	}
	userID := userResult.Rows[0].Int64("id_user")

	allInserted := true
	for _, profileID := range p.Profiles {
		if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "createUserProfile", userID, profileID); err != nil {
			allInserted = false
			b.deps.Logger.Error("assign profile",
				slog.Int64("profile", profileID),
				slog.String("email", p.Email),
				slog.Any("error", err))
		}
	}
	if !allInserted {
		return fail("Usuario creado, pero no se pudo asignar uno o más perfiles"), nil
	}
	return ok("Usuario creado correctamente"), nil
}

type updateUserParams struct {
	UserID    int64   `json:"id_user" validate:"required"`
	PersonID  int64   `json:"id_person" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	LastName  string  `json:"lastName" validate:"required"`
	BirthDate string  `json:"birthDate" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	NumberID  string  `json:"numberId" validate:"required"`
	Profiles  []int64 `json:"profile" validate:"required,min=1"`
}

func (b *UserBO) updateUser(ctx context.Context, params json.RawMessage) (any, error) {
	var p updateUserParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	personResult, err := b.deps.Store.ExecuteQuery(ctx, "public", "updatePerson", p.Name, p.LastName, p.BirthDate, p.PersonID)
	if err != nil || personResult.RowsAffected == 0 {
		return fail("No se pudo actualizar la persona"), nil
	}

	userResult, err := b.deps.Store.ExecuteQuery(ctx, "security", "updateUser", p.Email, p.NumberID, p.UserID)
	if err != nil || userResult.RowsAffected == 0 {
		return fail("No se pudo actualizar el usuario"), nil
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteUserProfileByUserId", []int64{p.UserID}); err != nil {
		b.deps.Logger.Error("clear profiles", slog.Any("error", err))
	}

	allInserted := true
	for _, profileID := range p.Profiles {
		if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "createUserProfile", p.UserID, profileID); err != nil {
			allInserted = false
		}
	}
	if !allInserted {
		return fail("Usuario actualizado, pero no se pudo actualizar uno o más perfiles"), nil
	}
	return ok("Usuario actualizado correctamente"), nil
}

type deleteUsersParams struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (b *UserBO) deleteUsers(ctx context.Context, params json.RawMessage) (any, error) {
	var p deleteUsersParams
	if err := decode(params, &p); err != nil {
		return fail("Faltan datos obligatorios"), nil
	}

	infoResult, err := b.deps.Store.ExecuteQuery(ctx, "security", "getUserById", p.IDs)
	if err != nil || len(infoResult.Rows) == 0 {
		return fail("No se encontraron los usuarios"), nil
	}
	personIDs := make([]int64, 0, len(infoResult.Rows))
	for _, row := range infoResult.Rows {
		personIDs = append(personIDs, row.Int64("fk_id_person"))
	}

	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteUserProfileByUserId", p.IDs); err != nil {
		return fail("Error al eliminar los usuarios"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "security", "deleteUser", p.IDs); err != nil {
		return fail("Error al eliminar los usuarios"), nil
	}
	if _, err := b.deps.Store.ExecuteQuery(ctx, "public", "deletePerson", personIDs); err != nil {
		return fail("Error al eliminar los usuarios"), nil
	}
	return ok("Usuarios eliminados correctamente"), nil
}
