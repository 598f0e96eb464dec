package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablero/tablero/internal/shared"
	_ "github.com/tablero/tablero/testing"
)

func TestLookupKnownQueries(t *testing.T) {
	for _, tc := range []struct{ schema, queryID string }{
		{"security", "loadPermission"},
		{"security", "loadMenu"},
		{"security", "insertAudit"},
		{"security", "getUser"},
		{"security", "getUserProfiles"},
		{"security", "createPermissionMethod"},
		{"public", "createBoard"},
		{"public", "createTask"},
		{"public", "updateTaskPosition"},
	} {
		sql, err := lookup(tc.schema, tc.queryID)
		require.NoError(t, err, "%s.%s", tc.schema, tc.queryID)
		assert.NotEmpty(t, sql)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := lookup("security", "dropEverything")
	assert.ErrorIs(t, err, shared.ErrQueryUnknown)

	_, err = lookup("nope", "getUser")
	assert.ErrorIs(t, err, shared.ErrQueryUnknown)
}

func TestRowAccessors(t *testing.T) {
	row := Row{
		"id":    int32(7),
		"big":   int64(9),
		"small": int16(3),
		"name":  "ana",
		"none":  nil,
	}

	assert.Equal(t, int64(7), row.Int64("id"))
	assert.Equal(t, int64(9), row.Int64("big"))
	assert.Equal(t, int64(3), row.Int64("small"))
	assert.Zero(t, row.Int64("name"))
	assert.Zero(t, row.Int64("missing"))

	assert.Equal(t, "ana", row.String("name"))
	assert.Empty(t, row.String("id"))
	assert.Empty(t, row.String("missing"))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505"}
	assert.True(t, IsUniqueViolation(pgErr))
	assert.True(t, IsUniqueViolation(fmt.Errorf("security.createUser: %w: %w", shared.ErrStore, pgErr)))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}
