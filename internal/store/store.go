package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablero/tablero/internal/shared"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result is the row set returned by a query.
type Result struct {
	Rows         []Row
	RowsAffected int64
}

// Int64 reads a column as int64, tolerating the integer widths pgx produces.
func (r Row) Int64(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// String reads a column as a string; non-string values yield "".
func (r Row) String(column string) string {
	s, _ := r[column].(string)
	return s
}

// Querier executes symbolic queries. Declared here so consumers depend on the
// behavior, not the pool; tests substitute fakes.
type Querier interface {
	ExecuteQuery(ctx context.Context, schema, queryID string, params ...any) (*Result, error)
}

// Store executes catalog queries against PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New constructs a Store over the given pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// ExecuteQuery runs the named query with positional params and materializes
// the row set. Unknown ids fail before touching the pool.
func (s *Store) ExecuteQuery(ctx context.Context, schema, queryID string, params ...any) (*Result, error) {
	sql, err := lookup(schema, queryID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		s.logger.Error("execute query",
			slog.String("schema", schema),
			slog.String("query", queryID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%s.%s: %w: %w", schema, queryID, shared.ErrStore, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &Result{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", schema, queryID, shared.ErrStore)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("read rows",
			slog.String("schema", schema),
			slog.String("query", queryID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%s.%s: %w", schema, queryID, shared.ErrStore)
	}
	result.RowsAffected = rows.CommandTag().RowsAffected()
	return result, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// failure, used to surface duplicate emails and grants without leaking SQL.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func lookup(schema, queryID string) (string, error) {
	queries, ok := catalog[schema]
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", schema, queryID, shared.ErrQueryUnknown)
	}
	sql, ok := queries[queryID]
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", schema, queryID, shared.ErrQueryUnknown)
	}
	return sql, nil
}

var _ Querier = (*Store)(nil)
