package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE 42P01: undefined_table.
const undefinedTableCode = "42P01"

// IsUndefinedTable reports whether err means the queried relation has not
// been migrated yet. Callers use it to fail open (access gate) or degrade
// with a warning (summary) instead of hard-failing on a migration gap.
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
