package sql

import (
	"context"
	"database/sql"
)

// rowQuerier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
