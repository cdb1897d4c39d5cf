package session

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type Querier interface {
	Exec(ctx context.Context, builder sq.Sqlizer) (int64, error)
	Query(ctx context.Context, builder sq.Sqlizer) (pgx.Rows, error)
	QueryRow(ctx context.Context, builder sq.Sqlizer) pgx.Row
}
