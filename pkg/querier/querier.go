// Package querier выполняет squirrel запросы в транзакции из контекста,
// а без нее - прямо на пуле. Плейсхолдеры "?" приводятся к виду $n,
// так что sq.Expr можно передавать как есть.
package querier

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Querier struct {
	pool   *pgxpool.Pool
	getter *pgxv5.CtxGetter
}

func New(pool *pgxpool.Pool, getter *pgxv5.CtxGetter) *Querier {
	return &Querier{
		pool:   pool,
		getter: getter,
	}
}

// Exec возвращает число затронутых строк.
func (q *Querier) Exec(ctx context.Context, builder sq.Sqlizer) (int64, error) {
	query, args, err := toSQL(builder)
	if err != nil {
		return 0, err
	}

	tag, err := q.executor(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Querier) Query(ctx context.Context, builder sq.Sqlizer) (pgx.Rows, error) {
	query, args, err := toSQL(builder)
	if err != nil {
		return nil, err
	}
	return q.executor(ctx).Query(ctx, query, args...)
}

// QueryRow откладывает ошибку сборки запроса до Scan, как это делает pgx.
func (q *Querier) QueryRow(ctx context.Context, builder sq.Sqlizer) pgx.Row {
	query, args, err := toSQL(builder)
	if err != nil {
		return errRow{err: err}
	}
	return q.executor(ctx).QueryRow(ctx, query, args...)
}

func (q *Querier) executor(ctx context.Context) pgxv5.Tr {
	return q.getter.DefaultTrOrDB(ctx, q.pool)
}

func toSQL(builder sq.Sqlizer) (string, []interface{}, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}

	query, err = sq.Dollar.ReplacePlaceholders(query)
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	return query, args, nil
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
