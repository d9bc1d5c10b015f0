package pgdb

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// Querier — общее подмножество pgxpool.Pool и pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// storeErr приводит ошибки драйвера к ошибкам каталога: нет строки, дубликат, недоступность хранилища.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return e.Wrap(op, e.ErrNotFound)
	case postgresDuplicate(err):
		return e.Wrap(op, errors.Join(e.ErrDuplicateArticle, err))
	case isUnavailable(err):
		return e.Wrap(op, errors.Join(e.ErrStoreUnavailable, err))
	}

	return e.Wrap(op, err)
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	// 08xxx — ошибки соединения, 57P0x — остановка сервера
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}
