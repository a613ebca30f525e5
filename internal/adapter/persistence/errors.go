package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/lib/pq"
)

// Postgres error codes the adapters translate into domain errors
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
	codeSerialization       = "40001"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// translate maps driver errors to the domain taxonomy. notFound is the
// message used for missing rows and malformed ids alike, so a garbage id
// behaves like an unknown one.
func translate(err error, op, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(notFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeInvalidText:
			return domain.NotFound(notFound)
		case codeUniqueViolation:
			return domain.Conflict(fmt.Sprintf("%s: duplicate value violates %s", op, pqErr.Constraint))
		case codeForeignKeyViolation:
			return domain.NotFound(notFound)
		case codeSerialization:
			return domain.InvalidState("concurrent update, please reload and retry")
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
