package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

// PostgreSQL error classes the store distinguishes.
const (
	sqlStateUniqueViolation = "23505"
	sqlStateClassIntegrity  = "23"
	sqlStateClassData       = "22"
	sqlStateClassConnection = "08"
)

// translate converts a pgx error into a *store.Error.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		se := &store.Error{Op: op, Message: pgErr.Message, Err: err}
		switch {
		case pgErr.Code == sqlStateUniqueViolation:
			se.Code = store.CodeUniqueViolation
			se.Column = uniqueColumn(pgErr)
		case strings.HasPrefix(pgErr.Code, sqlStateClassIntegrity),
			strings.HasPrefix(pgErr.Code, sqlStateClassData):
			se.Code = store.CodeInvalidInput
		case strings.HasPrefix(pgErr.Code, sqlStateClassConnection):
			se.Code = store.CodeUnavailable
		}
		return se
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return &store.Error{Op: op, Code: store.CodeNotFound, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return &store.Error{Op: op, Code: store.CodeUnavailable, Err: err}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &store.Error{Op: op, Code: store.CodeUnavailable, Err: err}
	}
	return &store.Error{Op: op, Err: err}
}

// uniqueColumn resolves the colliding column from the constraint name
// ("solicitacoes_cadastro_email_key") or the detail ("Key (email)=(...)").
func uniqueColumn(pgErr *pgconn.PgError) string {
	for _, col := range []string{store.UniqueEmail, store.UniqueLicense} {
		if pgErr.ConstraintName == registrationsTable+"_"+col+"_key" {
			return col
		}
	}
	for _, col := range []string{store.UniqueEmail, store.UniqueLicense} {
		if strings.Contains(pgErr.Detail, "("+col+")") {
			return col
		}
	}
	return ""
}
