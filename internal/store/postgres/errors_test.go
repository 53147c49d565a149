package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   store.Code
		wantColumn string
		wantMsg    string
	}{
		{
			name: "unique email by constraint",
			err: &pgconn.PgError{
				Code:           "23505",
				Message:        `duplicate key value violates unique constraint "solicitacoes_cadastro_email_key"`,
				ConstraintName: "solicitacoes_cadastro_email_key",
			},
			wantCode:   store.CodeUniqueViolation,
			wantColumn: store.UniqueEmail,
			wantMsg:    `duplicate key value violates unique constraint "solicitacoes_cadastro_email_key"`,
		},
		{
			name: "unique license by detail",
			err: &pgconn.PgError{
				Code:    "23505",
				Message: "duplicate key value violates unique constraint",
				Detail:  "Key (conselho)=(12.345.678-9) already exists.",
			},
			wantCode:   store.CodeUniqueViolation,
			wantColumn: store.UniqueLicense,
			wantMsg:    "duplicate key value violates unique constraint",
		},
		{
			name:     "not null violation",
			err:      &pgconn.PgError{Code: "23502", Message: `null value in column "nome"`},
			wantCode: store.CodeInvalidInput,
			wantMsg:  `null value in column "nome"`,
		},
		{
			name:     "connection failure class",
			err:      &pgconn.PgError{Code: "08006", Message: "connection failure"},
			wantCode: store.CodeUnavailable,
			wantMsg:  "connection failure",
		},
		{
			name:     "wrapped no rows",
			err:      fmt.Errorf("scan: %w", pgx.ErrNoRows),
			wantCode: store.CodeNotFound,
			wantMsg:  "scan: no rows in result set",
		},
		{
			name:     "context deadline",
			err:      context.DeadlineExceeded,
			wantCode: store.CodeUnavailable,
			wantMsg:  "context deadline exceeded",
		},
		{
			name:     "unclassified",
			err:      errors.New("boom"),
			wantCode: store.CodeUnknown,
			wantMsg:  "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate("insert", tt.err)
			if got := store.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if got := store.ColumnHint(err); tt.wantColumn != "" && got != tt.wantColumn {
				t.Errorf("column = %q, want %q", got, tt.wantColumn)
			}
			if got := err.Error(); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(err, tt.err) {
				t.Error("translated error does not wrap the original")
			}
		})
	}

	if translate("insert", nil) != nil {
		t.Error("translate(nil) != nil")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"foto":        `"foto"`,
		`we"ird`:      `"we""ird"`,
		"anexo_civil": `"anexo_civil"`,
	}
	for in, want := range tests {
		if got := quoteIdentifier(in); got != want {
			t.Errorf("quoteIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}
