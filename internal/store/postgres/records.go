package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

const registrationsTable = "solicitacoes_cadastro"

const insertRegistrationSQL = `
INSERT INTO solicitacoes_cadastro (
    nome, sexo, conselho, tipo_profissional,
    banco, agencia, conta, digito, pix, pix_type,
    endereco_rua, endereco_numero, endereco_bairro, endereco_cidade, endereco_complemento,
    cep, estado_civil, email, celular, celular2, termo_privacidade
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7, $8, $9, $10,
    $11, $12, $13, $14, $15,
    $16, $17, $18, $19, $20, $21
)
RETURNING id`

// Insert implements store.RecordStore.
func (s *Store) Insert(ctx context.Context, reg store.Registration) (int64, error) {
	var phone2 *string
	if reg.Phone2 != "" {
		phone2 = &reg.Phone2
	}

	var id int64
	err := s.pool.QueryRow(ctx, insertRegistrationSQL,
		reg.Name, reg.Sex, reg.License, reg.Category,
		reg.Bank, reg.Branch, reg.Account, reg.CheckDigit, reg.PixKey, reg.PixKeyType,
		reg.Street, reg.Number, reg.Neighborhood, reg.City, reg.Complement,
		reg.PostalCode, reg.MaritalStatus, reg.Email, reg.Phone, phone2, reg.Consent,
	).Scan(&id)
	if err != nil {
		return 0, translate("insert", err)
	}
	return id, nil
}

// Update implements store.RecordStore. Only attachment columns are accepted.
func (s *Store) Update(ctx context.Context, id int64, paths map[string]string) error {
	if len(paths) == 0 {
		return nil
	}

	cols := make([]string, 0, len(paths))
	for col := range paths {
		if !store.IsAttachmentColumn(col) {
			return &store.Error{
				Op:      "update",
				Code:    store.CodeInvalidInput,
				Message: fmt.Sprintf("column %q is not an attachment column", col),
			}
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(col), i+1)
		args = append(args, paths[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		quoteIdentifier(registrationsTable), strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return translate("update", err)
	}
	if tag.RowsAffected() == 0 {
		return &store.Error{Op: "update", Code: store.CodeNotFound, Message: fmt.Sprintf("registration %d not found", id)}
	}
	return nil
}

// Delete implements store.RecordStore.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM solicitacoes_cadastro WHERE id = $1", id)
	if err != nil {
		return translate("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return &store.Error{Op: "delete", Code: store.CodeNotFound, Message: fmt.Sprintf("registration %d not found", id)}
	}
	return nil
}

// quoteIdentifier safely quotes a PostgreSQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
