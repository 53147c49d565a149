// Package store defines the remote store primitives the submission
// coordinator writes through: one record table and one object bucket.
//
// Adapters (postgres, memory) translate their native failures into *Error
// values carrying a Code, so callers classify failures without parsing
// message text. Message matching remains available as a fallback through
// ColumnHint for adapters that cannot surface codes.
package store

import (
	"context"
	"errors"
	"strings"
)

// Registration holds the scalar columns of one submission row.
// Attachment paths are not part of the insert; they arrive later via Update.
type Registration struct {
	Name          string // nome
	Sex           string // sexo
	License       string // conselho
	Category      string // tipo_profissional
	Bank          string // banco
	Branch        string // agencia
	Account       string // conta
	CheckDigit    string // digito
	PixKey        string // pix
	PixKeyType    string // pix_type
	Street        string // endereco_rua
	Number        string // endereco_numero
	Neighborhood  string // endereco_bairro
	City          string // endereco_cidade
	Complement    string // endereco_complemento
	PostalCode    string // cep
	MaritalStatus string // estado_civil
	Email         string // email
	Phone         string // celular
	Phone2        string // celular2, stored as NULL when empty
	Consent       bool   // termo_privacidade
}

// Attachment columns on the registration row, patched after upload.
const (
	ColumnNadaConsta      = "documento_nada_consta"
	ColumnResidence       = "documento_residencia"
	ColumnMaritalDocument = "anexo_estado_civil"
	ColumnVaccination     = "caderneta_vacina"
	ColumnMilitary        = "certificado_reservista"
	ColumnPhoto           = "foto"
)

// AttachmentColumns lists every column Update accepts.
var AttachmentColumns = []string{
	ColumnNadaConsta,
	ColumnResidence,
	ColumnMaritalDocument,
	ColumnVaccination,
	ColumnMilitary,
	ColumnPhoto,
}

// IsAttachmentColumn reports whether col may be written by Update.
func IsAttachmentColumn(col string) bool {
	for _, c := range AttachmentColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Object is one file to store.
type Object struct {
	Data        []byte
	ContentType string
}

// UploadOptions mirrors the storage API knobs the form uses.
type UploadOptions struct {
	CacheControl string // seconds, e.g. "3600"
	NoOverwrite  bool   // fail instead of replacing an existing path
}

// RecordStore persists submission rows.
type RecordStore interface {
	// Insert creates a row and returns its generated id.
	Insert(ctx context.Context, reg Registration) (int64, error)
	// Update sets attachment columns on an existing row.
	Update(ctx context.Context, id int64, paths map[string]string) error
	// Delete removes a row.
	Delete(ctx context.Context, id int64) error
}

// ObjectStore persists files.
type ObjectStore interface {
	// Upload writes obj at path and returns the stored path.
	Upload(ctx context.Context, bucket, path string, obj Object, opts UploadOptions) (string, error)
	// Remove deletes every path in one call. Missing paths are not an error.
	Remove(ctx context.Context, bucket string, paths []string) error
}

// Store is the full backend surface.
type Store interface {
	RecordStore
	ObjectStore
	Ping(ctx context.Context) error
	Close()
}

// Code classifies a store failure.
type Code string

const (
	CodeUnknown         Code = ""
	CodeUniqueViolation Code = "unique_violation"
	CodeNotFound        Code = "not_found"
	CodeObjectExists    Code = "object_exists"
	CodeInvalidInput    Code = "invalid_input"
	CodeUnavailable     Code = "unavailable"
)

// Error is the structured failure every adapter returns.
type Error struct {
	Op      string // insert, update, delete, upload, remove
	Code    Code
	Column  string // colliding column for unique violations, when known
	Message string // backend message, shown to users verbatim for write failures
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel errors matched with errors.Is against *Error codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("store unavailable")
	ErrObjectExists = errors.New("object already exists")
)

// Is lets errors.Is(err, ErrNotFound) match by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrUnavailable:
		return e.Code == CodeUnavailable
	case ErrObjectExists:
		return e.Code == CodeObjectExists
	}
	return false
}

// CodeOf returns the Code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// Columns that carry a uniqueness constraint on the registration table.
const (
	UniqueEmail   = "email"
	UniqueLicense = "conselho"
)

// ColumnHint returns the colliding unique column for err.
// It prefers the structured Column and falls back to searching the message
// text for a known column name. The fallback depends on the backend's
// message format and is not exhaustive; "" means unknown.
func ColumnHint(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) && se.Column != "" {
		return se.Column
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, UniqueEmail):
		return UniqueEmail
	case strings.Contains(msg, UniqueLicense):
		return UniqueLicense
	}
	return ""
}
