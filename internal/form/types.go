// Package form holds the registration form model: field masks, the
// validation rule set and the form state driven by Reduce.
//
// Everything here is pure. Nothing performs I/O, so the HTTP layer and the
// submission coordinator can share one definition of a valid draft.
package form

import (
	"path"
	"strings"
)

// Field names a form field. Values match the names posted by the page.
type Field string

// Scalar fields.
const (
	FieldName          Field = "nome"
	FieldSex           Field = "sexo"
	FieldLicense       Field = "conselho"
	FieldCategory      Field = "tipoProfissional"
	FieldMaritalStatus Field = "estadoCivil"
	FieldBank          Field = "banco"
	FieldBranch        Field = "agencia"
	FieldAccount       Field = "conta"
	FieldCheckDigit    Field = "digito"
	FieldPixKeyType    Field = "pixType"
	FieldPixKey        Field = "pix"
	FieldStreet        Field = "enderecoRua"
	FieldNumber        Field = "enderecoNumero"
	FieldNeighborhood  Field = "enderecoBairro"
	FieldCity          Field = "enderecoCidade"
	FieldComplement    Field = "enderecoComplemento"
	FieldPostalCode    Field = "cep"
	FieldEmail         Field = "email"
	FieldPhone         Field = "celular"
	FieldPhone2        Field = "celular2"
	FieldConsent       Field = "termoPrivacidade"
)

// Attachment fields.
const (
	FileNadaConsta      Field = "documentoNadaConsta"
	FileResidence       Field = "documentoResidencia"
	FileMaritalDocument Field = "anexoEstadoCivil"
	FileVaccination     Field = "cadernetaVacina"
	FileMilitary        Field = "certificadoReservista"
	FilePhoto           Field = "foto"
)

// ScalarFields lists text fields in form order. The key type precedes the
// key so that applying a posted form in this order keeps the key value.
var ScalarFields = []Field{
	FieldName, FieldSex, FieldLicense, FieldCategory, FieldMaritalStatus,
	FieldBank, FieldBranch, FieldAccount, FieldCheckDigit,
	FieldPixKeyType, FieldPixKey,
	FieldStreet, FieldNumber, FieldNeighborhood, FieldCity, FieldComplement,
	FieldPostalCode, FieldEmail, FieldPhone, FieldPhone2,
}

// FileFields lists attachments in canonical upload order.
var FileFields = []Field{
	FileNadaConsta,
	FileResidence,
	FileMaritalDocument,
	FileVaccination,
	FileMilitary,
	FilePhoto,
}

// AllFields lists every field, including the consent flag.
func AllFields() []Field {
	all := make([]Field, 0, len(ScalarFields)+len(FileFields)+1)
	all = append(all, ScalarFields...)
	all = append(all, FileFields...)
	return append(all, FieldConsent)
}

// IsScalar reports whether f is a text field.
func IsScalar(f Field) bool {
	for _, s := range ScalarFields {
		if s == f {
			return true
		}
	}
	return false
}

// IsFile reports whether f is an attachment field.
func IsFile(f Field) bool {
	for _, s := range FileFields {
		if s == f {
			return true
		}
	}
	return false
}

// Enumerated values.
const (
	SexMale   = "homem"
	SexFemale = "mulher"

	CategoryTechnician = "tecnico de enfermagem"
	CategoryNurse      = "enfermeiro"

	MaritalSingle   = "solteiro"
	MaritalMarried  = "casado"
	MaritalDivorced = "divorciado"
	MaritalWidowed  = "viuvo"
	MaritalUnion    = "uniao_estavel"

	PixCPF    = "cpf"
	PixCNPJ   = "cnpj"
	PixEmail  = "email"
	PixPhone  = "celular"
	PixRandom = "aleatoria"
)

// File is a picked attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (f *File) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// Ext returns the original extension without the dot, or "" when the name
// has none.
func (f *File) Ext() string {
	if f == nil {
		return ""
	}
	return strings.TrimPrefix(path.Ext(f.Name), ".")
}

// Draft is the in-progress form content.
type Draft struct {
	Values  map[Field]string
	Consent bool
	Files   map[Field]*File
}

// NewDraft returns an empty draft.
func NewDraft() Draft {
	return Draft{
		Values: make(map[Field]string),
		Files:  make(map[Field]*File),
	}
}

// Get returns the value of a scalar field.
func (d Draft) Get(f Field) string {
	return d.Values[f]
}

// File returns the attachment picked for f, or nil.
func (d Draft) File(f Field) *File {
	return d.Files[f]
}

// Clone returns a copy whose maps can be changed independently.
// File contents are shared; files are never mutated after being picked.
func (d Draft) Clone() Draft {
	c := Draft{
		Values:  make(map[Field]string, len(d.Values)),
		Consent: d.Consent,
		Files:   make(map[Field]*File, len(d.Files)),
	}
	for k, v := range d.Values {
		c.Values[k] = v
	}
	for k, v := range d.Files {
		c.Files[k] = v
	}
	return c
}
