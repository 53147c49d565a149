package submission

import (
	"github.com/healthcare-ti/form-enfermagem/internal/form"
	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

// Attachment ties a form file field to its storage folder and the record
// column that receives its path.
type Attachment struct {
	Field  form.Field
	Folder string
	Column string
}

// Attachments in canonical upload order.
var Attachments = []Attachment{
	{Field: form.FileNadaConsta, Folder: "documentos-nada-consta", Column: store.ColumnNadaConsta},
	{Field: form.FileResidence, Folder: "documentos-residencia", Column: store.ColumnResidence},
	{Field: form.FileMaritalDocument, Folder: "anexo-estado-civil", Column: store.ColumnMaritalDocument},
	{Field: form.FileVaccination, Folder: "caderneta-vacina", Column: store.ColumnVaccination},
	{Field: form.FileMilitary, Folder: "certificado-reservista", Column: store.ColumnMilitary},
	{Field: form.FilePhoto, Folder: "fotos-perfil", Column: store.ColumnPhoto},
}

// registration copies the scalar fields of d into a store row.
func registration(d form.Draft) store.Registration {
	return store.Registration{
		Name:          d.Get(form.FieldName),
		Sex:           d.Get(form.FieldSex),
		License:       d.Get(form.FieldLicense),
		Category:      d.Get(form.FieldCategory),
		Bank:          d.Get(form.FieldBank),
		Branch:        d.Get(form.FieldBranch),
		Account:       d.Get(form.FieldAccount),
		CheckDigit:    d.Get(form.FieldCheckDigit),
		PixKey:        d.Get(form.FieldPixKey),
		PixKeyType:    d.Get(form.FieldPixKeyType),
		Street:        d.Get(form.FieldStreet),
		Number:        d.Get(form.FieldNumber),
		Neighborhood:  d.Get(form.FieldNeighborhood),
		City:          d.Get(form.FieldCity),
		Complement:    d.Get(form.FieldComplement),
		PostalCode:    d.Get(form.FieldPostalCode),
		MaritalStatus: d.Get(form.FieldMaritalStatus),
		Email:         d.Get(form.FieldEmail),
		Phone:         d.Get(form.FieldPhone),
		Phone2:        d.Get(form.FieldPhone2),
		Consent:       d.Consent,
	}
}
