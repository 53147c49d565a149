package form

import (
	"regexp"
	"sort"
)

// Validation messages shown inline next to each field.
const (
	MsgRequired        = "Este campo é obrigatório."
	MsgEmail           = "Formato de email inválido."
	MsgLicense         = "Número do Conselho inválido (esperado 9 dígitos)."
	MsgPostalCode      = "CEP inválido (esperado 8 dígitos)."
	MsgPhone           = "Celular inválido (esperado 11 dígitos para o formato (XX) X XXXX-XXXX)."
	MsgPhone2          = "Celular opcional inválido (esperado 11 dígitos para o formato (XX) X XXXX-XXXX)."
	MsgPixCPF          = "CPF inválido (esperado 11 dígitos)."
	MsgPixCNPJ         = "CNPJ inválido (esperado 14 dígitos)."
	MsgPixEmail        = "Formato de email inválido."
	MsgPixPhone        = "Número de celular inválido (esperado 10 ou 11 dígitos)."
	MsgPixRandom       = "Chave aleatória inválida (formato UUID)."
	MsgPixTypeMissing  = "Por favor, selecione o tipo de chave PIX."
	MsgNadaConsta      = "Documento Nada Consta é obrigatório."
	MsgResidence       = "Comprovante de Residência é obrigatório."
	MsgVaccination     = "Caderneta de Vacinação é obrigatória."
	MsgPhoto           = "Foto é obrigatória."
	MsgMaritalDocument = "Anexo Estado Civil é obrigatório para o seu estado civil."
	MsgMilitary        = "Certificado de Reservista é obrigatório para homens."
	MsgConsent         = "É necessário declarar que as informações são verdadeiras."
)

// Expected digit counts.
const (
	licenseDigits    = 9
	postalCodeDigits = 8
	phoneDigits      = 11
	cpfDigits        = 11
	cnpjDigits       = 14
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	randomKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// RequiredFields must be non-empty.
var RequiredFields = []Field{
	FieldName, FieldSex, FieldLicense, FieldCategory,
	FieldBank, FieldBranch, FieldAccount, FieldCheckDigit, FieldPixKeyType,
	FieldStreet, FieldNumber, FieldNeighborhood, FieldCity,
	FieldPostalCode, FieldPhone, FieldMaritalStatus, FieldEmail,
}

// requiredFiles are mandatory regardless of other answers.
var requiredFiles = []struct {
	field Field
	msg   string
}{
	{FileNadaConsta, MsgNadaConsta},
	{FileResidence, MsgResidence},
	{FileVaccination, MsgVaccination},
	{FilePhoto, MsgPhoto},
}

// Errors maps a field to its message. An empty map means the draft is valid.
type Errors map[Field]string

// Valid reports whether there are no errors.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Fields returns the fields with errors, sorted.
func (e Errors) Fields() []Field {
	fields := make([]Field, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Validate computes the error map for d from scratch. Later rules overwrite
// earlier messages for the same field, so a format error replaces the
// generic required message.
func Validate(d Draft) Errors {
	errs := make(Errors)

	for _, f := range RequiredFields {
		if d.Get(f) == "" {
			errs[f] = MsgRequired
		}
	}

	if email := d.Get(FieldEmail); email != "" && !emailPattern.MatchString(email) {
		errs[FieldEmail] = MsgEmail
	}
	if v := d.Get(FieldLicense); v != "" && len(Digits(v)) != licenseDigits {
		errs[FieldLicense] = MsgLicense
	}
	if v := d.Get(FieldPostalCode); v != "" && len(Digits(v)) != postalCodeDigits {
		errs[FieldPostalCode] = MsgPostalCode
	}
	if len(Digits(d.Get(FieldPhone))) != phoneDigits {
		errs[FieldPhone] = MsgPhone
	}
	if v := d.Get(FieldPhone2); v != "" && len(Digits(v)) != phoneDigits {
		errs[FieldPhone2] = MsgPhone2
	}

	validatePixKey(d, errs)

	for _, rf := range requiredFiles {
		if d.File(rf.field) == nil {
			errs[rf.field] = rf.msg
		}
	}
	if status := d.Get(FieldMaritalStatus); status != "" && status != MaritalSingle && d.File(FileMaritalDocument) == nil {
		errs[FileMaritalDocument] = MsgMaritalDocument
	}
	// Only "homem" triggers the certificate; any other value requires nothing.
	if d.Get(FieldSex) == SexMale && d.File(FileMilitary) == nil {
		errs[FileMilitary] = MsgMilitary
	}

	if !d.Consent {
		errs[FieldConsent] = MsgConsent
	}
	return errs
}

func validatePixKey(d Draft, errs Errors) {
	key := d.Get(FieldPixKey)
	keyType := d.Get(FieldPixKeyType)
	if keyType == "" {
		if key != "" {
			errs[FieldPixKeyType] = MsgPixTypeMissing
		}
		return
	}

	n := len(Digits(key))
	switch keyType {
	case PixCPF:
		if n != cpfDigits {
			errs[FieldPixKey] = MsgPixCPF
		}
	case PixCNPJ:
		if n != cnpjDigits {
			errs[FieldPixKey] = MsgPixCNPJ
		}
	case PixEmail:
		if !emailPattern.MatchString(key) {
			errs[FieldPixKey] = MsgPixEmail
		}
	case PixPhone:
		if n < 10 || n > 11 {
			errs[FieldPixKey] = MsgPixPhone
		}
	case PixRandom:
		if !randomKeyPattern.MatchString(key) {
			errs[FieldPixKey] = MsgPixRandom
		}
	}
}
