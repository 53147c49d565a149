package form

import "strings"

// Mask output caps, separators included.
const (
	licenseMaxLen    = 12 // DD.DDD.DDD-D
	postalCodeMaxLen = 9  // DDDDD-DDD
	cpfMaxLen        = 14 // DDD.DDD.DDD-DD
	cnpjMaxLen       = 18 // DD.DDD.DDD/DDDD-DD
	randomKeyMaxLen  = 36 // 8-4-4-4-12 hex
	mobileMaxDigits  = 11
)

// mark inserts sep before position at of the partially masked string.
type mark struct {
	at  int
	sep byte
}

var (
	licenseMarks    = []mark{{2, '.'}, {6, '.'}, {10, '-'}}
	postalCodeMarks = []mark{{5, '-'}}
	cpfMarks        = []mark{{3, '.'}, {7, '.'}, {11, '-'}}
	cnpjMarks       = []mark{{2, '.'}, {6, '.'}, {10, '/'}, {15, '-'}}
	randomKeyMarks  = []mark{{8, '-'}, {13, '-'}, {18, '-'}, {23, '-'}}
)

// applyMarks inserts each separator in turn when the running string is
// longer than its position, then truncates to limit.
func applyMarks(s string, marks []mark, limit int) string {
	for _, m := range marks {
		if len(s) > m.at {
			s = s[:m.at] + string(m.sep) + s[m.at:]
		}
	}
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	return keep(s, isDigit)
}

func keep(s string, ok func(byte) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if ok(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// FormatLicense masks a nursing council number as DD.DDD.DDD-D.
// "12345678901234" -> "12.345.678-9"
func FormatLicense(v string) string {
	if v == "" {
		return v
	}
	return applyMarks(Digits(v), licenseMarks, licenseMaxLen)
}

// FormatPostalCode masks a CEP as DDDDD-DDD.
func FormatPostalCode(v string) string {
	if v == "" {
		return v
	}
	return applyMarks(Digits(v), postalCodeMarks, postalCodeMaxLen)
}

// FormatCPF masks a CPF as DDD.DDD.DDD-DD.
func FormatCPF(v string) string {
	if v == "" {
		return v
	}
	return applyMarks(Digits(v), cpfMarks, cpfMaxLen)
}

// FormatCNPJ masks a CNPJ as DD.DDD.DDD/DDDD-DD.
func FormatCNPJ(v string) string {
	if v == "" {
		return v
	}
	return applyMarks(Digits(v), cnpjMarks, cnpjMaxLen)
}

// FormatRandomKey keeps hex characters and masks them as a UUID.
func FormatRandomKey(v string) string {
	if v == "" {
		return v
	}
	return applyMarks(keep(v, isHex), randomKeyMarks, randomKeyMaxLen)
}

// FormatMobile masks a phone number as (DD) D DDDD-DDDD.
//
// prev is the field value before this keystroke. When the new value is
// shorter but carries the same digits, the user deleted a mask character,
// so the last digit is dropped as well. Otherwise the mask would put the
// separator straight back and backspace would appear stuck.
func FormatMobile(value, prev string) string {
	d := Digits(value)
	if len(value) < len(prev) && len(d) == len(Digits(prev)) && len(d) > 0 {
		d = d[:len(d)-1]
	}
	if len(d) > mobileMaxDigits {
		d = d[:mobileMaxDigits]
	}

	var b strings.Builder
	if len(d) > 0 {
		b.WriteString("(")
		b.WriteString(d[:min(2, len(d))])
	}
	if len(d) > 2 {
		b.WriteString(") ")
		b.WriteString(d[2:3])
	}
	if len(d) > 3 {
		b.WriteString(" ")
		b.WriteString(d[3:min(7, len(d))])
	}
	if len(d) > 7 {
		b.WriteString("-")
		b.WriteString(d[7:])
	}
	return b.String()
}

// FormatPixKey masks a payment key according to its type. Email keys and
// keys without a type are returned unchanged.
func FormatPixKey(keyType, value, prev string) string {
	switch keyType {
	case PixCPF:
		return FormatCPF(value)
	case PixCNPJ:
		return FormatCNPJ(value)
	case PixPhone:
		return FormatMobile(value, prev)
	case PixRandom:
		return FormatRandomKey(value)
	default:
		return value
	}
}

// FormatField applies the input rule of field f to value. prev is the
// current value of the field and pixType the selected key type; both matter
// only for phone masks and the payment key.
func FormatField(f Field, value, prev, pixType string) string {
	switch f {
	case FieldLicense:
		return FormatLicense(value)
	case FieldPostalCode:
		return FormatPostalCode(value)
	case FieldPhone, FieldPhone2:
		return FormatMobile(value, prev)
	case FieldPixKey:
		return FormatPixKey(pixType, value, prev)
	case FieldNumber, FieldBranch, FieldAccount, FieldCheckDigit:
		return Digits(value)
	case FieldName, FieldBank, FieldStreet, FieldNeighborhood, FieldCity, FieldComplement:
		return SanitizeText(value)
	default:
		return value
	}
}
