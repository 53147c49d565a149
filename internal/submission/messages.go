package submission

// messages.go maps submission failures to the single sentence shown to the
// user, plus a support code they can quote.
//
// # Codes
//
//	VAL100 - Form has field errors; nothing was sent
//	SUB001 - Submission deadline passed; nothing was sent
//	SUB002 - Too many submissions in flight; nothing was sent
//	DB010  - Email or license number already registered
//	DB011  - Record insert failed
//	DB012  - Record created but no id came back
//	DB013  - Saving attachment paths failed (rolled back)
//	STO001 - Attachment upload failed (rolled back)
//	RBK001 - Rollback of the record failed; data may be inconsistent
//	OK000  - Submitted
//
// Store failures are classified by the structured store.Code first. When an
// adapter returns a bare error, the fallback pattern table below is matched
// against the lowercased error text. The table depends on the backend's
// wording and will not catch every phrasing.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/healthcare-ti/form-enfermagem/internal/form"
	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

// Messages shown to the user.
const (
	MsgSuccess          = "Formulário enviado com sucesso!"
	MsgDeadlinePassed   = "O prazo para envio foi encerrado."
	MsgBusy             = "Muitos envios em andamento. Aguarde um momento e tente novamente."
	MsgMissingID        = "Não foi possível criar o registro no banco de dados após a inserção."
	MsgCriticalRollback = "Ocorreu um erro e a limpeza automática falhou. Por favor, contate o suporte."

	msgDuplicate = "O valor %s já está cadastrado em nosso sistema. Por favor, verifique os dados ou entre em contato com o suporte."
	msgInsert    = "Falha ao salvar o registro no banco de dados: %s"
	msgUpload    = "Falha no upload do documento %s. O envio foi cancelado."
	msgPatch     = "Falha ao salvar os caminhos dos arquivos: %s"
)

// Support codes.
const (
	CodeValidation       = "VAL100"
	CodeDeadline         = "SUB001"
	CodeBusy             = "SUB002"
	CodeDuplicate        = "DB010"
	CodeInsert           = "DB011"
	CodeMissingID        = "DB012"
	CodePatch            = "DB013"
	CodeUpload           = "STO001"
	CodeCriticalRollback = "RBK001"
	CodeOK               = "OK000"
)

// UserMessage is what the page shows for an outcome.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

// Kind classifies a submission failure.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDeadline
	KindBusy
	KindDuplicate
	KindWrite
	KindMissingID
	KindUpload
	KindPatch
	KindCriticalRollback
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDeadline:
		return "deadline"
	case KindBusy:
		return "busy"
	case KindDuplicate:
		return "duplicate"
	case KindWrite:
		return "write"
	case KindMissingID:
		return "missing_id"
	case KindUpload:
		return "upload"
	case KindPatch:
		return "patch"
	case KindCriticalRollback:
		return "critical_rollback"
	default:
		return "unknown"
	}
}

// Error is a classified submission failure. Err keeps the store error for
// logging; Error() returns the user sentence.
type Error struct {
	Kind   Kind
	Column string      // duplicate column or attachment column, when relevant
	Fields form.Errors // field errors for KindValidation
	Err    error
}

func (e *Error) Error() string {
	return e.UserMessage().Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage renders the failure for the page.
func (e *Error) UserMessage() UserMessage {
	switch e.Kind {
	case KindValidation:
		return UserMessage{Message: form.StatusFixErrors, Action: "Revise os campos destacados", Code: CodeValidation}
	case KindDeadline:
		return UserMessage{Message: MsgDeadlinePassed, Code: CodeDeadline}
	case KindBusy:
		return UserMessage{Message: MsgBusy, Action: "Tente novamente em instantes", Code: CodeBusy}
	case KindDuplicate:
		return UserMessage{Message: fmt.Sprintf(msgDuplicate, duplicateLabel(e.Column)), Code: CodeDuplicate}
	case KindWrite:
		return UserMessage{Message: fmt.Sprintf(msgInsert, storeText(e.Err)), Action: "Tente novamente", Code: CodeInsert}
	case KindMissingID:
		return UserMessage{Message: MsgMissingID, Action: "Tente novamente", Code: CodeMissingID}
	case KindUpload:
		return UserMessage{Message: fmt.Sprintf(msgUpload, e.Column), Action: "Verifique o arquivo e envie novamente", Code: CodeUpload}
	case KindPatch:
		return UserMessage{Message: fmt.Sprintf(msgPatch, storeText(e.Err)), Action: "Tente novamente", Code: CodePatch}
	case KindCriticalRollback:
		return UserMessage{Message: MsgCriticalRollback, Action: "Informe o código ao suporte", Code: CodeCriticalRollback}
	default:
		return UserMessage{Message: storeText(e.Err)}
	}
}

// KindOf returns the Kind of a submission error, or 0.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func duplicateLabel(column string) string {
	switch column {
	case store.UniqueEmail:
		return "de e-mail"
	case store.UniqueLicense:
		return "de número do conselho"
	default:
		return "fornecido"
	}
}

// storeText is the backend message shown inside write failures.
func storeText(err error) string {
	if err == nil {
		return ""
	}
	var se *store.Error
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

// duplicatePatterns recognise unique violations in bare error text.
// Matched case-insensitively with strings.Contains; first match wins.
var duplicatePatterns = []string{
	"duplicate key",
	"violates unique",
	"unique constraint",
	"already exists",
}

// isDuplicate reports whether an insert failure is a unique violation.
func isDuplicate(err error) bool {
	switch store.CodeOf(err) {
	case store.CodeUniqueViolation:
		return true
	case store.CodeUnknown:
		msg := strings.ToLower(err.Error())
		for _, p := range duplicatePatterns {
			if strings.Contains(msg, p) {
				return true
			}
		}
	}
	return false
}

// classifyInsert turns a phase-one failure into a submission error.
func classifyInsert(err error) *Error {
	if isDuplicate(err) {
		return &Error{Kind: KindDuplicate, Column: store.ColumnHint(err), Err: err}
	}
	return &Error{Kind: KindWrite, Err: err}
}
