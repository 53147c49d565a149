package web

// errors.go writes every non-2xx response.
//
// The submission coordinator already reduces failures to one sentence plus
// a support code (submission.UserMessage). This file picks the status code
// and the format: an HTML alert fragment for HTMX requests, JSON otherwise.
// The technical error is logged with the request id and never sent.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/healthcare-ti/form-enfermagem/internal/form"
	"github.com/healthcare-ti/form-enfermagem/internal/logging"
	"github.com/healthcare-ti/form-enfermagem/internal/submission"
	"github.com/healthcare-ti/form-enfermagem/internal/web/templates"
)

// Request-level codes. Submission codes live in package submission.
const (
	CodeBadRequest  = "REQ400"
	CodeTooLarge    = "REQ413"
	CodeRateLimited = "REQ429"
	CodeUnavailable = "SRV503"
)

// Request-level messages.
const (
	MsgBadRequest  = "Não foi possível ler o formulário enviado."
	MsgTooLarge    = "O arquivo enviado excede o tamanho máximo permitido."
	MsgRateLimited = "Muitas requisições. Aguarde um minuto e tente novamente."
	MsgUnavailable = "Serviço temporariamente indisponível."
)

// ErrorResponse is the JSON body of an error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var errFileTooLarge = errors.New("file too large")

// respondError logs err and writes msg with status.
func respondError(w http.ResponseWriter, r *http.Request, status int, msg submission.UserMessage, err error) {
	log := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "status", status, "code", msg.Code}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	respondMessage(w, r, status, msg, nil)
}

// respondMessage writes msg and optional field errors in the format the
// client asked for.
func respondMessage(w http.ResponseWriter, r *http.Request, status int, msg submission.UserMessage, fields form.Errors) {
	if isHTMX(r) {
		kind := templates.KindError
		if status < http.StatusBadRequest {
			kind = templates.KindSuccess
		}
		renderFragment(w, r, status, templates.StatusAlert(templates.StatusData{
			Kind:        kind,
			Message:     msg.Message,
			Action:      msg.Action,
			Code:        msg.Code,
			FieldErrors: fieldMap(fields),
		}))
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Fields:  fieldMap(fields),
	})
}

// badRequest maps a form parsing error to 400 or 413.
func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.Is(err, errFileTooLarge) || errors.As(err, &maxErr) {
		respondError(w, r, http.StatusRequestEntityTooLarge,
			submission.UserMessage{Message: MsgTooLarge, Action: "Envie um arquivo menor", Code: CodeTooLarge}, err)
		return
	}
	respondError(w, r, http.StatusBadRequest,
		submission.UserMessage{Message: MsgBadRequest, Action: "Recarregue a página e tente novamente", Code: CodeBadRequest}, err)
}

// rateLimited is the RateLimit reject handler.
func rateLimited(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusTooManyRequests,
		submission.UserMessage{Message: MsgRateLimited, Code: CodeRateLimited}, nil)
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func fieldMap(errs form.Errors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	m := make(map[string]string, len(errs))
	for f, msg := range errs {
		m[string(f)] = msg
	}
	return m
}

// isHTMX reports whether the request came from an HTMX swap.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
