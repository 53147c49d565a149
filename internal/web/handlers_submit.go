package web

import (
	"errors"
	"net/http"

	"github.com/healthcare-ti/form-enfermagem/internal/submission"
	"github.com/healthcare-ti/form-enfermagem/internal/web/templates"
)

// SubmissionResponse is the body of POST /api/submissions.
type SubmissionResponse struct {
	State        string            `json:"state"`
	Phase        string            `json:"phase,omitempty"`
	Message      string            `json:"message"`
	Action       string            `json:"action,omitempty"`
	Code         string            `json:"code"`
	SubmissionID int64             `json:"submissionId,omitempty"`
	Paths        map[string]string `json:"paths,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// handleSubmit parses the posted form, waits for a submission slot and runs
// the coordinator. The response always carries one user sentence and a
// support code.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	fs, err := s.parseForm(w, r)
	if err != nil {
		badRequest(w, r, err)
		return
	}

	if err := s.deps.Limiter.Acquire(r.Context()); err != nil {
		if errors.Is(err, submission.ErrBusy) {
			w.Header().Set("Retry-After", "15")
		}
		busy := &submission.Error{Kind: submission.KindBusy, Err: err}
		respondError(w, r, http.StatusServiceUnavailable, busy.UserMessage(), err)
		return
	}
	defer s.deps.Limiter.Release()

	out := s.deps.Coordinator.Submit(withClientLogger(r), fs)
	status := outcomeStatus(out)

	if isHTMX(r) {
		kind := templates.KindError
		switch out.State {
		case submission.StateSucceeded:
			kind = templates.KindSuccess
		case submission.StateRejectedLocally:
			kind = templates.KindWarning
		}
		renderFragment(w, r, status, templates.StatusAlert(templates.StatusData{
			Kind:        kind,
			Message:     out.Message.Message,
			Action:      out.Message.Action,
			Code:        out.Message.Code,
			FieldErrors: fieldMap(out.Form.VisibleErrors()),
		}))
		return
	}

	resp := SubmissionResponse{
		State:        out.State.String(),
		Message:      out.Message.Message,
		Action:       out.Message.Action,
		Code:         out.Message.Code,
		SubmissionID: out.SubmissionID,
		Paths:        out.Paths,
	}
	if !out.Succeeded() {
		resp.Phase = out.Phase.String()
		resp.Errors = fieldMap(out.Form.VisibleErrors())
	}
	if out.State == submission.StateRolledBackCleanly {
		// The row was deleted. After a critical failure the id stays for support.
		resp.SubmissionID = 0
	}
	writeJSON(w, status, resp)
}

// outcomeStatus maps a terminal outcome to its HTTP status.
func outcomeStatus(out submission.Outcome) int {
	switch out.State {
	case submission.StateSucceeded:
		return http.StatusCreated
	case submission.StateRejectedLocally:
		if out.Err != nil && out.Err.Kind == submission.KindDeadline {
			return http.StatusForbidden
		}
		return http.StatusUnprocessableEntity
	case submission.StateRollbackFailedCritically:
		return http.StatusInternalServerError
	}
	if out.Err != nil && out.Err.Kind == submission.KindDuplicate {
		return http.StatusConflict
	}
	return http.StatusBadGateway
}
