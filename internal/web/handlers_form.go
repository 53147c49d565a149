package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/healthcare-ti/form-enfermagem/internal/form"
	"github.com/healthcare-ti/form-enfermagem/internal/submission"
	"github.com/healthcare-ti/form-enfermagem/internal/web/templates"
)

// multipartMemory is the part of a multipart body kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

const healthTimeout = 2 * time.Second

// DeadlineResponse is the body of GET /api/form/deadline.
type DeadlineResponse struct {
	Deadline string `json:"deadline,omitempty"`
	TimeLeft string `json:"timeLeft"`
	Open     bool   `json:"open"`
}

// FormatRequest is the body of POST /api/form/format.
type FormatRequest struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Previous string `json:"previous"`
	PixType  string `json:"pixType"`
}

// FormatResponse is the reply to FormatRequest.
type FormatResponse struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ValidateResponse is the body of POST /api/form/validate.
type ValidateResponse struct {
	Valid  bool              `json:"valid"`
	Status string            `json:"status"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			respondError(w, r, http.StatusServiceUnavailable,
				submission.UserMessage{Message: MsgUnavailable, Code: CodeUnavailable}, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeadline(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	deadline := s.deps.Coordinator.Deadline()
	open := s.deps.Coordinator.Open(now)

	resp := DeadlineResponse{Open: open}
	if !deadline.IsZero() {
		resp.Deadline = deadline.Format(time.RFC3339)
		resp.TimeLeft = form.TimeLeft(now, deadline)
	}

	if isHTMX(r) {
		renderFragment(w, r, http.StatusOK, templates.Countdown(resp.TimeLeft, open))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFormat applies a field's input mask, so clients without the masks
// can format as the user types.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req FormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, fmt.Errorf("decode format request: %w", err))
		return
	}
	f := form.Field(req.Field)
	if !form.IsScalar(f) {
		badRequest(w, r, fmt.Errorf("unknown field %q", req.Field))
		return
	}

	writeJSON(w, http.StatusOK, FormatResponse{
		Field: req.Field,
		Value: form.FormatField(f, req.Value, req.Previous, req.PixType),
	})
}

// handleValidate runs the full rule set on a posted form without storing
// anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	fs, err := s.parseForm(w, r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	fs = form.Reduce(fs, form.SubmitAttempt{})

	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:  fs.Errors.Valid(),
		Status: fs.Status(),
		Errors: fieldMap(fs.Errors),
	})
}

// parseForm reads a posted registration into a fresh form state. Values go
// through the same reducer events a browser would emit, so masks apply.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (form.State, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxRequestSize)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return form.State{}, fmt.Errorf("parse form: %w", err)
	}

	values := make(map[form.Field]string)
	for _, f := range form.ScalarFields {
		if v, ok := r.Form[string(f)]; ok && len(v) > 0 {
			values[f] = v[0]
		}
	}
	consent := checked(r.FormValue(string(form.FieldConsent)))

	files := make(map[form.Field]*form.File)
	if r.MultipartForm != nil {
		for _, f := range form.FileFields {
			file, err := s.readFile(r, f)
			if err != nil {
				return form.State{}, err
			}
			if file != nil {
				files[f] = file
			}
		}
	}

	return form.Fill(form.NewState(), values, consent, files), nil
}

// readFile loads one attachment. A missing part returns nil.
func (s *Server) readFile(r *http.Request, f form.Field) (*form.File, error) {
	part, header, err := r.FormFile(string(f))
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f, err)
	}
	defer part.Close()

	if header.Size > s.cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", f, header.Size, errFileTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(part, s.cfg.Upload.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f, err)
	}
	if int64(len(data)) > s.cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%s: %w", f, errFileTooLarge)
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &form.File{Name: header.Filename, ContentType: contentType, Data: data}, nil
}

// checked reads a checkbox value: browsers post "on", API clients a bool.
func checked(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
