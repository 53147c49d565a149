package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/healthcare-ti/form-enfermagem/internal/form"
	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

// fakeStore records every call and fails on demand.
type fakeStore struct {
	mu sync.Mutex

	insertID  int64
	insertErr error
	failAt    int // 1-based upload that fails; 0 never
	uploadErr error
	updateErr error
	removeErr error
	deleteErr error

	calls   []string
	uploads []string
	updates []map[string]string
	removes [][]string
	deletes []int64
	// deleteCtxErr is ctx.Err() observed by Delete.
	deleteCtxErr error
}

func (f *fakeStore) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeStore) Insert(ctx context.Context, reg store.Registration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("insert")
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return f.insertID, nil
}

func (f *fakeStore) Update(ctx context.Context, id int64, paths map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update")
	f.updates = append(f.updates, paths)
	return f.updateErr
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete")
	f.deletes = append(f.deletes, id)
	f.deleteCtxErr = ctx.Err()
	return f.deleteErr
}

func (f *fakeStore) Upload(ctx context.Context, bucket, path string, obj store.Object, opts store.UploadOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upload")
	if f.failAt == len(f.uploads)+1 {
		f.uploads = append(f.uploads, "")
		if f.uploadErr != nil {
			return "", f.uploadErr
		}
		return "", &store.Error{Op: "upload", Message: "network error"}
	}
	if !opts.NoOverwrite || opts.CacheControl != "3600" || bucket != "solicitacoes-files" {
		return "", fmt.Errorf("unexpected upload options %+v bucket %q", opts, bucket)
	}
	f.uploads = append(f.uploads, path)
	return path, nil
}

func (f *fakeStore) Remove(ctx context.Context, bucket string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove")
	f.removes = append(f.removes, append([]string(nil), paths...))
	return f.removeErr
}

var (
	deadline = time.Date(2025, 7, 11, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	before   = func() time.Time { return deadline.Add(-time.Hour) }
)

func newTestCoordinator(fs *fakeStore, opts ...Option) *Coordinator {
	n := 0
	base := []Option{
		WithClock(before),
		WithFileNames(func(ext string) string {
			n++
			return fmt.Sprintf("file%d.%s", n, ext)
		}),
	}
	return NewCoordinator(fs, fs, Config{Deadline: deadline}, append(base, opts...)...)
}

func file(name string) *form.File {
	return &form.File{Name: name, ContentType: "application/pdf", Data: []byte("data")}
}

// validState returns a clean form with the four mandatory attachments plus
// any extra files.
func validState(extra map[form.Field]*form.File) form.State {
	values := map[form.Field]string{
		form.FieldName:          "Maria da Silva",
		form.FieldSex:           form.SexFemale,
		form.FieldLicense:       "123456789",
		form.FieldCategory:      form.CategoryNurse,
		form.FieldMaritalStatus: form.MaritalSingle,
		form.FieldBank:          "Banco do Brasil",
		form.FieldBranch:        "1234",
		form.FieldAccount:       "56789",
		form.FieldCheckDigit:    "0",
		form.FieldPixKeyType:    form.PixEmail,
		form.FieldPixKey:        "maria@example.com",
		form.FieldStreet:        "Rua A",
		form.FieldNumber:        "10",
		form.FieldNeighborhood:  "Centro",
		form.FieldCity:          "Rio de Janeiro",
		form.FieldPostalCode:    "20000000",
		form.FieldEmail:         "maria@example.com",
		form.FieldPhone:         "21987654321",
	}
	files := map[form.Field]*form.File{
		form.FileNadaConsta:  file("nada.pdf"),
		form.FileResidence:   file("residencia.pdf"),
		form.FileVaccination: file("vacina.pdf"),
		form.FilePhoto:       file("foto.jpg"),
	}
	for k, v := range extra {
		files[k] = v
	}
	return form.Fill(form.NewState(), values, true, files)
}

func TestSubmitSuccess(t *testing.T) {
	fs := &fakeStore{insertID: 42}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestCoordinator(fs, WithMetrics(m))

	out := c.Submit(context.Background(), validState(nil))

	if out.State != StateSucceeded {
		t.Fatalf("State = %v, message %q", out.State, out.Message.Message)
	}
	if out.Message.Message != MsgSuccess {
		t.Errorf("Message = %q", out.Message.Message)
	}
	wantCalls := []string{"insert", "upload", "upload", "upload", "upload", "update"}
	if diff := cmp.Diff(wantCalls, fs.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	wantPaths := map[string]string{
		store.ColumnNadaConsta:  "documentos-nada-consta/42/file1.pdf",
		store.ColumnResidence:   "documentos-residencia/42/file2.pdf",
		store.ColumnVaccination: "caderneta-vacina/42/file3.pdf",
		store.ColumnPhoto:       "fotos-perfil/42/file4.jpg",
	}
	if diff := cmp.Diff(wantPaths, fs.updates[0]); diff != "" {
		t.Errorf("patched paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantPaths, out.Paths); diff != "" {
		t.Errorf("outcome paths mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("succeeded counter = %v", got)
	}
	if got := testutil.ToFloat64(m.UploadedBytes); got != 16 {
		t.Errorf("uploaded bytes = %v, want 16", got)
	}
}

func TestSubmitResetsFormAfterSuccess(t *testing.T) {
	fs := &fakeStore{insertID: 1}
	c := newTestCoordinator(fs)

	out := c.Submit(context.Background(), validState(nil))
	if !out.Succeeded() {
		t.Fatalf("first submit: %q", out.Message.Message)
	}
	if diff := cmp.Diff(form.NewState(), out.Form); diff != "" {
		t.Errorf("form not reset (-want +got):\n%s", diff)
	}

	// Resubmitting the reset form is rejected locally with a full error map.
	again := c.Submit(context.Background(), out.Form)
	if again.State != StateRejectedLocally {
		t.Fatalf("State = %v", again.State)
	}
	if diff := cmp.Diff(form.Validate(form.NewDraft()), again.Form.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitFirstUploadFails(t *testing.T) {
	fs := &fakeStore{insertID: 7, failAt: 1}
	c := newTestCoordinator(fs)

	out := c.Submit(context.Background(), validState(nil))

	if out.State != StateRolledBackCleanly {
		t.Fatalf("State = %v", out.State)
	}
	if diff := cmp.Diff([]int64{7}, fs.deletes); diff != "" {
		t.Errorf("deletes mismatch (-want +got):\n%s", diff)
	}
	if len(fs.removes) != 0 {
		t.Errorf("remove called %d times with an empty ledger", len(fs.removes))
	}
	want := "Falha no upload do documento documento_nada_consta. O envio foi cancelado."
	if out.Message.Message != want {
		t.Errorf("Message = %q, want %q", out.Message.Message, want)
	}
	if out.Message.Code != CodeUpload {
		t.Errorf("Code = %q", out.Message.Code)
	}
	if out.Form.Draft.Get(form.FieldName) == "" {
		t.Error("failed submission should keep the draft")
	}
}

func TestSubmitThirdUploadFails(t *testing.T) {
	fs := &fakeStore{insertID: 9, failAt: 3}
	c := newTestCoordinator(fs)

	out := c.Submit(context.Background(), validState(nil))

	if out.State != StateRolledBackCleanly {
		t.Fatalf("State = %v", out.State)
	}
	wantCalls := []string{"insert", "upload", "upload", "upload", "remove", "delete"}
	if diff := cmp.Diff(wantCalls, fs.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	wantRemoved := [][]string{{
		"documentos-nada-consta/9/file1.pdf",
		"documentos-residencia/9/file2.pdf",
	}}
	if diff := cmp.Diff(wantRemoved, fs.removes); diff != "" {
		t.Errorf("removes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{9}, fs.deletes); diff != "" {
		t.Errorf("deletes mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.Message.Message, store.ColumnVaccination) {
		t.Errorf("Message = %q, want failing column", out.Message.Message)
	}
}

func TestSubmitCriticalRollback(t *testing.T) {
	fs := &fakeStore{insertID: 3, failAt: 2, deleteErr: errors.New("permission denied")}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestCoordinator(fs, WithMetrics(m))

	out := c.Submit(context.Background(), validState(nil))

	if out.State != StateRollbackFailedCritically {
		t.Fatalf("State = %v", out.State)
	}
	if out.Message.Message != MsgCriticalRollback || out.Message.Code != CodeCriticalRollback {
		t.Errorf("Message = %+v", out.Message)
	}
	if !out.Rollback.CriticalFailure() {
		t.Error("report should flag the critical step")
	}
	if got := testutil.ToFloat64(m.Compensations.WithLabelValues("delete_record", "failed")); got != 1 {
		t.Errorf("delete_record failed counter = %v", got)
	}
	if got := testutil.ToFloat64(m.Compensations.WithLabelValues("remove_objects", "ok")); got != 1 {
		t.Errorf("remove_objects ok counter = %v", got)
	}
}

func TestSubmitObjectRemovalFailureKeepsMessage(t *testing.T) {
	fs := &fakeStore{insertID: 5, failAt: 2, removeErr: errors.New("bucket offline")}
	c := newTestCoordinator(fs)

	out := c.Submit(context.Background(), validState(nil))

	if out.State != StateRolledBackCleanly {
		t.Fatalf("State = %v", out.State)
	}
	want := "Falha no upload do documento documento_residencia. O envio foi cancelado."
	if out.Message.Message != want {
		t.Errorf("Message = %q, want %q", out.Message.Message, want)
	}
	if len(out.Rollback.Failed()) != 1 {
		t.Errorf("failed steps = %d, want 1", len(out.Rollback.Failed()))
	}
	if len(fs.deletes) != 1 {
		t.Error("record delete must run after a failed object removal")
	}
}

func TestSubmitPatchFails(t *testing.T) {
	fs := &fakeStore{insertID: 11, updateErr: &store.Error{Op: "update", Message: "column does not exist"}}
	c := newTestCoordinator(fs)

	out := c.Submit(context.Background(), validState(nil))

	if out.State != StateRolledBackCleanly || out.Phase != PhasePatching {
		t.Fatalf("State = %v Phase = %v", out.State, out.Phase)
	}
	if want := "Falha ao salvar os caminhos dos arquivos: column does not exist"; out.Message.Message != want {
		t.Errorf("Message = %q, want %q", out.Message.Message, want)
	}
	if len(fs.removes) != 1 || len(fs.removes[0]) != 4 {
		t.Errorf("removes = %v, want one call with 4 paths", fs.removes)
	}
	if diff := cmp.Diff([]string{"remove", "delete"}, fs.calls[len(fs.calls)-2:]); diff != "" {
		t.Errorf("rollback order mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitInsertFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		id       int64
		wantMsg  string
		wantCode string
	}{
		{
			name:     "structured duplicate email",
			err:      &store.Error{Op: "insert", Code: store.CodeUniqueViolation, Column: store.UniqueEmail, Message: "duplicate"},
			wantMsg:  "O valor de e-mail já está cadastrado em nosso sistema. Por favor, verifique os dados ou entre em contato com o suporte.",
			wantCode: CodeDuplicate,
		},
		{
			name:     "duplicate license from message text",
			err:      errors.New(`duplicate key value violates unique constraint "solicitacoes_cadastro_conselho_key"`),
			wantMsg:  "O valor de número do conselho já está cadastrado em nosso sistema. Por favor, verifique os dados ou entre em contato com o suporte.",
			wantCode: CodeDuplicate,
		},
		{
			name:     "duplicate unknown column",
			err:      &store.Error{Op: "insert", Code: store.CodeUniqueViolation, Message: "duplicate key value violates unique constraint \"cpf_key\""},
			wantMsg:  "O valor fornecido já está cadastrado em nosso sistema. Por favor, verifique os dados ou entre em contato com o suporte.",
			wantCode: CodeDuplicate,
		},
		{
			name:     "other database error",
			err:      &store.Error{Op: "insert", Code: store.CodeInvalidInput, Message: `null value in column "nome"`},
			wantMsg:  `Falha ao salvar o registro no banco de dados: null value in column "nome"`,
			wantCode: CodeInsert,
		},
		{
			name:     "no id returned",
			id:       0,
			wantMsg:  MsgMissingID,
			wantCode: CodeMissingID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeStore{insertID: tt.id, insertErr: tt.err}
			c := newTestCoordinator(fs)

			out := c.Submit(context.Background(), validState(nil))

			if out.Message.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", out.Message.Message, tt.wantMsg)
			}
			if out.Message.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", out.Message.Code, tt.wantCode)
			}
			if diff := cmp.Diff([]string{"insert"}, fs.calls); diff != "" {
				t.Errorf("phase one failure must not touch anything else (-want +got):\n%s", diff)
			}
			if out.Phase != PhaseCreating || out.Rollback != nil {
				t.Errorf("Phase = %v Rollback = %v", out.Phase, out.Rollback)
			}
		})
	}
}

func TestSubmitRejectedLocally(t *testing.T) {
	t.Run("validation errors", func(t *testing.T) {
		fs := &fakeStore{insertID: 1}
		c := newTestCoordinator(fs)
		s := form.Reduce(validState(nil), form.Change{Field: form.FieldEmail, Value: "broken"})

		out := c.Submit(context.Background(), s)

		if out.State != StateRejectedLocally || KindOf(out.Err) != KindValidation {
			t.Fatalf("State = %v Kind = %v", out.State, KindOf(out.Err))
		}
		if out.Message.Message != form.StatusFixErrors {
			t.Errorf("Message = %q", out.Message.Message)
		}
		if diff := cmp.Diff(form.Errors{form.FieldEmail: form.MsgEmail}, out.Err.Fields); diff != "" {
			t.Errorf("field errors mismatch (-want +got):\n%s", diff)
		}
		if len(fs.calls) != 0 {
			t.Errorf("store called: %v", fs.calls)
		}
	})

	t.Run("deadline passed", func(t *testing.T) {
		fs := &fakeStore{insertID: 1}
		c := newTestCoordinator(fs, WithClock(func() time.Time { return deadline }))

		out := c.Submit(context.Background(), validState(nil))

		if out.State != StateRejectedLocally || out.Message.Message != MsgDeadlinePassed {
			t.Fatalf("State = %v Message = %q", out.State, out.Message.Message)
		}
		if len(fs.calls) != 0 {
			t.Errorf("store called: %v", fs.calls)
		}
	})

	t.Run("validation is reported before the deadline", func(t *testing.T) {
		fs := &fakeStore{}
		c := newTestCoordinator(fs, WithClock(func() time.Time { return deadline.Add(time.Hour) }))

		out := c.Submit(context.Background(), form.NewState())
		if KindOf(out.Err) != KindValidation {
			t.Errorf("Kind = %v, want validation", KindOf(out.Err))
		}
	})
}

// cancellingStore cancels the request context on the first upload.
type cancellingStore struct {
	*fakeStore
	cancel context.CancelFunc
}

func (c cancellingStore) Upload(ctx context.Context, bucket, path string, obj store.Object, opts store.UploadOptions) (string, error) {
	c.cancel()
	return "", &store.Error{Op: "upload", Code: store.CodeUnavailable, Err: context.Canceled}
}

func TestRollbackSurvivesCancelledRequest(t *testing.T) {
	fs := &fakeStore{insertID: 21}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cs := cancellingStore{fakeStore: fs, cancel: cancel}
	c := NewCoordinator(fs, cs, Config{Deadline: deadline}, WithClock(before))

	out := c.Submit(ctx, validState(nil))

	if out.State != StateRolledBackCleanly {
		t.Fatalf("State = %v", out.State)
	}
	if len(fs.deletes) != 1 {
		t.Fatalf("deletes = %v", fs.deletes)
	}
	if fs.deleteCtxErr != nil {
		t.Errorf("rollback ran on a cancelled context: %v", fs.deleteCtxErr)
	}
}

func TestUniqueName(t *testing.T) {
	name := uniqueName("pdf")
	if !strings.HasSuffix(name, ".pdf") || len(name) != 36+4 {
		t.Errorf("uniqueName(pdf) = %q", name)
	}
	if bare := uniqueName(""); len(bare) != 36 || strings.Contains(bare, ".") {
		t.Errorf("uniqueName(\"\") = %q", bare)
	}
	if uniqueName("x") == uniqueName("x") {
		t.Error("names repeat")
	}
}

func TestOpen(t *testing.T) {
	c := NewCoordinator(&fakeStore{}, &fakeStore{}, Config{Deadline: deadline})
	if !c.Open(deadline.Add(-time.Nanosecond)) {
		t.Error("open just before the deadline")
	}
	if c.Open(deadline) {
		t.Error("open at the deadline")
	}
	if !NewCoordinator(&fakeStore{}, &fakeStore{}, Config{}).Open(time.Now()) {
		t.Error("zero deadline should never close")
	}
}
