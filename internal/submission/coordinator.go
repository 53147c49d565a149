// Package submission sends a validated registration form to the store.
//
// The store has no transaction spanning the record table and the object
// bucket, so a submission runs three phases (create the record, upload each
// attachment, patch the record with the attachment paths) and undoes
// completed work with a compensating saga when a later phase fails.
package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthcare-ti/form-enfermagem/internal/form"
	"github.com/healthcare-ti/form-enfermagem/internal/logging"
	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

// Defaults for Config.
const (
	DefaultBucket       = "solicitacoes-files"
	DefaultCacheControl = "3600"
)

// State is the terminal state of a submission.
type State int

const (
	StateRejectedLocally State = iota + 1
	StateSucceeded
	StateRolledBackCleanly
	StateRollbackFailedCritically
)

func (s State) String() string {
	switch s {
	case StateRejectedLocally:
		return "rejected_locally"
	case StateSucceeded:
		return "succeeded"
	case StateRolledBackCleanly:
		return "rolled_back_cleanly"
	case StateRollbackFailedCritically:
		return "rollback_failed_critically"
	default:
		return "unknown"
	}
}

// Phase is a step of a running submission.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseCreating
	PhaseUploading
	PhasePatching
	PhaseRollingBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseCreating:
		return "creating"
	case PhaseUploading:
		return "uploading"
	case PhasePatching:
		return "patching"
	case PhaseRollingBack:
		return "rolling_back"
	default:
		return "unknown"
	}
}

// Config holds the storage settings and the deadline.
type Config struct {
	Bucket       string
	CacheControl string
	// Submissions starting at or after Deadline are rejected. Zero means
	// no deadline.
	Deadline time.Time
}

// Outcome is the result of one Submit call.
type Outcome struct {
	State State
	// Phase is the phase that failed, or PhaseIdle on success.
	Phase        Phase
	Message      UserMessage
	Err          *Error
	SubmissionID int64
	// Paths maps record column to stored object path.
	Paths    map[string]string
	Rollback *RollbackReport
	// Form is the form state to show next: reset on success, otherwise the
	// submitted state with its errors.
	Form form.State
}

// Succeeded reports whether the submission reached StateSucceeded.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Coordinator runs submissions against a record store and an object store.
// It keeps no per-submission state, so one Coordinator serves every request.
type Coordinator struct {
	records  store.RecordStore
	objects  store.ObjectStore
	cfg      Config
	clock    func() time.Time
	fileName func(ext string) string
	metrics  *Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithFileNames replaces the generated object name.
func WithFileNames(gen func(ext string) string) Option {
	return func(c *Coordinator) { c.fileName = gen }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(records store.RecordStore, objects store.ObjectStore, cfg Config, opts ...Option) *Coordinator {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = DefaultCacheControl
	}
	c := &Coordinator{
		records:  records,
		objects:  objects,
		cfg:      cfg,
		clock:    time.Now,
		fileName: uniqueName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// uniqueName returns "<uuid>.<ext>", or the bare uuid when ext is empty.
func uniqueName(ext string) string {
	name := uuid.NewString()
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// Deadline returns the configured cutoff.
func (c *Coordinator) Deadline() time.Time {
	return c.cfg.Deadline
}

// Open reports whether submissions are still accepted at now.
func (c *Coordinator) Open(now time.Time) bool {
	return c.cfg.Deadline.IsZero() || now.Before(c.cfg.Deadline)
}

// Submit validates fs and, when it is clean and the deadline has not
// passed, writes it to the store. Store failures never escape as errors;
// they are classified into the returned Outcome.
func (c *Coordinator) Submit(ctx context.Context, fs form.State) Outcome {
	fs = form.Reduce(fs, form.SubmitAttempt{})
	if !fs.Errors.Valid() {
		return c.finish(ctx, Outcome{
			State: StateRejectedLocally,
			Phase: PhaseValidating,
			Err:   &Error{Kind: KindValidation, Fields: fs.Errors},
			Form:  fs,
		})
	}
	if !c.Open(c.clock()) {
		return c.finish(ctx, Outcome{
			State: StateRejectedLocally,
			Phase: PhaseValidating,
			Err:   &Error{Kind: KindDeadline},
			Form:  fs,
		})
	}

	run := &run{c: c, draft: fs.Draft, paths: make(map[string]string)}
	out := run.execute(ctx)
	out.Form = fs
	if out.State == StateSucceeded {
		out.Form = form.Reduce(fs, form.Reset{})
	}
	return c.finish(ctx, out)
}

func (c *Coordinator) finish(ctx context.Context, out Outcome) Outcome {
	if out.Err != nil {
		out.Message = out.Err.UserMessage()
	} else {
		out.Message = UserMessage{Message: MsgSuccess, Code: CodeOK}
	}
	c.metrics.IncrementOutcome(out.State)

	log := logging.WithFields(ctx, "outcome", out.State.String(), "submission_id", out.SubmissionID)
	switch out.State {
	case StateSucceeded:
		log.Info("submission stored", "attachments", len(out.Paths))
	case StateRejectedLocally:
		log.Info("submission rejected", "reason", out.Err.Kind.String())
	case StateRolledBackCleanly:
		log.Warn("submission rolled back", "phase", out.Phase.String(), "error", out.Err.Err)
	case StateRollbackFailedCritically:
		log.Error("submission rollback failed", "phase", out.Phase.String(), "error", out.Err.Err)
	}
	return out
}

// run is one submission in flight. It is owned by a single goroutine.
type run struct {
	c        *Coordinator
	draft    form.Draft
	id       int64
	uploaded []string          // ledger of stored object paths
	paths    map[string]string // column -> returned path
	saga     Saga
}

func (r *run) execute(ctx context.Context) Outcome {
	if err := r.create(ctx); err != nil {
		// Nothing was written, so there is nothing to undo.
		return Outcome{State: StateRolledBackCleanly, Phase: PhaseCreating, Err: err}
	}
	if err := r.upload(ctx); err != nil {
		return r.rollback(ctx, PhaseUploading, err)
	}
	if err := r.patch(ctx); err != nil {
		return r.rollback(ctx, PhasePatching, err)
	}
	return Outcome{State: StateSucceeded, SubmissionID: r.id, Paths: r.paths}
}

func (r *run) create(ctx context.Context) *Error {
	start := time.Now()
	id, err := r.c.records.Insert(ctx, registration(r.draft))
	r.c.metrics.ObservePhase(PhaseCreating, time.Since(start))
	if err != nil {
		return classifyInsert(err)
	}
	if id == 0 {
		return &Error{Kind: KindMissingID}
	}

	r.id = id
	r.saga.Add(Compensation{
		Name:     "delete_record",
		Critical: true,
		Run: func(ctx context.Context) error {
			return r.c.records.Delete(ctx, r.id)
		},
	})
	return nil
}

func (r *run) upload(ctx context.Context) *Error {
	start := time.Now()
	defer func() { r.c.metrics.ObservePhase(PhaseUploading, time.Since(start)) }()

	opts := store.UploadOptions{CacheControl: r.c.cfg.CacheControl, NoOverwrite: true}
	for _, a := range Attachments {
		file := r.draft.File(a.Field)
		if file == nil {
			continue
		}
		objPath := fmt.Sprintf("%s/%d/%s", a.Folder, r.id, r.c.fileName(file.Ext()))
		obj := store.Object{Data: file.Data, ContentType: file.ContentType}

		stored, err := r.c.objects.Upload(ctx, r.c.cfg.Bucket, objPath, obj, opts)
		if err != nil {
			return &Error{Kind: KindUpload, Column: a.Column, Err: err}
		}
		if stored == "" {
			stored = objPath
		}

		if len(r.uploaded) == 0 {
			r.saga.Add(Compensation{
				Name: "remove_objects",
				Run: func(ctx context.Context) error {
					return r.c.objects.Remove(ctx, r.c.cfg.Bucket, r.uploaded)
				},
			})
		}
		r.uploaded = append(r.uploaded, objPath)
		r.paths[a.Column] = stored
		r.c.metrics.AddUploadedBytes(file.Size())
	}
	return nil
}

func (r *run) patch(ctx context.Context) *Error {
	if len(r.paths) == 0 {
		return nil
	}
	start := time.Now()
	err := r.c.records.Update(ctx, r.id, r.paths)
	r.c.metrics.ObservePhase(PhasePatching, time.Since(start))
	if err != nil {
		return &Error{Kind: KindPatch, Err: err}
	}
	return nil
}

// rollback runs the saga detached from ctx cancellation, so a client that
// hangs up mid-submission still gets its partial writes undone.
func (r *run) rollback(ctx context.Context, phase Phase, cause *Error) Outcome {
	log := logging.WithFields(ctx, "submission_id", r.id, "phase", phase.String())
	log.Warn("submission failed, rolling back", "error", cause.Err, "uploaded", r.uploaded)

	start := time.Now()
	report := r.saga.Compensate(context.WithoutCancel(ctx))
	r.c.metrics.ObservePhase(PhaseRollingBack, time.Since(start))
	r.c.metrics.ObserveRollback(report)

	for _, step := range report.Failed() {
		if step.Critical {
			log.Error("rollback step failed", "step", step.Name, "error", step.Err)
		} else {
			log.Error("rollback step failed, objects may be orphaned", "step", step.Name, "error", step.Err, "paths", r.uploaded)
		}
	}

	out := Outcome{
		State:        StateRolledBackCleanly,
		Phase:        phase,
		Err:          cause,
		SubmissionID: r.id,
		Rollback:     &report,
	}
	if report.CriticalFailure() {
		out.State = StateRollbackFailedCritically
		out.Err = &Error{Kind: KindCriticalRollback, Err: fmt.Errorf("%w; rollback: %w", cause, report.Err())}
	}
	return out
}
