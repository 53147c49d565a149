package form

// Status messages shown once the user has tried to submit.
const (
	StatusFixErrors = "Por favor, corrija os erros no formulário antes de enviar."
	StatusReady     = "É possível enviar o formulário!"
)

// Touched records the fields the user interacted with. It only decides
// which errors are shown, never which errors exist.
type Touched map[Field]bool

// State is the whole form: draft, derived errors, touched set and whether a
// submit was attempted. Reduce never mutates the State it is given.
type State struct {
	Draft     Draft
	Errors    Errors
	Touched   Touched
	Submitted bool
}

// NewState returns the initial empty form.
func NewState() State {
	return State{
		Draft:   NewDraft(),
		Errors:  make(Errors),
		Touched: make(Touched),
	}
}

// Event is a user interaction fed to Reduce.
type Event interface {
	apply(State) State
}

// Change sets a scalar field from raw input; the field's mask is applied.
type Change struct {
	Field Field
	Value string
}

// Toggle sets the consent checkbox.
type Toggle struct {
	Field   Field
	Checked bool
}

// PickFile sets or, with a nil File, clears an attachment.
type PickFile struct {
	Field Field
	File  *File
}

// Blur marks a field as visited.
type Blur struct {
	Field Field
}

// SubmitAttempt marks every field touched and validates the draft.
type SubmitAttempt struct{}

// Reset returns the form to its initial state.
type Reset struct{}

// Reduce returns the state that follows e.
func Reduce(s State, e Event) State {
	return e.apply(s)
}

func (e Change) apply(s State) State {
	if !IsScalar(e.Field) {
		return s
	}
	next := s.clone()
	d := next.Draft
	prev := d.Get(e.Field)
	d.Values[e.Field] = FormatField(e.Field, e.Value, prev, d.Get(FieldPixKeyType))

	switch e.Field {
	case FieldPixKeyType:
		d.Values[FieldPixKey] = ""
	case FieldMaritalStatus:
		if e.Value == MaritalSingle {
			delete(d.Files, FileMaritalDocument)
		}
	}
	return next.touch(e.Field)
}

func (e Toggle) apply(s State) State {
	if e.Field != FieldConsent {
		return s
	}
	next := s.clone()
	next.Draft.Consent = e.Checked
	return next.touch(e.Field)
}

func (e PickFile) apply(s State) State {
	if !IsFile(e.Field) {
		return s
	}
	next := s.clone()
	if e.File == nil {
		delete(next.Draft.Files, e.Field)
	} else {
		next.Draft.Files[e.Field] = e.File
	}
	return next.touch(e.Field)
}

func (e Blur) apply(s State) State {
	return s.clone().touch(e.Field)
}

func (SubmitAttempt) apply(s State) State {
	next := s.clone()
	next.Submitted = true
	for _, f := range AllFields() {
		next.Touched[f] = true
	}
	next.Errors = Validate(next.Draft)
	return next
}

func (Reset) apply(State) State {
	return NewState()
}

// touch marks f and revalidates once a submit has been attempted.
func (s State) touch(f Field) State {
	s.Touched[f] = true
	if s.Submitted {
		s.Errors = Validate(s.Draft)
	}
	return s
}

func (s State) clone() State {
	c := State{
		Draft:     s.Draft.Clone(),
		Errors:    make(Errors, len(s.Errors)),
		Touched:   make(Touched, len(s.Touched)),
		Submitted: s.Submitted,
	}
	for k, v := range s.Errors {
		c.Errors[k] = v
	}
	for k, v := range s.Touched {
		c.Touched[k] = v
	}
	return c
}

// VisibleErrors returns the errors of touched fields.
func (s State) VisibleErrors() Errors {
	visible := make(Errors)
	for f, msg := range s.Errors {
		if s.Touched[f] {
			visible[f] = msg
		}
	}
	return visible
}

// Status returns the form-level status line, or "" before any submit.
func (s State) Status() string {
	if !s.Submitted {
		return ""
	}
	if s.Errors.Valid() {
		return StatusReady
	}
	return StatusFixErrors
}

// Fill applies a whole posted form: attachments, then scalar fields in form
// order, then the consent flag. Fields missing from values are left empty.
func Fill(s State, values map[Field]string, consent bool, files map[Field]*File) State {
	for _, f := range FileFields {
		if file, ok := files[f]; ok {
			s = Reduce(s, PickFile{Field: f, File: file})
		}
	}
	for _, f := range ScalarFields {
		if v, ok := values[f]; ok {
			s = Reduce(s, Change{Field: f, Value: v})
		}
	}
	return Reduce(s, Toggle{Field: FieldConsent, Checked: consent})
}
