// Package templates renders the HTML fragments swapped in by the form page.
package templates

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// Status kinds select the alert styling.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindWarning = "warning"
)

// StatusData is the content of the submission status alert.
type StatusData struct {
	Kind    string
	Message string
	Action  string
	Code    string
	// FieldErrors maps field name to message, listed under the alert.
	FieldErrors map[string]string
}

// StatusAlert renders the alert shown after a submit.
func StatusAlert(d StatusData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		kind := d.Kind
		if kind == "" {
			kind = KindError
		}
		role := "alert"
		if kind == KindSuccess {
			role = "status"
		}

		b.WriteString(`<div class="status status-` + templ.EscapeString(kind) + `" role="` + role + `">`)
		b.WriteString(`<p class="status-message">` + templ.EscapeString(d.Message) + `</p>`)
		if d.Action != "" {
			b.WriteString(`<p class="status-action">` + templ.EscapeString(d.Action) + `</p>`)
		}
		if len(d.FieldErrors) > 0 {
			fields := make([]string, 0, len(d.FieldErrors))
			for f := range d.FieldErrors {
				fields = append(fields, f)
			}
			sort.Strings(fields)

			b.WriteString(`<ul class="status-fields">`)
			for _, f := range fields {
				b.WriteString(`<li data-field="` + templ.EscapeString(f) + `">` + templ.EscapeString(d.FieldErrors[f]) + `</li>`)
			}
			b.WriteString(`</ul>`)
		}
		if d.Code != "" {
			b.WriteString(`<small class="status-code">Código: ` + templ.EscapeString(d.Code) + `</small>`)
		}
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Countdown renders the deadline banner.
func Countdown(timeLeft string, open bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "countdown"
		if !open {
			class += " countdown-closed"
		}
		_, err := io.WriteString(w, `<span class="`+class+`">`+templ.EscapeString(timeLeft)+`</span>`)
		return err
	})
}
