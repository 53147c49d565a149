package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStatusAlert(t *testing.T) {
	var buf bytes.Buffer
	err := StatusAlert(StatusData{
		Kind:        KindError,
		Message:     "Preencha <todos> os campos",
		Action:      "Revise",
		Code:        "VAL100",
		FieldErrors: map[string]string{"nome": "Nome é obrigatório", "email": "E-mail inválido"},
	}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	html := buf.String()
	if strings.Contains(html, "<todos>") {
		t.Errorf("message not escaped: %s", html)
	}
	if !strings.Contains(html, "&lt;todos&gt;") {
		t.Errorf("escaped message missing: %s", html)
	}
	if !strings.Contains(html, `role="alert"`) {
		t.Errorf("error alert should use role=alert: %s", html)
	}
	if strings.Index(html, `data-field="email"`) > strings.Index(html, `data-field="nome"`) {
		t.Errorf("field errors not sorted: %s", html)
	}
	if !strings.Contains(html, "VAL100") {
		t.Errorf("code missing: %s", html)
	}
}

func TestStatusAlert_Success(t *testing.T) {
	var buf bytes.Buffer
	if err := StatusAlert(StatusData{Kind: KindSuccess, Message: "ok"}).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, `role="status"`) || strings.Contains(html, "status-action") {
		t.Errorf("unexpected success markup: %s", html)
	}
}

func TestCountdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Countdown("Encerrado", false).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got, want := buf.String(), `<span class="countdown countdown-closed">Encerrado</span>`; got != want {
		t.Errorf("Countdown() = %q, want %q", got, want)
	}
}
