package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"diagnostico_backend/internal/email"
	"diagnostico_backend/internal/scoring"
	"diagnostico_backend/platform/logger"
)

type testConfig struct{}

func (testConfig) GetEmailEnabled() bool       { return true }
func (testConfig) GetEmailTransport() string   { return "smtp" }
func (testConfig) GetBrevoAPIKey() string      { return "" }
func (testConfig) GetSMTPHost() string         { return "" }
func (testConfig) GetSMTPPort() int            { return 0 }
func (testConfig) GetSMTPUsername() string     { return "" }
func (testConfig) GetSMTPPassword() string     { return "" }
func (testConfig) GetEmailFromName() string    { return "Inforum" }
func (testConfig) GetEmailFromAddress() string { return "info@example.com" }
func (testConfig) GetEmailBCC() string         { return "sales@example.com" }
func (testConfig) GetPublicBaseURL() string    { return "https://forms.example.com" }
func (testConfig) GetVideoURL() string         { return "https://video.example.com/v" }
func (testConfig) GetSiteURL() string          { return "https://www.example.com" }

type recordingSender struct {
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestDispatchQualified(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, testConfig{}, logger.Discard())

	err := d.Dispatch(context.Background(), Recipient{Name: "Ana", Email: "ana@acme.com"},
		scoring.Verdict{Qualifies: true, Label: scoring.LabelQualifies}, "https://landing.example.com/")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if msg.Subject != subjectQualified || msg.To != "ana@acme.com" || msg.Bcc != "sales@example.com" {
		t.Fatalf("unexpected message header %+v", msg)
	}
	if !strings.Contains(msg.HTML, "Rita Muralles") || !strings.Contains(msg.Text, "Rita Muralles") {
		t.Fatal("qualified body must mention the advisor")
	}
	if !strings.Contains(msg.HTML, "https://landing.example.com/video.png") {
		t.Fatalf("thumbnail must use the request origin:\n%s", msg.HTML)
	}
}

func TestDispatchNotQualifiedUsesBaseURL(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, testConfig{}, logger.Discard())

	err := d.Dispatch(context.Background(), Recipient{Name: "Ana", Email: "ana@acme.com"},
		scoring.Verdict{Qualifies: false, Label: scoring.LabelNotQualifies}, "")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	msg := sender.sent[0]
	if msg.Subject != subjectNotQualified {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "cupo lleno") {
		t.Fatal("non-qualified body must explain the waitlist")
	}
	if !strings.Contains(msg.HTML, "https://forms.example.com/video.png") {
		t.Fatal("thumbnail must fall back to the base url")
	}
}

func TestDispatchEscapesName(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, testConfig{}, logger.Discard())

	content, err := d.Render(Recipient{Name: "<script>x</script>", Email: "a@b.c"}, scoring.Verdict{Qualifies: true}, "")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(content.HTML, "<script>") {
		t.Fatal("name must be escaped in html")
	}
}

func TestDispatchWithoutTransportSkips(t *testing.T) {
	d := NewDispatcher(nil, testConfig{}, logger.Discard())

	if d.Enabled() {
		t.Fatal("nil sender must disable delivery")
	}
	if err := d.Dispatch(context.Background(), Recipient{Email: "a@b.c"}, scoring.Verdict{}, ""); err != nil {
		t.Fatalf("unconfigured transport must not fail, got %v", err)
	}
}

func TestDispatchPropagatesSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	d := NewDispatcher(sender, testConfig{}, logger.Discard())

	if err := d.Dispatch(context.Background(), Recipient{Email: "a@b.c"}, scoring.Verdict{}, ""); err == nil {
		t.Fatal("expected send error")
	}
}
