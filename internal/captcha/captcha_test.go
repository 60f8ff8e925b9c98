package captcha

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type testConfig struct {
	secret   string
	endpoint string
}

func (c testConfig) GetRecaptchaSecret() string    { return c.secret }
func (c testConfig) GetRecaptchaMinScore() float64 { return 0.7 }
func (c testConfig) GetRecaptchaVerifyURL() string { return c.endpoint }
func (c testConfig) IsCaptchaEnabled() bool        { return c.secret != "" }

func newVerifier(t *testing.T, body string) Verifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("secret") != "s3cret" {
			t.Errorf("missing secret")
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(testConfig{secret: "s3cret", endpoint: srv.URL})
}

func TestVerifyScores(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		reject bool
	}{
		{name: "high score", body: `{"success":true,"score":0.9}`},
		{name: "threshold", body: `{"success":true,"score":0.7}`},
		{name: "low score", body: `{"success":true,"score":0.3}`, reject: true},
		{name: "no score", body: `{"success":true}`},
		{name: "failed", body: `{"success":false,"error-codes":["invalid-input-response"]}`, reject: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newVerifier(t, tc.body).Verify(context.Background(), "tok", "1.2.3.4")
			if tc.reject != errors.Is(err, ErrRejected) {
				t.Fatalf("Verify() = %v, reject=%v", err, tc.reject)
			}
		})
	}
}

func TestVerifyWithoutTokenSkipsSiteverify(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	t.Cleanup(srv.Close)

	v := New(testConfig{secret: "s3cret", endpoint: srv.URL})
	if err := v.Verify(context.Background(), "  ", "1.2.3.4"); err != nil {
		t.Fatalf("tokenless submission must pass, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("siteverify called %d times without a token", calls)
	}
}

func TestDisabledWithoutSecret(t *testing.T) {
	v := New(testConfig{})
	if _, ok := v.(Disabled); !ok {
		t.Fatalf("expected Disabled, got %T", v)
	}
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Fatalf("disabled verifier must accept, got %v", err)
	}
}
