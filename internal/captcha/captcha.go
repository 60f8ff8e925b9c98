// Package captcha verifies reCAPTCHA v3 tokens against Google's siteverify API.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"diagnostico_backend/platform/config"
)

// ErrRejected is returned when the token is invalid or scores too low.
var ErrRejected = errors.New("captcha rejected")

// Verifier checks a client token. remoteIP may be empty.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Disabled accepts everything.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) error { return nil }

// Recaptcha calls the siteverify endpoint.
type Recaptcha struct {
	secret   string
	minScore float64
	endpoint string
	client   *http.Client
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// New returns Disabled when no secret is configured.
func New(cfg config.CaptchaConfig) Verifier {
	if !cfg.IsCaptchaEnabled() {
		return Disabled{}
	}
	return &Recaptcha{
		secret:   cfg.GetRecaptchaSecret(),
		minScore: cfg.GetRecaptchaMinScore(),
		endpoint: cfg.GetRecaptchaVerifyURL(),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify rejects a failed check or a score below the minimum. An empty token
// is not checked at all. Checkbox (v2) responses carry no score and pass on
// success alone.
func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}

	form := url.Values{}
	form.Set("secret", r.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify: status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("siteverify decode: %w", err)
	}

	if !out.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ","))
	}
	if out.Score != nil && *out.Score < r.minScore {
		return fmt.Errorf("%w: score %.2f below %.2f", ErrRejected, *out.Score, r.minScore)
	}
	return nil
}
