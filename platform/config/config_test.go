package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PIPEDRIVE_API_KEY", "token")
	t.Setenv("PIPEDRIVE_DOMAIN", "acme")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GetCRMBaseURL() != "https://acme.pipedrive.com/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.GetCRMBaseURL())
	}
	if cfg.GetRateLimitMax() != 5 || cfg.GetRateLimitWindow() != time.Hour {
		t.Fatalf("unexpected rate limit %d/%s", cfg.GetRateLimitMax(), cfg.GetRateLimitWindow())
	}
	if cfg.GetMaxLowScore() != 3 {
		t.Fatalf("expected max low score 3, got %d", cfg.GetMaxLowScore())
	}
	if got := len(cfg.GetScoringQuestions()); got != 7 {
		t.Fatalf("expected 7 default questions, got %d", got)
	}
	pa := cfg.GetCountryRoutes()["PA"]
	if pa.PipelineID != 6 || pa.StageID != 31 || pa.Currency != "USD" {
		t.Fatalf("unexpected PA route %+v", pa)
	}
	if cfg.GetEmailEnabled() {
		t.Fatal("email must be disabled without credentials")
	}
}

func TestLoadRouteOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PD_PIPELINE_HN", "42")
	t.Setenv("PD_STAGE_HN_CAPA1", "99")
	t.Setenv("PD_CURRENCY_HN", "usd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	hn := cfg.GetCountryRoutes()["HN"]
	if hn.PipelineID != 42 || hn.StageID != 99 || hn.Currency != "USD" {
		t.Fatalf("unexpected HN route %+v", hn)
	}
}

func TestLoadRequiresCRMCredentials(t *testing.T) {
	t.Setenv("PIPEDRIVE_API_KEY", "")
	t.Setenv("PIPEDRIVE_DOMAIN", "acme")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestLoadRejectsUnknownFallbackCountry(t *testing.T) {
	setRequired(t)
	t.Setenv("ROUTING_FALLBACK_COUNTRY", "MX")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for fallback country without route")
	}
}

func TestLoadRejectsNegativeSearchRetries(t *testing.T) {
	setRequired(t)
	t.Setenv("CRM_SEARCH_RETRIES", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative CRM_SEARCH_RETRIES")
	}

	t.Setenv("CRM_SEARCH_RETRIES", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("zero retries must be accepted, got %v", err)
	}
	if cfg.GetCRMSearchRetries() != 0 {
		t.Fatalf("GetCRMSearchRetries() = %d, want 0", cfg.GetCRMSearchRetries())
	}
}

func TestResolveTransport(t *testing.T) {
	cases := []struct {
		name      string
		requested string
		apiKey    string
		user      string
		pass      string
		want      string
	}{
		{name: "auto prefers api", requested: TransportAuto, apiKey: "k", user: "u", pass: "p", want: TransportBrevoAPI},
		{name: "auto falls back to smtp", requested: TransportAuto, user: "u", pass: "p", want: TransportSMTP},
		{name: "auto without credentials", requested: TransportAuto, want: TransportNone},
		{name: "smtp missing password", requested: TransportSMTP, user: "u", want: TransportNone},
		{name: "explicit none", requested: TransportNone, apiKey: "k", want: TransportNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveTransport(tc.requested, tc.apiKey, tc.user, tc.pass); got != tc.want {
				t.Fatalf("resolveTransport() = %q, want %q", got, tc.want)
			}
		})
	}
}
