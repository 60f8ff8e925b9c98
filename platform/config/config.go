// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetTrustedProxies() []string
}

// CRMConfig provides Pipedrive connection settings.
type CRMConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIToken() string
	GetCRMTimeout() time.Duration
	GetCRMRequestsPerSecond() float64
	GetCRMSearchRetries() uint64
	GetDealFieldIndustry() string
	GetDealFieldERP() string
}

// CountryRoute is the CRM destination configured for one country code.
type CountryRoute struct {
	PipelineID int64
	StageID    int64
	Currency   string
}

// RoutingConfig provides the country routing table.
type RoutingConfig interface {
	GetCountryRoutes() map[string]CountryRoute
	GetDefaultRoute() CountryRoute
	GetFallbackCountry() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailTransport() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailBCC() string
}

// NotificationConfig provides settings for rendering confirmation emails.
type NotificationConfig interface {
	GetPublicBaseURL() string
	GetVideoURL() string
	GetSiteURL() string
}

// RateLimitConfig provides per-source submission quota settings.
type RateLimitConfig interface {
	GetRateLimitMax() int
	GetRateLimitWindow() time.Duration
}

// RedisConfig provides Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	IsRedisEnabled() bool
}

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	IsDatabaseEnabled() bool
}

// CaptchaConfig provides human verification settings.
type CaptchaConfig interface {
	GetRecaptchaSecret() string
	GetRecaptchaMinScore() float64
	GetRecaptchaVerifyURL() string
	IsCaptchaEnabled() bool
}

// IntakeConfig provides submission pipeline settings.
type IntakeConfig interface {
	GetScoringQuestions() []string
	GetMaxLowScore() int
	GetRequireCorporateEmail() bool
	GetSubmissionTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool
	TrustedProxies  []string
	CRMBaseURL      string
	CRMAPIToken     string
	CRMTimeout      time.Duration
	CRMRPS          float64
	CRMSearchRetry  int64
	DealFieldIndus  string
	DealFieldERP    string
	CountryRoutes   map[string]CountryRoute
	DefaultRoute    CountryRoute
	FallbackCountry string
	EmailEnabled    bool
	EmailTransport  string
	BrevoAPIKey     string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	EmailFromName   string
	EmailFromAddr   string
	EmailBCC        string
	PublicBaseURL   string
	VideoURL        string
	SiteURL         string
	RateLimitMax    int
	RateLimitWindow time.Duration
	RedisURL        string
	DatabaseURL     string
	RecaptchaSecret string
	RecaptchaMin    float64
	RecaptchaURL    string
	Questions       []string
	MaxLowScore     int
	CorporateEmail  bool
	SubmitTimeout   time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string         { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string    { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool     { return c.CORSAllowCreds }
func (c *Config) GetTrustedProxies() []string { return c.TrustedProxies }

// CRMConfig implementation
func (c *Config) GetCRMBaseURL() string            { return c.CRMBaseURL }
func (c *Config) GetCRMAPIToken() string           { return c.CRMAPIToken }
func (c *Config) GetCRMTimeout() time.Duration     { return c.CRMTimeout }
func (c *Config) GetCRMRequestsPerSecond() float64 { return c.CRMRPS }
func (c *Config) GetCRMSearchRetries() uint64      { return uint64(c.CRMSearchRetry) }
func (c *Config) GetDealFieldIndustry() string     { return c.DealFieldIndus }
func (c *Config) GetDealFieldERP() string          { return c.DealFieldERP }

// RoutingConfig implementation
func (c *Config) GetCountryRoutes() map[string]CountryRoute { return c.CountryRoutes }
func (c *Config) GetDefaultRoute() CountryRoute             { return c.DefaultRoute }
func (c *Config) GetFallbackCountry() string                { return c.FallbackCountry }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailTransport() string   { return c.EmailTransport }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddr }
func (c *Config) GetEmailBCC() string         { return c.EmailBCC }

// NotificationConfig implementation
func (c *Config) GetPublicBaseURL() string { return c.PublicBaseURL }
func (c *Config) GetVideoURL() string      { return c.VideoURL }
func (c *Config) GetSiteURL() string       { return c.SiteURL }

// RateLimitConfig implementation
func (c *Config) GetRateLimitMax() int              { return c.RateLimitMax }
func (c *Config) GetRateLimitWindow() time.Duration { return c.RateLimitWindow }

// RedisConfig implementation
func (c *Config) GetRedisURL() string  { return c.RedisURL }
func (c *Config) IsRedisEnabled() bool { return c.RedisURL != "" }

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) IsDatabaseEnabled() bool { return c.DatabaseURL != "" }

// CaptchaConfig implementation
func (c *Config) GetRecaptchaSecret() string    { return c.RecaptchaSecret }
func (c *Config) GetRecaptchaMinScore() float64 { return c.RecaptchaMin }
func (c *Config) GetRecaptchaVerifyURL() string { return c.RecaptchaURL }
func (c *Config) IsCaptchaEnabled() bool        { return c.RecaptchaSecret != "" }

// IntakeConfig implementation
func (c *Config) GetScoringQuestions() []string       { return c.Questions }
func (c *Config) GetMaxLowScore() int                 { return c.MaxLowScore }
func (c *Config) GetRequireCorporateEmail() bool      { return c.CorporateEmail }
func (c *Config) GetSubmissionTimeout() time.Duration { return c.SubmitTimeout }

// Email transports selectable through EMAIL_TRANSPORT.
const (
	TransportAuto     = "auto"
	TransportSMTP     = "smtp"
	TransportBrevoAPI = "brevo_api"
	TransportNone     = "none"
)

// defaultRoutes is the production pipeline layout: one pipeline per country,
// each starting at its "Capa 1" stage.
var defaultRoutes = map[string]CountryRoute{
	"GT": {PipelineID: 1, StageID: 6, Currency: "GTQ"},
	"SV": {PipelineID: 2, StageID: 7, Currency: "USD"},
	"HN": {PipelineID: 3, StageID: 13, Currency: "HNL"},
	"DO": {PipelineID: 4, StageID: 19, Currency: "DOP"},
	"EC": {PipelineID: 5, StageID: 25, Currency: "USD"},
	"PA": {PipelineID: 6, StageID: 31, Currency: "USD"},
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	crmBaseURL := getEnv("PIPEDRIVE_BASE_URL", "")
	if crmBaseURL == "" {
		if domain := getEnv("PIPEDRIVE_DOMAIN", ""); domain != "" {
			crmBaseURL = fmt.Sprintf("https://%s.pipedrive.com/api/v1", domain)
		}
	}

	smtpUser := getEnv("BREVO_SMTP_USER", "")
	smtpPass := getEnv("BREVO_SMTP_PASS", "")
	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	transport := resolveTransport(getEnv("EMAIL_TRANSPORT", TransportAuto), brevoAPIKey, smtpUser, smtpPass)

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		TrustedProxies:  splitCSV(getEnv("TRUSTED_PROXIES", "")),
		CRMBaseURL:      strings.TrimRight(crmBaseURL, "/"),
		CRMAPIToken:     getEnv("PIPEDRIVE_API_KEY", ""),
		CRMTimeout:      mustDuration(getEnv("CRM_TIMEOUT", "10s")),
		CRMRPS:          mustFloat(getEnv("CRM_REQUESTS_PER_SECOND", "8")),
		CRMSearchRetry:  mustInt64(getEnv("CRM_SEARCH_RETRIES", "2")),
		DealFieldIndus:  getEnv("PD_CF_INDUSTRIA", ""),
		DealFieldERP:    getEnv("PD_CF_SISTEMA", ""),
		CountryRoutes:   loadCountryRoutes(),
		DefaultRoute:    loadDefaultRoute(),
		FallbackCountry: strings.ToUpper(getEnv("ROUTING_FALLBACK_COUNTRY", "GT")),
		EmailEnabled:    transport != TransportNone,
		EmailTransport:  transport,
		BrevoAPIKey:     brevoAPIKey,
		SMTPHost:        getEnv("SMTP_HOST", "smtp-relay.brevo.com"),
		SMTPPort:        int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:    smtpUser,
		SMTPPassword:    smtpPass,
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "Inforum"),
		EmailFromAddr:   getEnv("EMAIL_FROM_ADDRESS", "info@inforumsol.com"),
		EmailBCC:        getEnv("EMAIL_BCC", ""),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "https://inforum-diagnostico.vercel.app"), "/"),
		VideoURL:        getEnv("VIDEO_URL", "https://youtu.be/Eau96xNp3Ds"),
		SiteURL:         getEnv("SITE_URL", "https://www.grupoinforum.com"),
		RateLimitMax:    int(mustInt64(getEnv("RATE_LIMIT_MAX", "5"))),
		RateLimitWindow: mustDuration(getEnv("RATE_LIMIT_WINDOW", "1h")),
		RedisURL:        getEnv("REDIS_URL", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RecaptchaSecret: getEnv("RECAPTCHA_SECRET", ""),
		RecaptchaMin:    mustFloat(getEnv("RECAPTCHA_MIN_SCORE", "0.7")),
		RecaptchaURL:    getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		Questions:       splitCSV(getEnv("SCORING_QUESTIONS", "industria,erp,personas,paises,lineas,satisfaccion,pro_tecnologia")),
		MaxLowScore:     int(mustInt64(getEnv("SCORING_MAX_LOW_SCORE", "3"))),
		CorporateEmail:  strings.EqualFold(getEnv("REQUIRE_CORPORATE_EMAIL", "false"), "true"),
		SubmitTimeout:   mustDuration(getEnv("SUBMISSION_TIMEOUT", "45s")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CRMAPIToken == "" {
		return fmt.Errorf("PIPEDRIVE_API_KEY is required")
	}
	if c.CRMBaseURL == "" {
		return fmt.Errorf("PIPEDRIVE_DOMAIN or PIPEDRIVE_BASE_URL is required")
	}
	if c.CRMTimeout <= 0 {
		return fmt.Errorf("CRM_TIMEOUT must be a positive duration")
	}
	if c.CRMSearchRetry < 0 {
		return fmt.Errorf("CRM_SEARCH_RETRIES cannot be negative")
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("SCORING_QUESTIONS must list at least one question")
	}
	if c.EmailEnabled && c.EmailFromAddr == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if _, ok := c.CountryRoutes[c.FallbackCountry]; !ok {
		return fmt.Errorf("ROUTING_FALLBACK_COUNTRY %q has no pipeline configured", c.FallbackCountry)
	}
	return nil
}

// resolveTransport picks the email transport. "auto" prefers the HTTP API
// when a key is present and falls back to SMTP relay credentials.
func resolveTransport(requested, apiKey, smtpUser, smtpPass string) string {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case TransportNone:
		return TransportNone
	case TransportBrevoAPI:
		if apiKey == "" {
			return TransportNone
		}
		return TransportBrevoAPI
	case TransportSMTP:
		if smtpUser == "" || smtpPass == "" {
			return TransportNone
		}
		return TransportSMTP
	}
	if apiKey != "" {
		return TransportBrevoAPI
	}
	if smtpUser != "" && smtpPass != "" {
		return TransportSMTP
	}
	return TransportNone
}

// loadCountryRoutes overlays PD_PIPELINE_<CC>, PD_STAGE_<CC>_CAPA1 and
// PD_CURRENCY_<CC> on top of the default table.
func loadCountryRoutes() map[string]CountryRoute {
	routes := make(map[string]CountryRoute, len(defaultRoutes))
	for code, def := range defaultRoutes {
		routes[code] = CountryRoute{
			PipelineID: mustInt64(getEnv("PD_PIPELINE_"+code, strconv.FormatInt(def.PipelineID, 10))),
			StageID:    mustInt64(getEnv("PD_STAGE_"+code+"_CAPA1", strconv.FormatInt(def.StageID, 10))),
			Currency:   strings.ToUpper(getEnv("PD_CURRENCY_"+code, def.Currency)),
		}
	}
	return routes
}

func loadDefaultRoute() CountryRoute {
	gt := defaultRoutes["GT"]
	return CountryRoute{
		PipelineID: mustInt64(getEnv("PD_DEFAULT_PIPELINE", strconv.FormatInt(gt.PipelineID, 10))),
		StageID:    mustInt64(getEnv("PD_DEFAULT_STAGE", strconv.FormatInt(gt.StageID, 10))),
		Currency:   strings.ToUpper(getEnv("PD_DEFAULT_CURRENCY", gt.Currency)),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
