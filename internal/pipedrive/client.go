// Package pipedrive provides the HTTP client for the Pipedrive v1 REST API.
package pipedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"diagnostico_backend/platform/config"
	"diagnostico_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Entity is a CRM collection addressable by the client.
type Entity string

const (
	EntityPerson       Entity = "persons"
	EntityOrganization Entity = "organizations"
	EntityDeal         Entity = "deals"
	EntityNote         Entity = "notes"
)

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 2048

// Client talks to a single Pipedrive company account.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a client from CRM settings. A non-positive request rate disables
// client-side throttling.
func New(cfg config.CRMConfig, log *logger.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if rps := cfg.GetCRMRequestsPerSecond(); rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetCRMTimeout()},
		baseURL:    strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		apiToken:   cfg.GetCRMAPIToken(),
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
	}
}

// Search looks up an entity by exact term. For persons the term is matched
// against the email field only. found is false on a confirmed miss.
func (c *Client) Search(ctx context.Context, entity Entity, term string) (id int64, found bool, err error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("exact_match", "true")
	params.Set("limit", "1")
	if entity == EntityPerson {
		params.Set("fields", "email")
	}

	var data searchData
	if err := c.do(ctx, http.MethodGet, "/"+string(entity)+"/search", params, nil, &data); err != nil {
		return 0, false, err
	}

	if len(data.Items) == 0 || data.Items[0].Item.ID == 0 {
		return 0, false, nil
	}
	return data.Items[0].Item.ID, true, nil
}

// Create inserts an entity and returns its id. Create is not idempotent on
// the remote side, so callers must not retry it blindly.
func (c *Client) Create(ctx context.Context, entity Entity, fields map[string]any) (int64, error) {
	var data createdData
	if err := c.do(ctx, http.MethodPost, "/"+string(entity), nil, fields, &data); err != nil {
		return 0, err
	}
	if data.ID == 0 {
		return 0, &APIError{Path: "/" + string(entity), Message: "response carried no id"}
	}
	return data.ID, nil
}

// CreateNote attaches a note to the given records.
func (c *Client) CreateNote(ctx context.Context, note Note) (int64, error) {
	fields := map[string]any{"content": note.Content}
	if note.DealID != 0 {
		fields["deal_id"] = note.DealID
	}
	if note.PersonID != 0 {
		fields["person_id"] = note.PersonID
	}
	if note.OrgID != 0 {
		fields["org_id"] = note.OrgID
	}
	return c.Create(ctx, EntityNote, fields)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pipedrive throttle: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiToken)
	reqURL := c.baseURL + path + "?" + params.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("pipedrive request failed", "method", method, "path", path, "error", redact(err))
		return &APIError{Path: path, Message: "transport failure", Err: redact(err)}
	}
	defer resp.Body.Close()
	c.log.CRMCall(method, path, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Message: "read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (decodeErr == nil && !env.Success) {
		msg := env.Error
		if msg == "" {
			msg = truncate(string(raw), maxErrorBody)
		}
		c.log.Warn("pipedrive rejected request", "method", method, "path", path, "status", resp.StatusCode, "error", msg)
		return &APIError{StatusCode: resp.StatusCode, Path: path, Message: msg}
	}
	if decodeErr != nil {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Message: "decode response", Err: decodeErr}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Message: "decode data", Err: err}
	}
	return nil
}

// redact strips the query string, which carries the api token, from url errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
		}
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
