package pipedrive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diagnostico_backend/platform/logger"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetCRMBaseURL() string            { return c.baseURL }
func (c testConfig) GetCRMAPIToken() string           { return "secret-token" }
func (c testConfig) GetCRMTimeout() time.Duration     { return 2 * time.Second }
func (c testConfig) GetCRMRequestsPerSecond() float64 { return 0 }
func (c testConfig) GetCRMSearchRetries() uint64      { return 0 }
func (c testConfig) GetDealFieldIndustry() string     { return "" }
func (c testConfig) GetDealFieldERP() string          { return "" }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(testConfig{baseURL: srv.URL + "/api/v1"}, logger.Discard())
}

func TestSearchPersonByEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/persons/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("term") != "ana@acme.com" || q.Get("fields") != "email" || q.Get("exact_match") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("api_token") != "secret-token" {
			t.Error("missing api token")
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"result_score":1,"item":{"id":77,"name":"Ana"}}]}}`))
	})

	id, found, err := client.Search(context.Background(), EntityPerson, "ana@acme.com")
	if err != nil || !found || id != 77 {
		t.Fatalf("Search() = %d,%v,%v", id, found, err)
	}
}

func TestSearchConfirmedMiss(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("fields") {
			t.Error("organization search must not restrict fields")
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[]}}`))
	})

	id, found, err := client.Search(context.Background(), EntityOrganization, "Acme")
	if err != nil || found || id != 0 {
		t.Fatalf("Search() = %d,%v,%v", id, found, err)
	}
}

func TestCreateSendsJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/deals" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["title"] != "Diagnóstico – Ana" || body["pipeline_id"] != float64(6) {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":501}}`))
	})

	id, err := client.Create(context.Background(), EntityDeal, map[string]any{
		"title":       "Diagnóstico – Ana",
		"pipeline_id": 6,
	})
	if err != nil || id != 501 {
		t.Fatalf("Create() = %d,%v", id, err)
	}
}

func TestCreateNoteOmitsZeroIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["org_id"]; ok {
			t.Error("org_id must be omitted when zero")
		}
		if body["deal_id"] != float64(9) {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":3}}`))
	})

	if _, err := client.CreateNote(context.Background(), Note{Content: "x", DealID: 9, PersonID: 4}); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
}

func TestErrorsAreClassified(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{name: "server error", status: http.StatusBadGateway, body: `{"success":false,"error":"down"}`, retryable: true},
		{name: "throttled", status: http.StatusTooManyRequests, body: `{"success":false,"error":"slow down"}`, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"success":false,"error":"bad stage"}`, retryable: false},
		{name: "success false", status: http.StatusOK, body: `{"success":false,"error":"nope"}`, retryable: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Create(context.Background(), EntityPerson, map[string]any{"name": "x"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", apiErr.StatusCode, tc.status)
			}
			if IsRetryable(err) != tc.retryable {
				t.Fatalf("IsRetryable() = %v, want %v", IsRetryable(err), tc.retryable)
			}
		})
	}
}

func TestTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := New(testConfig{baseURL: baseURL}, logger.Discard())
	_, _, err := client.Search(context.Background(), EntityPerson, "a@b.c")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !IsRetryable(err) {
		t.Fatalf("transport errors must be retryable: %v", err)
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error leaks api token: %v", err)
	}
}
