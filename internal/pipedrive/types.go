package pipedrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Note is a free-text record linked to CRM entities. Zero ids are omitted.
type Note struct {
	Content  string
	DealID   int64
	PersonID int64
	OrgID    int64
}

// APIError describes a failed Pipedrive call.
type APIError struct {
	StatusCode int // 0 when the request never got a response
	Path       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("pipedrive %s: %s: %v", e.Path, e.Message, e.Err)
		}
		return fmt.Sprintf("pipedrive %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("pipedrive %s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure worth another
// attempt: network errors, timeouts, throttling and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 0:
			return apiErr.Err != nil
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// envelope is the wrapper Pipedrive puts around every response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type searchData struct {
	Items []struct {
		ResultScore float64 `json:"result_score"`
		Item        struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"item"`
	} `json:"items"`
}

type createdData struct {
	ID int64 `json:"id"`
}
