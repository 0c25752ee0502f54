package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/matheus3301/tourchat/internal/identity"
)

// Result is the envelope every endpoint responds with.
type Result[T any] struct {
	Success bool         `json:"success"`
	Data    T            `json:"data"`
	Error   *ResultError `json:"error,omitempty"`
}

// ResultError is the error object of an unsuccessful Result.
type ResultError struct {
	Message string `json:"message"`
}

func (r *Result[T]) errorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// Error is returned for any call whose Result is not successful, including
// transport failures and non-2xx responses.
type Error struct {
	Op         string
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same call later may succeed.
func (e *Error) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// FlexID is an identifier the server may encode as a JSON string or number.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(identity.Normalize(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", b)
	}
	if i, err := n.Int64(); err == nil {
		*id = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("parse numeric id %s: %w", b, err)
	}
	*id = FlexID(identity.Normalize(f))
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

// Timestamp accepts RFC 3339 strings or unix milliseconds.
type Timestamp time.Time

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		*t = Timestamp(parsed)
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", b, err)
	}
	*t = Timestamp(time.UnixMilli(ms).UTC())
	return nil
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
