package bitmex

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gr-satt/bordem/internal/ports"
)

// Record is one decoded key/value object from a response body.
type Record map[string]interface{}

// Float returns the value under key as a float64, if present and numeric.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Str returns the value under key as a string, if present.
func (r Record) Str(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// RateLimit carries the rate-limit accounting headers of one response,
// verbatim as strings, for informational use only.
type RateLimit struct {
	Limit     string
	Remaining string
	Reset     string
}

// Envelope is the normalized result of one API call: the decoded record
// sequence plus the response's rate-limit accounting.
type Envelope struct {
	Records   []Record
	RateLimit RateLimit
}

// decodeEnvelope turns a response body and headers into an Envelope.
// A JSON object body is wrapped as a one-record sequence. A body that is not
// valid JSON, or a response missing the rate-limit headers, is a decode error.
func decodeEnvelope(body []byte, header http.Header) (*Envelope, error) {
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		var single Record
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return nil, fmt.Errorf("%w: body is not a JSON object or array: %v", ports.ErrDecode, err)
		}
		records = []Record{single}
	}

	rl := RateLimit{
		Limit:     header.Get("x-ratelimit-limit"),
		Remaining: header.Get("x-ratelimit-remaining"),
		Reset:     header.Get("x-ratelimit-reset"),
	}
	if rl.Limit == "" || rl.Remaining == "" || rl.Reset == "" {
		return nil, fmt.Errorf("%w: rate-limit headers missing from response", ports.ErrDecode)
	}

	return &Envelope{Records: records, RateLimit: rl}, nil
}
