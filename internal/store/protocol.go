package store

import (
	"errors"
	"fmt"
)

// Simple JSON protocol for the store daemon over a Unix domain socket.
// One request -> one response using json.Encoder/Decoder per connection.

type Request struct {
	Op    string   `json:"op"` // "ping" | "get" | "set" | "remove" | "set_many" | "remove_many"
	Key   string   `json:"key,omitempty"`
	Value string   `json:"value,omitempty"`
	Items []Item   `json:"items,omitempty"`
	Keys  []string `json:"keys,omitempty"`
}

type Response struct {
	OK    bool   `json:"ok"`
	Found bool   `json:"found,omitempty"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

const (
	codeQuota       = "quota"
	codeUnavailable = "unavailable"
	codeClosed      = "closed"
)

func errorResponse(err error) Response {
	resp := Response{OK: false, Error: err.Error()}
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		resp.Code = codeQuota
	case errors.Is(err, ErrUnavailable):
		resp.Code = codeUnavailable
	case errors.Is(err, ErrClosed):
		resp.Code = codeClosed
	}
	return resp
}

// responseError restores the sentinel behind a failed response.
func responseError(resp Response) error {
	switch resp.Code {
	case codeQuota:
		return ErrQuotaExceeded
	case codeUnavailable:
		return ErrUnavailable
	case codeClosed:
		return ErrClosed
	}
	return fmt.Errorf("store: remote: %s", resp.Error)
}
