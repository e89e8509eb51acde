package cache

import (
	"errors"
	"time"
)

// NoTTL is the RemainingTTL of a failed read.
const NoTTL time.Duration = -1

var (
	ErrUnavailable      = errors.New("cache: store unavailable")
	ErrNotFound         = errors.New("cache: key not found")
	ErrExpired          = errors.New("cache: expired")
	ErrFunctionValue    = errors.New("cache: function values cannot be retrieved")
	ErrNotSerializable  = errors.New("cache: functions are not serializable")
	ErrUnknownType      = errors.New("cache: unknown stored data type")
	ErrMalformed        = errors.New("cache: malformed stored value")
	ErrUnsupportedValue = errors.New("cache: unsupported value")
	ErrInvalidTTL       = errors.New("cache: ttl must be positive")
	ErrStore            = errors.New("cache: store fault")
)

// Result is the outcome of Get. A failed read has the same shape as a
// successful one: Found is false, Data nil, Err set and RemainingTTL NoTTL.
type Result struct {
	Found        bool
	Data         any
	Err          error
	RemainingTTL time.Duration

	kind Kind
	raw  string
}

func miss(err error) Result {
	return Result{Err: err, RemainingTTL: NoTTL}
}

// Kind reports the stored kind of a found entry.
func (r Result) Kind() Kind { return r.kind }

// Scan decodes the entry into dst, which must be a non-nil pointer.
// Objects and numbers decode with encoding/json rules.
func (r Result) Scan(dst any) error {
	if !r.Found {
		if r.Err != nil {
			return r.Err
		}
		return ErrNotFound
	}
	return scan(r.kind, r.raw, dst)
}
