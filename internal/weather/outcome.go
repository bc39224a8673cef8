package weather

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a resolution step failed.
type ErrorKind string

const (
	KindNotFound              ErrorKind = "not_found"
	KindNetworkFailure        ErrorKind = "network_failure"
	KindAllProvidersExhausted ErrorKind = "all_providers_exhausted"
	KindPermissionDenied      ErrorKind = "permission_denied"
	KindUnsupported           ErrorKind = "unsupported"
	// KindSuperseded marks a result discarded because a newer resolution was
	// issued. It is never shown to the user.
	KindSuperseded ErrorKind = "superseded"
)

var (
	ErrNotFound              = errors.New("location not found")
	ErrNetworkFailure        = errors.New("network failure")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrPermissionDenied      = errors.New("geolocation permission denied")
	ErrUnsupported           = errors.New("geolocation unsupported")
	ErrSuperseded            = errors.New("resolution superseded")
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:              ErrNotFound,
	KindNetworkFailure:        ErrNetworkFailure,
	KindAllProvidersExhausted: ErrAllProvidersExhausted,
	KindPermissionDenied:      ErrPermissionDenied,
	KindUnsupported:           ErrUnsupported,
	KindSuperseded:            ErrSuperseded,
}

// ResolutionError is the error carried by a failed Outcome.
type ResolutionError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

// NewError builds a ResolutionError of the given kind.
func NewError(kind ErrorKind, provider string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Provider: provider, Err: err}
}

func (e *ResolutionError) Error() string {
	msg := kindSentinels[e.Kind].Error()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrNotFound)
// works regardless of the wrapped cause.
func (e *ResolutionError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf extracts the ErrorKind of err, defaulting to KindNetworkFailure for
// unclassified errors.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindNetworkFailure
}

// Outcome is the result of one pipeline step: either a value or a classified
// failure. Failures are returned as data so callers decide on fallback.
type Outcome[T any] struct {
	Value T
	Err   *ResolutionError
}

func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func Failure[T any](kind ErrorKind, provider string, err error) Outcome[T] {
	return Outcome[T]{Err: NewError(kind, provider, err)}
}

// FailureFrom converts an arbitrary error into a failed Outcome, keeping its
// classification when it already is a ResolutionError.
func FailureFrom[T any](err error) Outcome[T] {
	var re *ResolutionError
	if errors.As(err, &re) {
		return Outcome[T]{Err: re}
	}
	return Failure[T](KindOf(err), "", err)
}

func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Unpack returns the outcome in (value, error) form.
func (o Outcome[T]) Unpack() (T, error) {
	if o.Err != nil {
		var zero T
		return zero, o.Err
	}
	return o.Value, nil
}
