package catalog

import (
	"errors"
	"fmt"
)

// FetchKind classifies a failed catalog fetch.
type FetchKind int

const (
	// KindNotFound means the catalog reported the resource missing.
	KindNotFound FetchKind = iota
	// KindTransient covers network errors, timeouts and non-404 failures.
	KindTransient
	// KindParseFailure means the response body did not decode.
	KindParseFailure
)

// FetchError is a typed failure from the course explorer.
type FetchError struct {
	Kind       FetchKind
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return "catalog: resource not found"
	case KindParseFailure:
		return fmt.Sprintf("catalog: response could not be parsed: %v", e.Cause)
	default:
		if e.StatusCode != 0 {
			return fmt.Sprintf("catalog: fetch failed with status %d", e.StatusCode)
		}
		return fmt.Sprintf("catalog: fetch failed: %v", e.Cause)
	}
}

func (e *FetchError) Unwrap() error { return e.Cause }

func fetchKind(err error, kind FetchKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// IsNotFound reports whether err is a not-found fetch failure.
func IsNotFound(err error) bool { return fetchKind(err, KindNotFound) }

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool { return fetchKind(err, KindTransient) }

// IsParseFailure reports whether err is a decode failure.
func IsParseFailure(err error) bool { return fetchKind(err, KindParseFailure) }

// ValidationError reports malformed user input. It is distinct from
// fetch failures: nothing was requested from the catalog.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is a user-input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
