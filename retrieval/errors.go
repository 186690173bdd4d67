package retrieval

import (
	"errors"
	"fmt"
)

var (
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrSectionUnavailable   = errors.New("section unavailable")
	ErrSectionNotFound      = errors.New("section not found")
	ErrSynthesisFailed      = errors.New("synthesis failed")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidMode          = errors.New("invalid mode")
	ErrUnreachable          = errors.New("collaborator unreachable")
)

// ErrorKind classifies a QueryError for callers that log and retry.
type ErrorKind string

const (
	KindRetrievalUnavailable ErrorKind = "retrieval_unavailable"
	KindSectionUnavailable   ErrorKind = "section_unavailable"
	KindSynthesisFailed      ErrorKind = "synthesis_failed"
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindUnreachable          ErrorKind = "unreachable"
)

// QueryError carries the failing stage together with the query and, for
// sweeps, the offending section.
type QueryError struct {
	Kind    ErrorKind
	Query   string
	Section string
	Err     error
}

func (e *QueryError) Error() string {
	msg := string(e.Kind)
	if e.Section != "" {
		msg = fmt.Sprintf("%s (section %q)", msg, e.Section)
	}
	if e.Query != "" {
		msg = fmt.Sprintf("%s (query %q)", msg, e.Query)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is lets errors.Is match a QueryError against the sentinel of its kind.
func (e *QueryError) Is(target error) bool {
	switch e.Kind {
	case KindRetrievalUnavailable:
		return target == ErrRetrievalUnavailable
	case KindSectionUnavailable:
		return target == ErrSectionUnavailable
	case KindSynthesisFailed:
		return target == ErrSynthesisFailed
	case KindInvalidRequest:
		return target == ErrInvalidRequest
	case KindUnreachable:
		return target == ErrUnreachable
	}
	return false
}

// KindOf returns the ErrorKind of err, or "" when err is not a QueryError.
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
