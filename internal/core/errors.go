// ABOUTME: Error taxonomy for chat turns and ingestion
// ABOUTME: Every failure carries a kind, the session and the step it happened in
package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure so callers can tell bad input from transient trouble.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfig
	KindIndex
	KindRewrite
	KindRetrieval
	KindGeneration
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindIndex:
		return "index"
	case KindRewrite:
		return "rewrite"
	case KindRetrieval:
		return "retrieval"
	case KindGeneration:
		return "generation"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is the structured failure returned at the orchestrator boundary.
type Error struct {
	Kind      Kind
	SessionID string
	Step      string
	Err       error
}

func (e *Error) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s error at %s (session %s): %v", e.Kind, e.Step, e.SessionID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same request may succeed.
func (e *Error) Temporary() bool {
	switch e.Kind {
	case KindIndex, KindRetrieval, KindGeneration:
		return true
	default:
		return false
	}
}

func newError(kind Kind, session, step string, err error, msg string) *Error {
	if msg != "" {
		err = errors.Wrap(err, msg)
	}
	return &Error{Kind: kind, SessionID: session, Step: step, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsTemporary reports whether err is a "try again later" failure.
func IsTemporary(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary()
}
