// ABOUTME: SessionID scopes every history entry and indexed chunk to one conversation
// ABOUTME: Only ParseSessionID and NewSessionID produce a usable, non-zero value
package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxSessionIDLength bounds client-supplied session identifiers.
const MaxSessionIDLength = 256

// ErrInvalidSessionID is returned for identifiers that cannot scope data.
var ErrInvalidSessionID = errors.New("invalid session id")

// SessionID is an opaque, validated conversation identifier.
// The zero value is deliberately unusable: stores reject it.
type SessionID struct {
	id string
}

// ParseSessionID validates a client-supplied identifier.
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return SessionID{}, fmt.Errorf("%w: must not be empty", ErrInvalidSessionID)
	}
	if strings.TrimSpace(s) != s {
		return SessionID{}, fmt.Errorf("%w: surrounding whitespace", ErrInvalidSessionID)
	}
	if len(s) > MaxSessionIDLength {
		return SessionID{}, fmt.Errorf("%w: longer than %d bytes", ErrInvalidSessionID, MaxSessionIDLength)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return SessionID{}, fmt.Errorf("%w: contains control characters", ErrInvalidSessionID)
		}
	}
	return SessionID{id: s}, nil
}

// MustSessionID is ParseSessionID for identifiers known to be valid.
func MustSessionID(s string) SessionID {
	id, err := ParseSessionID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewSessionID mints a random identifier for a fresh conversation.
func NewSessionID() SessionID {
	return SessionID{id: uuid.NewString()}
}

func (s SessionID) String() string { return s.id }

// IsZero reports whether s was never validated.
func (s SessionID) IsZero() bool { return s.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (s SessionID) MarshalText() ([]byte, error) {
	return []byte(s.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with validation.
func (s *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
