// Package complaint holds the complaint lifecycle rules: the status state
// machine and the read-time derived fields.
package complaint

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusReceived   Status = "received"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRatingOutOfRange  = errors.New("rating must be between 1 and 5")
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusReceived, StatusInProgress, StatusResolved, StatusRejected}

// legacy spellings still sent by older clients
var statusAliases = map[string]Status{
	"recibido":    StatusReceived,
	"en_progreso": StatusInProgress,
	"resuelto":    StatusResolved,
	"rechazado":   StatusRejected,
}

var transitions = map[Status][]Status{
	StatusReceived:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
}

// ParseStatus accepts the canonical values and their legacy Spanish spellings.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, status := range Statuses {
		if normalized == string(status) {
			return status, nil
		}
	}
	if status, ok := statusAliases[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
}

func (s Status) Valid() bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// CanTransition reports whether from -> to is in the transition table.
// Same-state moves are never allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition wrapped with both states when
// from -> to is not allowed.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// AllowedTransitions returns the statuses reachable from s, empty for terminal states.
func AllowedTransitions(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return ErrRatingOutOfRange
	}
	return nil
}
