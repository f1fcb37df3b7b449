package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQueryInvalid   = errors.New("query invalid")
	ErrRemoteService  = errors.New("remote service error")
	ErrNotFound       = errors.New("not found")
	ErrTransient      = errors.New("transient failure")
	ErrFatal          = errors.New("fatal response")
	ErrConfiguration  = errors.New("configuration error")
	ErrAlreadyRunning = errors.New("another sync already running")
)

// Scope describes how far a failure propagates: a single identifier, a whole
// query, or the entire run.
type Scope int

const (
	// ScopeItem failures are recorded against one identifier and never stop
	// the surrounding batch.
	ScopeItem Scope = iota
	// ScopeQuery failures abort the current query; remaining queries proceed.
	ScopeQuery
	// ScopeRun failures abort everything before further network activity.
	ScopeRun
)

func (s Scope) String() string {
	switch s {
	case ScopeItem:
		return "item"
	case ScopeQuery:
		return "query"
	default:
		return "run"
	}
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureScope maps an error to the propagation scope the synchronizer should
// apply when it fails.
func FailureScope(err error) Scope {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrAlreadyRunning):
		return ScopeRun
	case errors.Is(err, ErrQueryInvalid), errors.Is(err, ErrRemoteService):
		return ScopeQuery
	default:
		return ScopeItem
	}
}

// Retriable reports whether a failed fetch for one identifier may be attempted
// again on a later run. Not-found records are permanent skips.
func Retriable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
