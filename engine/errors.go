package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a batch call failed.
type Kind int

const (
	// KindLaunch: the engine process could not be started.
	KindLaunch Kind = iota + 1
	// KindEngine: the engine ran and reported a failure in its payload.
	KindEngine
	// KindExit: the engine exited non-zero without an error payload.
	KindExit
	// KindMalformed: the engine exited cleanly but its output is empty, not
	// decodable, or not congruent with the request.
	KindMalformed
	// KindTimeout: the call exceeded its deadline.
	KindTimeout
	// KindCanceled: the caller canceled the call before it finished.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindLaunch:
		return "process launch"
	case KindEngine:
		return "engine reported"
	case KindExit:
		return "process exit"
	case KindMalformed:
		return "malformed output"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is returned by a Translator when a batch cannot be translated.
type Error struct {
	Kind     Kind
	Source   string
	Target   string
	Message  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s: %s", e.Source, e.Target, e.Kind)
	if e.Kind == KindExit {
		fmt.Fprintf(&b, " (code %d)", e.ExitCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Stderr != "" && (e.Kind == KindExit || e.Kind == KindMalformed) {
		b.WriteString("; stderr: ")
		b.WriteString(truncate(strings.TrimSpace(e.Stderr), 500))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// contextKind classifies a context error. Only a passed deadline is a
// timeout.
func contextKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCanceled
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
