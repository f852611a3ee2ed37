// Package importer converts list and history exports from external services
// into local tracking rows. Each source importer normalizes its payload into
// entries; the shared reconciliation core applies them in "new" or
// "overwrite" mode, preserving the external service's timestamps in history.
package importer

import (
	"fmt"
	"sort"

	"github.com/trackarr/trackarr/pkg/media"
)

// Mode selects how imported entries reconcile against existing rows.
type Mode string

const (
	// ModeNew skips entries the user already tracks.
	ModeNew Mode = "new"
	// ModeOverwrite deletes existing rows matching an imported entry and
	// recreates them from the import.
	ModeOverwrite Mode = "overwrite"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNew, ModeOverwrite:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// Result summarizes one import run.
type Result struct {
	Counts   map[media.Type]int `json:"counts"`
	Warnings []string           `json:"warnings"`
}

// Error is a systemic import failure: bad credentials, a private profile, an
// unknown user. It aborts the run; nothing is committed.
type Error struct {
	Source  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s import: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("%s import: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UnexpectedError wraps a crash while processing a single entry, preserving
// the offending raw entry for diagnostics. It is fatal for the run, unlike
// the per-row warning path.
type UnexpectedError struct {
	Source string
	Entry  any
	Err    error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s import: unexpected failure on entry %+v: %v", e.Source, e.Entry, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// warnings deduplicates human-readable per-row problems.
type warnings map[string]struct{}

func (w warnings) addf(format string, args ...any) {
	w[fmt.Sprintf(format, args...)] = struct{}{}
}

func (w warnings) lines() []string {
	out := make([]string, 0, len(w))
	for line := range w {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}
