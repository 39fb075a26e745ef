// Package output carries the ordered result lines produced by a run and
// renders them for the terminal.
//
// Components never share an accumulator: each returns its own []Line and
// the caller appends them in declaration order.
package output

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/declarix/pkg/types"
)

// Outcome tags what happened to one destination
type Outcome string

const (
	OutcomeNew       Outcome = "new"
	OutcomeConverged Outcome = "converged"
	OutcomeConflict  Outcome = "conflict"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRemoved   Outcome = "removed"
	OutcomeError     Outcome = "error"
	// OutcomeTracked is used by status listings, not by runs
	OutcomeTracked Outcome = "tracked"
)

// AllOutcomes returns every run outcome in summary order
func AllOutcomes() []Outcome {
	return []Outcome{OutcomeNew, OutcomeConverged, OutcomeConflict, OutcomeUnchanged, OutcomeRemoved, OutcomeError}
}

// Style is the style sheet name for the outcome
func (o Outcome) Style() string {
	if o == "" {
		return "Unchanged"
	}
	return strings.ToUpper(string(o[:1])) + string(o[1:])
}

// Line is one reconciled or removed destination
type Line struct {
	Category string
	Title    string
	Setting  types.Setting
	Path     string
	Outcome  Outcome
	Message  string
}

// Group returns the group header the line is rendered under
func (l Line) Group() types.Group {
	return types.Group{Category: l.Category, Setting: l.Setting}
}

// Label is the ownership class label, empty for the default class
func (l Line) Label() string {
	if types.Class(l.Title).IsDefault() {
		return ""
	}
	return l.Title
}

// For builds a line for an entity
func For(e types.Entity, path string, outcome Outcome, message string) Line {
	return Line{
		Category: e.Category,
		Title:    e.Title,
		Setting:  e.Setting,
		Path:     path,
		Outcome:  outcome,
		Message:  message,
	}
}

// Errorf builds an error line for an entity
func Errorf(e types.Entity, path string, err error) Line {
	return For(e, path, OutcomeError, err.Error())
}

// Count returns how many lines have outcome o
func Count(lines []Line, o Outcome) int {
	n := 0
	for _, l := range lines {
		if l.Outcome == o {
			n++
		}
	}
	return n
}

// Summary renders counts of every outcome present, e.g. "2 new, 1 conflict"
func Summary(lines []Line) string {
	var parts []string
	for _, o := range AllOutcomes() {
		if n := Count(lines, o); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}
