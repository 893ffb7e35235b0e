// Package validate decides whether a submission is complete enough to enter
// the workflow. Requirements are organized as field groups: a group is
// satisfied when any of its aliases carries a non-empty value. Partial
// submissions are never accepted — every group must be satisfied.
package validate

import (
	"strings"
	"time"

	"civreg/internal/event/canonical"
	"civreg/internal/event/models"
	dErrors "civreg/pkg/domain-errors"
)

// minFields is the absolute floor of populated top-level fields below which a
// submission is rejected regardless of which fields are present.
const minFields = 5

// Result reports the outcome of completeness validation.
type Result struct {
	OK            bool
	MissingGroups []string
	// Reason explains a rejection that is not attributable to specific
	// groups (empty form, too few fields).
	Reason string
}

// Err converts a failed result into the domain validation error; returns nil
// when the result is OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if r.Reason != "" {
		return dErrors.NewValidation(r.Reason, r.MissingGroups)
	}
	return dErrors.NewValidation("submission is incomplete", r.MissingGroups)
}

// Validate checks a submission against the event type's required field
// groups. It must run on pre-fallback data so inherited defaults cannot
// satisfy a requirement. Deterministic, no side effects.
func Validate(t models.EventType, data models.Data) Result {
	populated := canonical.NonEmptyFieldCount(data)
	if populated == 0 {
		return Result{Reason: "empty form"}
	}
	if populated < minFields {
		return Result{Reason: "too few fields for a valid submission"}
	}

	var missing []string
	for _, group := range canonical.RequiredGroups(t) {
		if !groupSatisfied(group, data) {
			missing = append(missing, group.Name)
		}
	}
	if len(missing) > 0 {
		return Result{MissingGroups: missing}
	}
	return Result{OK: true}
}

// groupSatisfied reports whether any alias of the group carries a non-empty
// value. Date groups require a complete date triple or a strict YYYY-MM-DD
// string; an arbitrary string is not evidence of a date.
func groupSatisfied(group canonical.Attribute, data models.Data) bool {
	for _, alias := range group.Aliases {
		v, ok := data[alias]
		if !ok {
			continue
		}
		if group.Date {
			if s, isString := v.(string); isString {
				if isStrictDate(strings.TrimSpace(s)) {
					return true
				}
				continue
			}
			if !canonical.IsEmpty(v) {
				return true
			}
			continue
		}
		if !canonical.IsEmpty(v) {
			return true
		}
	}
	return false
}

// isStrictDate accepts exactly YYYY-MM-DD, nothing looser.
func isStrictDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
