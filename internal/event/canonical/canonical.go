// Package canonical maps raw submitted field sets onto the canonical
// attribute model. Submissions arrive with any mix of historical aliases;
// canonicalization adds resolved keys without ever discarding what was
// submitted, so the stored record remains a faithful copy of the input.
package canonical

import (
	"fmt"
	"strconv"
	"strings"

	"civreg/internal/event/models"
)

// Canonicalize resolves aliases for every attribute of the event type: the
// first non-empty alias in priority order becomes the canonical key's value.
// The transformation is pure, additive, and idempotent — originally submitted
// keys are never removed or overwritten.
func Canonicalize(t models.EventType, data models.Data) models.Data {
	out := data.Clone()
	for _, attr := range Attributes(t) {
		if !IsEmpty(out[attr.Name]) {
			continue
		}
		for _, alias := range attr.Aliases {
			if v, ok := out[alias]; ok && !IsEmpty(v) {
				out[attr.Name] = v
				break
			}
		}
	}
	return out
}

// ApplyFallbacks back-fills registration-place attributes from the event's
// own place attributes, and the registration date from the primary event
// date. Runs after validation so inherited defaults can never satisfy a
// completeness requirement.
func ApplyFallbacks(t models.EventType, data models.Data) models.Data {
	out := data.Clone()
	prefix := placePrefixByType[t]
	for _, part := range []string{"Region", "Zone", "Woreda", "City", "SubCity", "Kebele"} {
		reg := "registration" + part
		if IsEmpty(out[reg]) && !IsEmpty(out[prefix+part]) {
			out[reg] = out[prefix+part]
		}
	}
	if IsEmpty(out["registrationDate"]) {
		if v := out[EventDateAttr(t)]; !IsEmpty(v) {
			out["registrationDate"] = v
		}
	}
	return out
}

// Value resolves an attribute through its alias list and returns the first
// non-empty value, or nil.
func Value(t models.EventType, data models.Data, attr string) any {
	for _, a := range Attributes(t) {
		if a.Name != attr {
			continue
		}
		for _, alias := range a.Aliases {
			if v, ok := data[alias]; ok && !IsEmpty(v) {
				return v
			}
		}
		return nil
	}
	if v, ok := data[attr]; ok && !IsEmpty(v) {
		return v
	}
	return nil
}

// StringValue resolves an attribute to a trimmed string form. Non-string
// scalars are rendered; structured values yield "".
func StringValue(t models.EventType, data models.Data, attr string) string {
	switch v := Value(t, data, attr).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// IsEmpty implements the emptiness rules: nil, whitespace-only strings, empty
// arrays, date triples missing any component, and nested objects whose every
// leaf is empty all count as empty.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case models.EthiopianDate:
		return !val.IsComplete()
	case *models.EthiopianDate:
		return val == nil || !val.IsComplete()
	case []any:
		for _, item := range val {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	case map[string]any:
		if complete, isDate := dateTriple(val); isDate {
			return !complete
		}
		if len(val) == 0 {
			return true
		}
		for _, item := range val {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	default:
		// Scalars (numbers, booleans) carry information even at zero.
		return false
	}
}

// NonEmptyFieldCount counts populated top-level fields of a submission.
func NonEmptyFieldCount(data models.Data) int {
	count := 0
	for _, v := range data {
		if !IsEmpty(v) {
			count++
		}
	}
	return count
}

// dateTriple reports whether the map is an Ethiopian-date triple (its keys
// are a subset of year/month/day) and, if so, whether all components are
// present.
func dateTriple(m map[string]any) (complete, isDate bool) {
	if len(m) == 0 || len(m) > 3 {
		return false, false
	}
	for k := range m {
		switch k {
		case "year", "month", "day":
		default:
			return false, false
		}
	}
	for _, k := range []string{"year", "month", "day"} {
		if !datePartPresent(m[k]) {
			return false, true
		}
	}
	return true, true
}

func datePartPresent(v any) bool {
	switch val := v.(type) {
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return false
		}
		n, err := strconv.Atoi(trimmed)
		return err == nil && n != 0
	case nil:
		return false
	default:
		return false
	}
}

// FormatValue renders a value for human-facing messages.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
