// Package integrity cross-checks a submission's identity numbers against the
// rest of the registry: duplicate detection, sex consistency for marriages,
// and the advisory lookup behind the pre-registration ID-number check.
//
// All checks here are best-effort by design. They scan committed records at
// check time, so two simultaneous submissions carrying the same identity
// number can both pass. The registration-ID uniqueness constraint in the
// store remains the only hard write guarantee.
package integrity

import (
	"context"
	"fmt"
	"strings"

	"civreg/internal/event/canonical"
	"civreg/internal/event/models"
	"civreg/internal/event/store"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// checkedStatuses are the record states that participate in integrity
// checks. Drafts are private working copies and never block anyone.
var checkedStatuses = []models.EventStatus{models.StatusPending, models.StatusApproved}

type Checker struct {
	events store.EventStore
}

func NewChecker(events store.EventStore) *Checker {
	return &Checker{events: events}
}

// CheckDuplicates rejects a submission whose identity numbers already appear
// in a pending or approved record of the same event type. Matching is
// case-insensitive on trimmed values. excludeID skips the record being
// resubmitted so it never conflicts with itself.
func (c *Checker) CheckDuplicates(ctx context.Context, t models.EventType, data models.Data, excludeID domain.EventID) error {
	fields := canonical.IdentityFields(t)
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		if v := normalizeID(canonical.StringValue(t, data, field.Attr)); v != "" {
			values[field.Attr] = v
		}
	}
	if len(values) == 0 {
		return nil
	}

	existing, err := c.events.ListByTypeAndStatuses(ctx, t, checkedStatuses)
	if err != nil {
		return fmt.Errorf("list events for duplicate check: %w", err)
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		for _, field := range fields {
			submitted, ok := values[field.Attr]
			if !ok {
				continue
			}
			if normalizeID(canonical.StringValue(t, other.Data, field.Attr)) == submitted {
				return dErrors.NewConflict(
					fmt.Sprintf("a %s record with the same %s identity number is already registered", t, field.Label),
					dErrors.ConflictDetail{
						Field:         field.Attr,
						Value:         canonical.StringValue(t, data, field.Attr),
						ConflictingID: other.RegistrationID,
					})
			}
		}
	}
	return nil
}

// CheckSexConsistency verifies that the sex implied by a marriage
// submission's role fields (wife, husband) does not contradict what the
// registry already knows about each identity number. Only identity fields
// declaring an expected sex participate, so the check is a no-op for event
// types without role-implied sex.
func (c *Checker) CheckSexConsistency(ctx context.Context, t models.EventType, data models.Data, excludeID domain.EventID) error {
	for _, field := range canonical.IdentityFields(t) {
		if field.ExpectedSex == "" {
			continue
		}
		idNumber := normalizeID(canonical.StringValue(t, data, field.Attr))
		if idNumber == "" {
			continue
		}
		detected, err := c.resolveSex(ctx, idNumber, excludeID)
		if err != nil {
			return err
		}
		if detected != "" && detected != field.ExpectedSex {
			return dErrors.NewConflict(
				fmt.Sprintf("identity number given for the %s belongs to a %s person in existing records", field.Label, detected),
				dErrors.ConflictDetail{
					Field:       field.Attr,
					Value:       canonical.StringValue(t, data, field.Attr),
					ExpectedSex: field.ExpectedSex,
					DetectedSex: detected,
				})
		}
	}
	return nil
}

// resolveSex determines a person's sex from the registry. Birth records are
// authoritative: a matching child identity number yields that record's sex
// attribute. When no birth record matches, role-labeled identity fields on
// other records (a wife field implies female, a husband field male) are
// taken as second-hand evidence. Returns "" when the registry says nothing.
func (c *Checker) resolveSex(ctx context.Context, idNumber string, excludeID domain.EventID) (string, error) {
	births, err := c.events.ListByTypeAndStatuses(ctx, models.EventBirth, checkedStatuses)
	if err != nil {
		return "", fmt.Errorf("list birth events for sex resolution: %w", err)
	}
	for _, birth := range births {
		if birth.ID == excludeID {
			continue
		}
		if normalizeID(canonical.StringValue(models.EventBirth, birth.Data, "childIdNumber")) == idNumber {
			if sex := normalizeSex(canonical.StringValue(models.EventBirth, birth.Data, "sex")); sex != "" {
				return sex, nil
			}
		}
	}

	for _, t := range []models.EventType{models.EventMarriage, models.EventDeath, models.EventDivorce} {
		records, err := c.events.ListByTypeAndStatuses(ctx, t, checkedStatuses)
		if err != nil {
			return "", fmt.Errorf("list %s events for sex resolution: %w", t, err)
		}
		for _, record := range records {
			if record.ID == excludeID {
				continue
			}
			for _, field := range canonical.IdentityFields(t) {
				if field.ExpectedSex == "" {
					continue
				}
				if normalizeID(canonical.StringValue(t, record.Data, field.Attr)) == idNumber {
					return field.ExpectedSex, nil
				}
			}
		}
	}
	return "", nil
}

// Advisory is the result of the pre-registration identity-number lookup. It
// informs, never blocks: the caller decides what to do with it.
type Advisory struct {
	InUse bool `json:"inUse"`
	// RegistrationID and EventType identify the record already carrying the
	// number, when one exists.
	RegistrationID string           `json:"registrationId,omitempty"`
	EventType      models.EventType `json:"eventType,omitempty"`
	// RecordedName is the person's name as stored on that record.
	RecordedName string `json:"recordedName,omitempty"`
	// NameMismatch is set when the caller supplied a name and it does not
	// match the recorded one — the "wrong person" flag.
	NameMismatch bool `json:"nameMismatch,omitempty"`
	// Autofill carries the matched record's person attributes so a client can
	// pre-populate a new form. Only birth and marriage records contribute.
	Autofill models.Data `json:"autofill,omitempty"`
}

// CheckIDNumber looks an identity number up across all event types. name is
// optional; when given it is compared case-insensitively against the matched
// record's stored name to raise the wrong-person flag.
func (c *Checker) CheckIDNumber(ctx context.Context, idNumber, name string) (*Advisory, error) {
	wanted := normalizeID(idNumber)
	if wanted == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity number is required")
	}

	for _, t := range []models.EventType{models.EventBirth, models.EventMarriage, models.EventDeath, models.EventDivorce} {
		records, err := c.events.ListByTypeAndStatuses(ctx, t, checkedStatuses)
		if err != nil {
			return nil, fmt.Errorf("list %s events for id-number lookup: %w", t, err)
		}
		for _, record := range records {
			for _, field := range canonical.IdentityFields(t) {
				if normalizeID(canonical.StringValue(t, record.Data, field.Attr)) != wanted {
					continue
				}
				recorded := canonical.StringValue(t, record.Data, field.NameAttr)
				adv := &Advisory{
					InUse:          true,
					RegistrationID: record.RegistrationID,
					EventType:      t,
					RecordedName:   recorded,
					Autofill:       autofill(t, record.Data, field),
				}
				if name != "" && recorded != "" && !strings.EqualFold(strings.TrimSpace(name), recorded) {
					adv.NameMismatch = true
				}
				return adv, nil
			}
		}
	}
	return &Advisory{}, nil
}

// autofill extracts the person attributes a client can carry into a new form.
// Birth records contribute the child's identity; marriage records contribute
// the matched spouse's.
func autofill(t models.EventType, data models.Data, field canonical.IdentityField) models.Data {
	out := models.Data{}
	copyAttr := func(attr string) {
		if v := canonical.Value(t, data, attr); v != nil {
			out[attr] = v
		}
	}
	switch {
	case t == models.EventBirth:
		for _, attr := range []string{"childName", "fatherName", "grandfatherName", "sex", "birthDate", "birthPlace"} {
			copyAttr(attr)
		}
	case t == models.EventMarriage && field.Attr == "wifeIdNumber":
		copyAttr("wifeName")
		copyAttr("wifeFatherName")
	case t == models.EventMarriage && field.Attr == "husbandIdNumber":
		copyAttr("husbandName")
		copyAttr("husbandFatherName")
	default:
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeSex folds the accepted spellings of the sex attribute onto the
// two canonical values. Unknown spellings resolve to "" rather than guessing.
func normalizeSex(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "female":
		return "female"
	case "m", "male":
		return "male"
	default:
		return ""
	}
}
