package integrity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civreg/internal/event/models"
	"civreg/internal/event/store"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

type IntegritySuite struct {
	suite.Suite
	store   *store.InMemoryEventStore
	checker *Checker
	ctx     context.Context
}

func (s *IntegritySuite) SetupTest() {
	s.store = store.NewInMemoryEventStore()
	s.checker = NewChecker(s.store)
	s.ctx = context.Background()
}

func TestIntegritySuite(t *testing.T) {
	suite.Run(t, new(IntegritySuite))
}

// seed stores an event in the given status and returns it.
func (s *IntegritySuite) seed(t models.EventType, registrationID string, status models.EventStatus, data models.Data) *models.Event {
	event, err := models.NewEvent(t, registrationID, data, domain.RoleRegistrar, domain.NewUserID(), time.Now())
	s.Require().NoError(err)
	if status != models.StatusDraft {
		event.ApplySubmission(time.Now())
	}
	if status == models.StatusApproved {
		event.ApplyApproval(domain.NewUserID(), time.Now())
	}
	s.Require().NoError(s.store.Create(s.ctx, event))
	return event
}

func (s *IntegritySuite) TestCheckDuplicates() {
	s.Run("no identity numbers, no conflict", func() {
		err := s.checker.CheckDuplicates(s.ctx, models.EventBirth,
			models.Data{"childName": "Abel"}, domain.EventID{})
		s.NoError(err)
	})

	s.Run("pending record with same number blocks", func() {
		existing := s.seed(models.EventBirth, "5001", models.StatusPending,
			models.Data{"childIdNumber": "ID-100", "childName": "Abel"})

		err := s.checker.CheckDuplicates(s.ctx, models.EventBirth,
			models.Data{"childIdNumber": "ID-100"}, domain.EventID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		detail := dErrors.Details(err)
		s.Require().NotNil(detail)
		s.Require().NotNil(detail.Conflict)
		s.Equal("childIdNumber", detail.Conflict.Field)
		s.Equal(existing.RegistrationID, detail.Conflict.ConflictingID)
	})

	s.Run("matching is case-insensitive on trimmed values", func() {
		s.seed(models.EventBirth, "5002", models.StatusApproved,
			models.Data{"childIdNumber": "AB-200"})

		err := s.checker.CheckDuplicates(s.ctx, models.EventBirth,
			models.Data{"childIdNumber": "  ab-200 "}, domain.EventID{})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("drafts never block", func() {
		s.seed(models.EventBirth, "5003", models.StatusDraft,
			models.Data{"childIdNumber": "ID-300"})

		err := s.checker.CheckDuplicates(s.ctx, models.EventBirth,
			models.Data{"childIdNumber": "ID-300"}, domain.EventID{})
		s.NoError(err)
	})

	s.Run("record does not conflict with itself on resubmission", func() {
		existing := s.seed(models.EventBirth, "5004", models.StatusPending,
			models.Data{"childIdNumber": "ID-400"})

		err := s.checker.CheckDuplicates(s.ctx, models.EventBirth,
			existing.Data, existing.ID)
		s.NoError(err)
	})

	s.Run("same number on a different event type is fine", func() {
		s.seed(models.EventBirth, "5005", models.StatusApproved,
			models.Data{"childIdNumber": "ID-500"})

		err := s.checker.CheckDuplicates(s.ctx, models.EventMarriage,
			models.Data{"wifeIdNumber": "ID-500"}, domain.EventID{})
		s.NoError(err)
	})
}

func (s *IntegritySuite) TestCheckSexConsistency() {
	s.Run("birth record sex is authoritative", func() {
		s.seed(models.EventBirth, "6001", models.StatusApproved,
			models.Data{"childIdNumber": "ID-600", "sex": "male"})

		err := s.checker.CheckSexConsistency(s.ctx, models.EventMarriage,
			models.Data{"wifeIdNumber": "ID-600"}, domain.EventID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		detail := dErrors.Details(err)
		s.Require().NotNil(detail)
		s.Require().NotNil(detail.Conflict)
		s.Equal("female", detail.Conflict.ExpectedSex)
		s.Equal("male", detail.Conflict.DetectedSex)
	})

	s.Run("consistent roles pass", func() {
		s.seed(models.EventBirth, "6002", models.StatusApproved,
			models.Data{"childIdNumber": "ID-610", "sex": "female"})

		err := s.checker.CheckSexConsistency(s.ctx, models.EventMarriage,
			models.Data{"wifeIdNumber": "ID-610"}, domain.EventID{})
		s.NoError(err)
	})

	s.Run("role on an earlier marriage implies sex", func() {
		s.seed(models.EventMarriage, "6003", models.StatusApproved,
			models.Data{"husbandIdNumber": "ID-620"})

		err := s.checker.CheckSexConsistency(s.ctx, models.EventMarriage,
			models.Data{"wifeIdNumber": "ID-620"}, domain.EventID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown identity numbers say nothing", func() {
		err := s.checker.CheckSexConsistency(s.ctx, models.EventMarriage,
			models.Data{"wifeIdNumber": "ID-630"}, domain.EventID{})
		s.NoError(err)
	})

	s.Run("unparseable sex spelling is ignored", func() {
		s.seed(models.EventBirth, "6004", models.StatusApproved,
			models.Data{"childIdNumber": "ID-640", "sex": "unbekannt"})

		err := s.checker.CheckSexConsistency(s.ctx, models.EventMarriage,
			models.Data{"wifeIdNumber": "ID-640"}, domain.EventID{})
		s.NoError(err)
	})
}

func (s *IntegritySuite) TestCheckIDNumber() {
	s.Run("requires an identity number", func() {
		_, err := s.checker.CheckIDNumber(s.ctx, "   ", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unused number returns an empty advisory", func() {
		adv, err := s.checker.CheckIDNumber(s.ctx, "ID-700", "")
		s.Require().NoError(err)
		s.False(adv.InUse)
	})

	s.Run("birth match carries autofill", func() {
		s.seed(models.EventBirth, "7001", models.StatusApproved, models.Data{
			"childIdNumber": "ID-710",
			"childName":     "Abel Kebede",
			"fatherName":    "Kebede Alemu",
			"sex":           "male",
			"birthDate":     "2015-04-01",
		})

		adv, err := s.checker.CheckIDNumber(s.ctx, "id-710", "")
		s.Require().NoError(err)
		s.True(adv.InUse)
		s.Equal("7001", adv.RegistrationID)
		s.Equal(models.EventBirth, adv.EventType)
		s.Equal("Abel Kebede", adv.RecordedName)
		s.Require().NotNil(adv.Autofill)
		s.Equal("Kebede Alemu", adv.Autofill["fatherName"])
	})

	s.Run("flags a name mismatch", func() {
		s.seed(models.EventBirth, "7002", models.StatusApproved, models.Data{
			"childIdNumber": "ID-720",
			"childName":     "Abel Kebede",
		})

		adv, err := s.checker.CheckIDNumber(s.ctx, "ID-720", "Someone Else")
		s.Require().NoError(err)
		s.True(adv.InUse)
		s.True(adv.NameMismatch)

		adv, err = s.checker.CheckIDNumber(s.ctx, "ID-720", "  abel kebede ")
		s.Require().NoError(err)
		s.False(adv.NameMismatch)
	})

	s.Run("marriage match autofills the matched spouse only", func() {
		s.seed(models.EventMarriage, "7003", models.StatusApproved, models.Data{
			"wifeIdNumber":      "ID-730",
			"wifeName":          "Hanna Tadesse",
			"wifeFatherName":    "Tadesse Lemma",
			"husbandName":       "Dawit Haile",
			"husbandFatherName": "Haile Mariam",
		})

		adv, err := s.checker.CheckIDNumber(s.ctx, "ID-730", "")
		s.Require().NoError(err)
		s.True(adv.InUse)
		s.Equal("Hanna Tadesse", adv.RecordedName)
		s.Require().NotNil(adv.Autofill)
		s.Equal("Hanna Tadesse", adv.Autofill["wifeName"])
		s.NotContains(adv.Autofill, "husbandName")
	})
}
