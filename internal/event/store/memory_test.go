package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civreg/internal/event/models"
	"civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
)

type EventStoreSuite struct {
	suite.Suite
	store *InMemoryEventStore
	ctx   context.Context
}

func (s *EventStoreSuite) SetupTest() {
	s.store = NewInMemoryEventStore()
	s.ctx = context.Background()
}

func TestEventStoreSuite(t *testing.T) {
	suite.Run(t, new(EventStoreSuite))
}

func (s *EventStoreSuite) newEvent(registrationID string) *models.Event {
	event, err := models.NewEvent(models.EventBirth, registrationID,
		models.Data{"childName": "Abel"}, domain.RoleHospital, domain.NewUserID(), time.Now())
	s.Require().NoError(err)
	return event
}

func (s *EventStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds event by ID", func() {
		event := s.newEvent("1001")
		s.Require().NoError(s.store.Create(s.ctx, event))

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(event.RegistrationID, found.RegistrationID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, domain.NewEventID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reads never alias store state", func() {
		event := s.newEvent("1002")
		s.Require().NoError(s.store.Create(s.ctx, event))

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		found.Data["childName"] = "mutated"

		again, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal("Abel", again.Data["childName"])
	})
}

func (s *EventStoreSuite) TestRegistrationIDUniqueness() {
	s.Run("rejects duplicate registration ID", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newEvent("2001")))

		err := s.store.Create(s.ctx, s.newEvent("2001"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("enforces case-insensitive uniqueness", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newEvent("BR-2002")))

		err := s.store.Create(s.ctx, s.newEvent("br-2002"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("finds by registration ID case-insensitively", func() {
		event := s.newEvent("BR-2003")
		s.Require().NoError(s.store.Create(s.ctx, event))

		found, err := s.store.FindByRegistrationID(s.ctx, "br-2003")
		s.Require().NoError(err)
		s.Equal(event.ID, found.ID)
	})

	s.Run("deletion frees the registration ID", func() {
		event := s.newEvent("2004")
		s.Require().NoError(s.store.Create(s.ctx, event))
		s.Require().NoError(s.store.Delete(s.ctx, event.ID))

		s.Require().NoError(s.store.Create(s.ctx, s.newEvent("2004")))
	})
}

func (s *EventStoreSuite) TestListing() {
	s.Run("lists by owner", func() {
		first := s.newEvent("3001")
		second := s.newEvent("3002")
		second.OwnerID = first.OwnerID
		other := s.newEvent("3003")

		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))
		s.Require().NoError(s.store.Create(s.ctx, other))

		mine, err := s.store.ListByOwner(s.ctx, first.OwnerID)
		s.Require().NoError(err)
		s.Len(mine, 2)
	})

	s.Run("lists by type and statuses", func() {
		draft := s.newEvent("3101")
		pending := s.newEvent("3102")
		pending.ApplySubmission(time.Now())

		s.Require().NoError(s.store.Create(s.ctx, draft))
		s.Require().NoError(s.store.Create(s.ctx, pending))

		found, err := s.store.ListByTypeAndStatuses(s.ctx, models.EventBirth,
			[]models.EventStatus{models.StatusPending, models.StatusApproved})
		s.Require().NoError(err)
		s.Len(found, 1)
		s.Equal(pending.ID, found[0].ID)
	})
}

func (s *EventStoreSuite) TestExecute() {
	s.Run("validate failure leaves the record untouched", func() {
		event := s.newEvent("4001")
		s.Require().NoError(s.store.Create(s.ctx, event))

		_, err := s.store.Execute(s.ctx, event.ID,
			func(*models.Event) error { return dErrors.New(dErrors.CodeInvalidState, "nope") },
			func(e *models.Event) { e.Status = models.StatusApproved },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusDraft, found.Status)
	})

	s.Run("mutation is applied and returned", func() {
		event := s.newEvent("4002")
		s.Require().NoError(s.store.Create(s.ctx, event))

		now := time.Now()
		updated, err := s.store.Execute(s.ctx, event.ID,
			func(e *models.Event) error { return e.CanSubmit() },
			func(e *models.Event) { e.ApplySubmission(now) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, updated.Status)

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("unknown ID returns ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, domain.NewEventID(),
			func(*models.Event) error { return nil },
			func(*models.Event) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent transitions serialize to one winner", func() {
		event := s.newEvent("4003")
		event.ApplySubmission(time.Now())
		s.Require().NoError(s.store.Create(s.ctx, event))

		const workers = 16
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Execute(s.ctx, event.ID,
					func(e *models.Event) error { return e.CanApprove() },
					func(e *models.Event) { e.ApplyApproval(domain.NewUserID(), time.Now()) },
				)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
			} else {
				s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
			}
		}
		s.Equal(1, succeeded)
	})
}

type SequenceStoreSuite struct {
	suite.Suite
	store *InMemorySequenceStore
	ctx   context.Context
}

func (s *SequenceStoreSuite) SetupTest() {
	s.store = NewInMemorySequenceStore()
	s.ctx = context.Background()
}

func TestSequenceStoreSuite(t *testing.T) {
	suite.Run(t, new(SequenceStoreSuite))
}

func (s *SequenceStoreSuite) TestNext() {
	s.Run("counts from one per name", func() {
		n, err := s.store.Next(s.ctx, "registration")
		s.Require().NoError(err)
		s.Equal(int64(1), n)

		n, err = s.store.Next(s.ctx, "registration")
		s.Require().NoError(err)
		s.Equal(int64(2), n)

		n, err = s.store.Next(s.ctx, "other")
		s.Require().NoError(err)
		s.Equal(int64(1), n)
	})

	s.Run("concurrent draws never repeat", func() {
		const draws = 100
		var wg sync.WaitGroup
		values := make(chan int64, draws)
		for i := 0; i < draws; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := s.store.Next(s.ctx, "concurrent")
				s.NoError(err)
				values <- n
			}()
		}
		wg.Wait()
		close(values)

		seen := make(map[int64]bool, draws)
		for v := range values {
			s.False(seen[v], "value %d drawn twice", v)
			seen[v] = true
		}
		s.Len(seen, draws)
	})
}
