//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civreg/internal/event/models"
	"civreg/internal/event/store"
	"civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/testutil/containers"
)

type PostgresEventStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresEventStore
	ctx   context.Context
}

func (s *PostgresEventStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.Apply(s.T(), store.Schema)
	s.store = store.NewPostgresEventStore(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresEventStoreSuite) SetupTest() {
	s.pg.Apply(s.T(), "TRUNCATE events", "TRUNCATE sequences")
}

func TestPostgresEventStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}
	suite.Run(t, new(PostgresEventStoreSuite))
}

func (s *PostgresEventStoreSuite) newEvent(registrationID string) *models.Event {
	event, err := models.NewEvent(models.EventBirth, registrationID,
		models.Data{"childName": "Abel"}, domain.RoleHospital, domain.NewUserID(), time.Now().UTC())
	s.Require().NoError(err)
	return event
}

func (s *PostgresEventStoreSuite) TestRoundTrip() {
	event := s.newEvent("1001")
	s.Require().NoError(s.store.Create(s.ctx, event))

	found, err := s.store.FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.RegistrationID, found.RegistrationID)
	s.Equal(event.OwnerID, found.OwnerID)
	s.Equal("Abel", found.Data["childName"])

	_, err = s.store.FindByID(s.ctx, domain.NewEventID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresEventStoreSuite) TestUniqueIndex() {
	s.Require().NoError(s.store.Create(s.ctx, s.newEvent("BR-100")))

	err := s.store.Create(s.ctx, s.newEvent("br-100"))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByRegistrationID(s.ctx, "bR-100")
	s.Require().NoError(err)
	s.Equal("BR-100", found.RegistrationID)
}

func (s *PostgresEventStoreSuite) TestDeleteFreesRegistrationID() {
	event := s.newEvent("2001")
	s.Require().NoError(s.store.Create(s.ctx, event))
	s.Require().NoError(s.store.Delete(s.ctx, event.ID))
	s.Require().NoError(s.store.Create(s.ctx, s.newEvent("2001")))
}

func (s *PostgresEventStoreSuite) TestListByTypeAndStatuses() {
	draft := s.newEvent("3001")
	pending := s.newEvent("3002")
	pending.ApplySubmission(time.Now().UTC())

	s.Require().NoError(s.store.Create(s.ctx, draft))
	s.Require().NoError(s.store.Create(s.ctx, pending))

	found, err := s.store.ListByTypeAndStatuses(s.ctx, models.EventBirth,
		[]models.EventStatus{models.StatusPending, models.StatusApproved})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(pending.ID, found[0].ID)
}

func (s *PostgresEventStoreSuite) TestExecute() {
	event := s.newEvent("4001")
	event.ApplySubmission(time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, event))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, event.ID,
				func(e *models.Event) error { return e.CanApprove() },
				func(e *models.Event) { e.ApplyApproval(domain.NewUserID(), time.Now().UTC()) },
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
		}
	}
	s.Equal(1, succeeded, "row locking must serialize the transition")

	found, err := s.store.FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
}

func (s *PostgresEventStoreSuite) TestSequenceStore() {
	sequences := store.NewPostgresSequenceStore(s.pg.DB)

	first, err := sequences.Next(s.ctx, "registration")
	s.Require().NoError(err)
	s.Equal(int64(1), first)

	const draws = 50
	var wg sync.WaitGroup
	values := make(chan int64, draws)
	for i := 0; i < draws; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := sequences.Next(s.ctx, "registration")
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
}
