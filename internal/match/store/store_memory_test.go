package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givebridge/internal/match/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

type MatchStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
}

func (s *MatchStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func TestMatchStoreSuite(t *testing.T) {
	suite.Run(t, new(MatchStoreSuite))
}

func newMatch(donationID id.DonationID) *models.Match {
	now := time.Now().UTC()
	return &models.Match{
		ID:          id.NewMatchID(),
		DonationID:  donationID,
		DonorID:     id.NewUserID(),
		RecipientID: id.NewUserID(),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *MatchStoreSuite) TestCreateIfUnclaimed() {
	s.Run("creates when donation has no active match", func() {
		match := newMatch(id.NewDonationID())
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, match))

		found, err := s.store.FindByID(s.ctx, match.ID)
		s.Require().NoError(err)
		s.Equal(match.ID, found.ID)
	})

	s.Run("conflicts while an active match exists", func() {
		donationID := id.NewDonationID()
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, newMatch(donationID)))

		err := s.store.CreateIfUnclaimed(s.ctx, newMatch(donationID))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows a new match after rejection", func() {
		donationID := id.NewDonationID()
		first := newMatch(donationID)
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, first))
		_, err := s.store.Transition(s.ctx, first.ID, models.StatusPending, models.StatusRejected)
		s.Require().NoError(err)

		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, newMatch(donationID)))
	})

	s.Run("exactly one of many concurrent inserts wins", func() {
		donationID := id.NewDonationID()

		const attempts = 50
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.store.CreateIfUnclaimed(s.ctx, newMatch(donationID)); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		s.Equal(1, successes)
	})
}

func (s *MatchStoreSuite) TestTransition() {
	s.Run("moves status when the expected state holds", func() {
		match := newMatch(id.NewDonationID())
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, match))

		updated, err := s.store.Transition(s.ctx, match.ID, models.StatusPending, models.StatusAccepted)
		s.Require().NoError(err)
		s.Equal(models.StatusAccepted, updated.Status)
	})

	s.Run("fails on a state mismatch", func() {
		match := newMatch(id.NewDonationID())
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, match))
		_, err := s.store.Transition(s.ctx, match.ID, models.StatusPending, models.StatusAccepted)
		s.Require().NoError(err)

		_, err = s.store.Transition(s.ctx, match.ID, models.StatusPending, models.StatusRejected)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("fails on a missing match", func() {
		_, err := s.store.Transition(s.ctx, id.NewMatchID(), models.StatusPending, models.StatusAccepted)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MatchStoreSuite) TestConfirm() {
	s.Run("completes only when both flags are set", func() {
		match := newMatch(id.NewDonationID())
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, match))
		_, err := s.store.Transition(s.ctx, match.ID, models.StatusPending, models.StatusAccepted)
		s.Require().NoError(err)

		afterDonor, err := s.store.Confirm(s.ctx, match.ID, id.RoleDonor)
		s.Require().NoError(err)
		s.True(afterDonor.DonorCompleted)
		s.Equal(models.StatusAccepted, afterDonor.Status)

		afterBoth, err := s.store.Confirm(s.ctx, match.ID, id.RoleRecipient)
		s.Require().NoError(err)
		s.True(afterBoth.RecipientCompleted)
		s.Equal(models.StatusCompleted, afterBoth.Status)
	})

	s.Run("rejects confirmation outside accepted state", func() {
		match := newMatch(id.NewDonationID())
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, match))

		_, err := s.store.Confirm(s.ctx, match.ID, id.RoleDonor)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *MatchStoreSuite) TestListByUser() {
	s.Run("filters by the user's side", func() {
		donationID := id.NewDonationID()
		match := newMatch(donationID)
		s.Require().NoError(s.store.CreateIfUnclaimed(s.ctx, match))

		asDonor, err := s.store.ListByUser(s.ctx, match.DonorID, id.RoleDonor)
		s.Require().NoError(err)
		s.Len(asDonor, 1)

		// The donor listed as recipient sees nothing.
		asRecipient, err := s.store.ListByUser(s.ctx, match.DonorID, id.RoleRecipient)
		s.Require().NoError(err)
		s.Empty(asRecipient)
	})
}
