//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	donationmodels "givebridge/internal/donation/models"
	donationstore "givebridge/internal/donation/store"
	matchmodels "givebridge/internal/match/models"
	matchstore "givebridge/internal/match/store"
	"givebridge/internal/rating/models"
	"givebridge/internal/rating/store"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/testutil/containers"
)

type RatingStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.Postgres
	matches   *matchstore.Postgres
	donations *donationstore.Postgres
}

func TestRatingStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RatingStoreSuite))
}

func (s *RatingStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.matches = matchstore.NewPostgres(s.postgres.DB)
	s.donations = donationstore.NewPostgres(s.postgres.DB)
}

func (s *RatingStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "ratings", "matches", "donations")
	s.Require().NoError(err)
}

// seedCompletedMatch persists a donation and drives its match to completed so
// ratings can reference it.
func (s *RatingStoreSuite) seedCompletedMatch() *matchmodels.Match {
	ctx := context.Background()
	now := time.Now().UTC()
	donation := &donationmodels.Donation{
		ID:          id.NewDonationID(),
		DonorID:     id.NewUserID(),
		Category:    "books",
		Description: "a shelf of paperbacks",
		Status:      donationmodels.StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.donations.Create(ctx, donation))

	match := &matchmodels.Match{
		ID:          id.NewMatchID(),
		DonationID:  donation.ID,
		DonorID:     donation.DonorID,
		RecipientID: id.NewUserID(),
		Status:      matchmodels.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.matches.CreateIfUnclaimed(ctx, match))
	_, err := s.matches.Transition(ctx, match.ID, matchmodels.StatusPending, matchmodels.StatusAccepted)
	s.Require().NoError(err)
	_, err = s.matches.Confirm(ctx, match.ID, id.RoleDonor)
	s.Require().NoError(err)
	completed, err := s.matches.Confirm(ctx, match.ID, id.RoleRecipient)
	s.Require().NoError(err)
	return completed
}

func newRating(match *matchmodels.Match, raterID, rateeID id.UserID, score int) models.Rating {
	return models.Rating{
		ID:        id.NewRatingID(),
		MatchID:   match.ID,
		RaterID:   raterID,
		RateeID:   rateeID,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}
}

// TestDuplicateRating verifies the unique constraint admits exactly one
// rating per (match, rater) under concurrency.
func (s *RatingStoreSuite) TestDuplicateRating() {
	ctx := context.Background()
	match := s.seedCompletedMatch()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.Create(ctx, newRating(match, match.RecipientID, match.DonorID, 5))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *RatingStoreSuite) TestAverageFor() {
	ctx := context.Background()

	first := s.seedCompletedMatch()
	second := s.seedCompletedMatch()
	// Two ratings about two different donors; aggregate one of them.
	s.Require().NoError(s.store.Create(ctx, newRating(first, first.RecipientID, first.DonorID, 2)))
	s.Require().NoError(s.store.Create(ctx, newRating(second, second.RecipientID, second.DonorID, 4)))
	s.Require().NoError(s.store.Create(ctx, newRating(first, first.DonorID, first.RecipientID, 5)))

	average, count, err := s.store.AverageFor(ctx, first.DonorID)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.InDelta(2.0, average, 0.001)

	average, count, err = s.store.AverageFor(ctx, id.NewUserID())
	s.Require().NoError(err)
	s.Zero(count)
	s.Zero(average)
}

func (s *RatingStoreSuite) TestListForRatee() {
	ctx := context.Background()
	match := s.seedCompletedMatch()
	comment := "prompt and friendly"
	rating := newRating(match, match.RecipientID, match.DonorID, 4)
	rating.Comment = &comment
	s.Require().NoError(s.store.Create(ctx, rating))

	listed, err := s.store.ListForRatee(ctx, match.DonorID, 10)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(4, listed[0].Score)
	s.Require().NotNil(listed[0].Comment)
	s.Equal(comment, *listed[0].Comment)
}
