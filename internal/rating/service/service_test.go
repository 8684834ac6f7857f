package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	donationmodels "givebridge/internal/donation/models"
	donationstore "givebridge/internal/donation/store"
	matchmodels "givebridge/internal/match/models"
	matchstore "givebridge/internal/match/store"
	"givebridge/internal/platform/metrics"
	ratingstore "givebridge/internal/rating/store"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	auditmemory "givebridge/pkg/platform/audit/store/memory"
	txcontext "givebridge/pkg/platform/tx"
)

type RatingServiceSuite struct {
	suite.Suite
	ctx context.Context

	donations *donationstore.InMemory
	matches   *matchstore.InMemory
	ratings   *ratingstore.InMemory
	service   *Service
}

func (s *RatingServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.donations = donationstore.NewInMemory()
	s.matches = matchstore.NewInMemory()
	s.ratings = ratingstore.NewInMemory()
	s.service = NewService(s.ratings, s.matches, s.donations, auditmemory.NewInMemoryStore(), txcontext.NewMemoryRunner(), metrics.NewForTest())
}

func TestRatingServiceSuite(t *testing.T) {
	suite.Run(t, new(RatingServiceSuite))
}

func (s *RatingServiceSuite) seedMatch(status matchmodels.Status) *matchmodels.Match {
	now := time.Now().UTC()
	match := &matchmodels.Match{
		ID:          id.NewMatchID(),
		DonationID:  id.NewDonationID(),
		DonorID:     id.NewUserID(),
		RecipientID: id.NewUserID(),
		Status:      matchmodels.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.matches.CreateIfUnclaimed(s.ctx, match))
	if status == matchmodels.StatusPending {
		return match
	}
	updated, err := s.matches.Transition(s.ctx, match.ID, matchmodels.StatusPending, matchmodels.StatusAccepted)
	s.Require().NoError(err)
	if status == matchmodels.StatusAccepted {
		return updated
	}
	_, err = s.matches.Confirm(s.ctx, match.ID, id.RoleDonor)
	s.Require().NoError(err)
	updated, err = s.matches.Confirm(s.ctx, match.ID, id.RoleRecipient)
	s.Require().NoError(err)
	return updated
}

func (s *RatingServiceSuite) TestRate() {
	s.Run("records a rating for the counterpart of a completed match", func() {
		match := s.seedMatch(matchmodels.StatusCompleted)

		rating, err := s.service.Rate(s.ctx, match.ID, match.RecipientID, 5, "great donor")
		s.Require().NoError(err)
		s.Equal(match.DonorID, rating.RateeID)
		s.Equal(match.RecipientID, rating.RaterID)
		s.Equal(5, rating.Score)
		s.Require().NotNil(rating.Comment)
		s.Equal("great donor", *rating.Comment)
	})

	s.Run("both parties can rate the same match", func() {
		match := s.seedMatch(matchmodels.StatusCompleted)

		_, err := s.service.Rate(s.ctx, match.ID, match.RecipientID, 4, "")
		s.Require().NoError(err)
		rating, err := s.service.Rate(s.ctx, match.ID, match.DonorID, 3, "")
		s.Require().NoError(err)
		s.Equal(match.RecipientID, rating.RateeID)
	})

	s.Run("rejects a match that is not completed", func() {
		for _, status := range []matchmodels.Status{matchmodels.StatusPending, matchmodels.StatusAccepted} {
			match := s.seedMatch(status)
			_, err := s.service.Rate(s.ctx, match.ID, match.RecipientID, 4, "")
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		}
	})

	s.Run("rejects outsiders", func() {
		match := s.seedMatch(matchmodels.StatusCompleted)
		_, err := s.service.Rate(s.ctx, match.ID, id.NewUserID(), 4, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects out-of-range scores", func() {
		match := s.seedMatch(matchmodels.StatusCompleted)
		for _, score := range []int{0, 6, -1} {
			_, err := s.service.Rate(s.ctx, match.ID, match.RecipientID, score, "")
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	s.Run("rejects a duplicate rating and keeps the original", func() {
		match := s.seedMatch(matchmodels.StatusCompleted)
		original, err := s.service.Rate(s.ctx, match.ID, match.RecipientID, 5, "")
		s.Require().NoError(err)

		_, err = s.service.Rate(s.ctx, match.ID, match.RecipientID, 1, "changed my mind")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		average, count, err := s.service.AverageFor(s.ctx, match.DonorID)
		s.Require().NoError(err)
		s.Equal(1, count)
		s.InDelta(float64(original.Score), average, 0.001)
	})

	s.Run("unknown match is not found", func() {
		_, err := s.service.Rate(s.ctx, id.NewMatchID(), id.NewUserID(), 4, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RatingServiceSuite) TestAverageFor() {
	s.Run("averages over received ratings only", func() {
		donor := id.NewUserID()
		for _, score := range []int{2, 4} {
			now := time.Now().UTC()
			match := &matchmodels.Match{
				ID:          id.NewMatchID(),
				DonationID:  id.NewDonationID(),
				DonorID:     donor,
				RecipientID: id.NewUserID(),
				Status:      matchmodels.StatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			s.Require().NoError(s.matches.CreateIfUnclaimed(s.ctx, match))
			_, err := s.matches.Transition(s.ctx, match.ID, matchmodels.StatusPending, matchmodels.StatusAccepted)
			s.Require().NoError(err)
			_, err = s.matches.Confirm(s.ctx, match.ID, id.RoleDonor)
			s.Require().NoError(err)
			_, err = s.matches.Confirm(s.ctx, match.ID, id.RoleRecipient)
			s.Require().NoError(err)

			_, err = s.service.Rate(s.ctx, match.ID, match.RecipientID, score, "")
			s.Require().NoError(err)
		}

		average, count, err := s.service.AverageFor(s.ctx, donor)
		s.Require().NoError(err)
		s.Equal(2, count)
		s.InDelta(3.0, average, 0.001)
	})

	s.Run("unrated user has zero average and count", func() {
		average, count, err := s.service.AverageFor(s.ctx, id.NewUserID())
		s.Require().NoError(err)
		s.Zero(count)
		s.Zero(average)
	})
}

func (s *RatingServiceSuite) TestSummaryFor() {
	s.Run("combines ratings with donation totals", func() {
		match := s.seedMatch(matchmodels.StatusCompleted)
		_, err := s.service.Rate(s.ctx, match.ID, match.RecipientID, 4, "")
		s.Require().NoError(err)

		s.Require().NoError(s.donations.Create(s.ctx, &donationmodels.Donation{
			ID:          id.NewDonationID(),
			DonorID:     match.DonorID,
			Category:    "books",
			Description: "a box of novels",
			Status:      donationmodels.StatusAvailable,
		}))

		summary, err := s.service.SummaryFor(s.ctx, match.DonorID)
		s.Require().NoError(err)
		s.Equal(1, summary.Count)
		s.InDelta(4.0, summary.Average, 0.001)
		s.Equal(1, summary.Donations)
		s.Require().Len(summary.Recent, 1)
		s.Equal(4, summary.Recent[0].Score)
	})
}
