package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	donationmodels "givebridge/internal/donation/models"
	matchmodels "givebridge/internal/match/models"
	"givebridge/internal/platform/metrics"
	"givebridge/internal/platform/middleware"
	"givebridge/internal/rating/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/audit"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

const recentRatingsLimit = 10

// Store persists ratings and serves the read-side aggregation.
type Store interface {
	Create(ctx context.Context, rating models.Rating) error
	AverageFor(ctx context.Context, userID id.UserID) (float64, int, error)
	ListForRatee(ctx context.Context, userID id.UserID, limit int) ([]models.Rating, error)
}

// MatchStore is the read slice of match persistence the rating gate needs.
type MatchStore interface {
	FindByID(ctx context.Context, matchID id.MatchID) (*matchmodels.Match, error)
}

// DonationStore feeds the donation totals of the profile aggregate.
type DonationStore interface {
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*donationmodels.Donation, error)
}

type Service struct {
	store     Store
	matches   MatchStore
	donations DonationStore
	auditor   audit.Store
	runner    txcontext.Runner
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewService(store Store, matches MatchStore, donations DonationStore, auditor audit.Store, runner txcontext.Runner, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		matches:   matches,
		donations: donations,
		auditor:   auditor,
		runner:    runner,
		metrics:   m,
		tracer:    otel.Tracer("givebridge/rating"),
	}
}

// Rate records the rater's score for the other party of a completed match.
// The rated side is always derived from the match, never client-supplied.
func (s *Service) Rate(ctx context.Context, matchID id.MatchID, raterID id.UserID, score int, comment string) (*models.Rating, error) {
	ctx, span := s.tracer.Start(ctx, "rating.Rate")
	defer span.End()

	if score < 1 || score > 5 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "score must be between 1 and 5")
	}

	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match")
	}
	if _, ok := match.PartyOf(raterID); !ok {
		return nil, dErrors.New(dErrors.CodeForbidden, "only a party to the match can rate it")
	}
	if match.Status != matchmodels.StatusCompleted {
		return nil, dErrors.New(dErrors.CodeInvalidState, "match is not completed")
	}

	rating := models.Rating{
		ID:        id.NewRatingID(),
		MatchID:   matchID,
		RaterID:   raterID,
		RateeID:   match.Counterpart(raterID),
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		rating.Comment = &trimmed
	}

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, rating); err != nil {
			return err
		}
		return s.auditor.Append(ctx, audit.Event{
			Action:     audit.ActionRatingSubmitted,
			Timestamp:  rating.CreatedAt,
			ActorID:    raterID,
			DonationID: match.DonationID.String(),
			MatchID:    matchID.String(),
			Detail:     "score recorded",
			RequestID:  middleware.GetRequestID(ctx),
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "already rated")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save rating")
	}

	s.metrics.RatingsSubmitted.Inc()
	return &rating, nil
}

// AverageFor computes the caller-visible rating aggregate on demand.
func (s *Service) AverageFor(ctx context.Context, userID id.UserID) (float64, int, error) {
	average, count, err := s.store.AverageFor(ctx, userID)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate ratings")
	}
	return average, count, nil
}

// SummaryFor assembles the profile aggregate: the rating average, the most
// recent ratings, and how many donations the user has published.
func (s *Service) SummaryFor(ctx context.Context, userID id.UserID) (*models.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "rating.SummaryFor")
	defer span.End()

	summary := models.Summary{UserID: userID}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		average, count, err := s.store.AverageFor(groupCtx, userID)
		if err != nil {
			return err
		}
		summary.Average = average
		summary.Count = count
		return nil
	})
	group.Go(func() error {
		recent, err := s.store.ListForRatee(groupCtx, userID, recentRatingsLimit)
		if err != nil {
			return err
		}
		summary.Recent = recent
		return nil
	})
	group.Go(func() error {
		donations, err := s.donations.ListByOwner(groupCtx, userID)
		if err != nil {
			return err
		}
		summary.Donations = len(donations)
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build profile")
	}
	return &summary, nil
}
