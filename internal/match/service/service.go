package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	donationmodels "givebridge/internal/donation/models"
	"givebridge/internal/match/models"
	"givebridge/internal/platform/metrics"
	"givebridge/internal/platform/middleware"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/audit"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

// Store persists matches. CreateIfUnclaimed must be atomic with respect to
// concurrent claims on the same donation; Confirm must set the party flag and
// complete the match in one step when both flags are set.
type Store interface {
	CreateIfUnclaimed(ctx context.Context, match *models.Match) error
	FindByID(ctx context.Context, matchID id.MatchID) (*models.Match, error)
	Transition(ctx context.Context, matchID id.MatchID, from, to models.Status) (*models.Match, error)
	Confirm(ctx context.Context, matchID id.MatchID, party id.Role) (*models.Match, error)
	ListByUser(ctx context.Context, userID id.UserID, role id.Role) ([]*models.Match, error)
}

// DonationStore is the slice of donation persistence the lifecycle needs.
// Donation status only ever moves here, as a consequence of match transitions.
type DonationStore interface {
	FindByID(ctx context.Context, donationID id.DonationID) (*donationmodels.Donation, error)
	MarkRequested(ctx context.Context, donationID id.DonationID, claimantID id.UserID) error
	MarkDonated(ctx context.Context, donationID id.DonationID) error
}

// Notifier appends a notification inside the caller's transaction.
type Notifier interface {
	Emit(ctx context.Context, recipientID id.UserID, message string) error
}

type Service struct {
	store     Store
	donations DonationStore
	notifier  Notifier
	auditor   audit.Store
	runner    txcontext.Runner
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewService(store Store, donations DonationStore, notifier Notifier, auditor audit.Store, runner txcontext.Runner, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		donations: donations,
		notifier:  notifier,
		auditor:   auditor,
		runner:    runner,
		metrics:   m,
		tracer:    otel.Tracer("givebridge/match"),
	}
}

// Claim creates a pending match for the donation on behalf of the recipient.
// Exactly one of any number of concurrent claims succeeds; the donation's
// donor is notified in the same transaction.
func (s *Service) Claim(ctx context.Context, donationID id.DonationID, callerID id.UserID, role id.Role) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "match.Claim")
	defer span.End()

	if role != id.RoleRecipient {
		return nil, dErrors.New(dErrors.CodeForbidden, "only recipients can claim donations")
	}

	match, err := s.claimOnce(ctx, donationID, callerID)
	if errors.Is(err, sentinel.ErrSerialization) {
		// One retry covers the transient case; a second failure means the
		// donation is genuinely contended.
		match, err = s.claimOnce(ctx, donationID, callerID)
		if errors.Is(err, sentinel.ErrSerialization) {
			err = sentinel.ErrConflict
		}
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.ClaimConflicts.Inc()
			return nil, dErrors.New(dErrors.CodeConflict, "donation already claimed")
		}
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim donation")
	}

	s.metrics.ClaimsCreated.Inc()
	return match, nil
}

func (s *Service) claimOnce(ctx context.Context, donationID id.DonationID, callerID id.UserID) (*models.Match, error) {
	var match *models.Match
	err := s.runner.InSerializableTx(ctx, func(ctx context.Context) error {
		donation, err := s.donations.FindByID(ctx, donationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "donation not found")
			}
			return err
		}
		if donation.DonorID == callerID {
			return dErrors.New(dErrors.CodeForbidden, "cannot claim your own donation")
		}
		switch donation.Status {
		case donationmodels.StatusAvailable:
		case donationmodels.StatusRequested:
			return sentinel.ErrConflict
		default:
			return dErrors.New(dErrors.CodeInvalidState, "donation is no longer available")
		}

		now := time.Now().UTC()
		match = &models.Match{
			ID:          id.NewMatchID(),
			DonationID:  donationID,
			DonorID:     donation.DonorID,
			RecipientID: callerID,
			Status:      models.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateIfUnclaimed(ctx, match); err != nil {
			return err
		}
		message := fmt.Sprintf("Your donation %q has a new request", donation.Category)
		if err := s.notifier.Emit(ctx, donation.DonorID, message); err != nil {
			return err
		}
		return s.auditor.Append(ctx, audit.Event{
			Action:     audit.ActionMatchClaimed,
			Timestamp:  now,
			ActorID:    callerID,
			DonationID: donationID.String(),
			MatchID:    match.ID.String(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// Decide records the donor's verdict on a pending match. Accepting moves the
// donation to requested; rejecting frees the donation for new claims.
func (s *Service) Decide(ctx context.Context, matchID id.MatchID, callerID id.UserID, decision models.Decision) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "match.Decide")
	defer span.End()

	var updated *models.Match
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		match, err := s.loadMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match.DonorID != callerID {
			return dErrors.New(dErrors.CodeForbidden, "only the donor can decide on a match")
		}
		if match.Status != models.StatusPending {
			return dErrors.New(dErrors.CodeInvalidState, "match already decided")
		}

		now := time.Now().UTC()
		switch decision {
		case models.DecisionAccept:
			updated, err = s.store.Transition(ctx, matchID, models.StatusPending, models.StatusAccepted)
			if err != nil {
				return s.translateTransition(err)
			}
			if err := s.donations.MarkRequested(ctx, match.DonationID, match.RecipientID); err != nil {
				return err
			}
			if err := s.notifier.Emit(ctx, match.RecipientID, "Your request was accepted"); err != nil {
				return err
			}
			return s.auditor.Append(ctx, audit.Event{
				Action:     audit.ActionMatchAccepted,
				Timestamp:  now,
				ActorID:    callerID,
				DonationID: match.DonationID.String(),
				MatchID:    matchID.String(),
				RequestID:  middleware.GetRequestID(ctx),
			})
		case models.DecisionReject:
			updated, err = s.store.Transition(ctx, matchID, models.StatusPending, models.StatusRejected)
			if err != nil {
				return s.translateTransition(err)
			}
			if err := s.notifier.Emit(ctx, match.RecipientID, "Your request was declined"); err != nil {
				return err
			}
			return s.auditor.Append(ctx, audit.Event{
				Action:     audit.ActionMatchRejected,
				Timestamp:  now,
				ActorID:    callerID,
				DonationID: match.DonationID.String(),
				MatchID:    matchID.String(),
				RequestID:  middleware.GetRequestID(ctx),
			})
		default:
			return dErrors.New(dErrors.CodeInvalidInput, "decision must be accept or reject")
		}
	})
	if err != nil {
		return nil, s.asCoded(err, "failed to decide on match")
	}

	if updated.Status == models.StatusAccepted {
		s.metrics.MatchesAccepted.Inc()
	} else {
		s.metrics.MatchesRejected.Inc()
	}
	return updated, nil
}

// Confirm sets the caller's completion flag on an accepted match. Confirming
// twice is a no-op. When both parties have confirmed, the match completes and
// the donation is marked donated in the same transaction.
func (s *Service) Confirm(ctx context.Context, matchID id.MatchID, callerID id.UserID) (*models.Match, error) {
	ctx, span := s.tracer.Start(ctx, "match.Confirm")
	defer span.End()

	var updated *models.Match
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		match, err := s.loadMatch(ctx, matchID)
		if err != nil {
			return err
		}
		party, ok := match.PartyOf(callerID)
		if !ok {
			return dErrors.New(dErrors.CodeForbidden, "only a party to the match can confirm it")
		}
		if match.Status != models.StatusAccepted {
			if match.Status == models.StatusCompleted && match.CompletedBy(party) {
				// Re-confirming a finished hand-off changes nothing.
				updated = match
				return nil
			}
			return dErrors.New(dErrors.CodeInvalidState, "match is not accepted")
		}
		if match.CompletedBy(party) {
			updated = match
			return nil
		}

		updated, err = s.store.Confirm(ctx, matchID, party)
		if err != nil {
			return s.translateTransition(err)
		}

		now := time.Now().UTC()
		if updated.Status == models.StatusCompleted {
			if err := s.donations.MarkDonated(ctx, match.DonationID); err != nil {
				return err
			}
			for _, recipient := range []id.UserID{updated.DonorID, updated.RecipientID} {
				if err := s.notifier.Emit(ctx, recipient, "Donation hand-off completed"); err != nil {
					return err
				}
			}
			return s.auditor.Append(ctx, audit.Event{
				Action:     audit.ActionMatchCompleted,
				Timestamp:  now,
				ActorID:    callerID,
				DonationID: updated.DonationID.String(),
				MatchID:    matchID.String(),
				RequestID:  middleware.GetRequestID(ctx),
			})
		}

		counterpart := updated.Counterpart(callerID)
		if err := s.notifier.Emit(ctx, counterpart, "The other party confirmed the hand-off"); err != nil {
			return err
		}
		return s.auditor.Append(ctx, audit.Event{
			Action:     audit.ActionMatchConfirmed,
			Timestamp:  now,
			ActorID:    callerID,
			DonationID: updated.DonationID.String(),
			MatchID:    matchID.String(),
			Detail:     string(party),
			RequestID:  middleware.GetRequestID(ctx),
		})
	})
	if err != nil {
		return nil, s.asCoded(err, "failed to confirm match")
	}

	if updated.Status == models.StatusCompleted {
		s.metrics.MatchesCompleted.Inc()
	}
	return updated, nil
}

// Get returns the match when the caller is one of its parties.
func (s *Service) Get(ctx context.Context, matchID id.MatchID, callerID id.UserID) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, s.asCoded(err, "failed to load match")
	}
	if _, ok := match.PartyOf(callerID); !ok {
		return nil, dErrors.New(dErrors.CodeForbidden, "not a party to this match")
	}
	return match, nil
}

// ListForUser returns the caller's matches on their side of the exchange,
// most recent first.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID, role id.Role) ([]*models.Match, error) {
	matches, err := s.store.ListByUser(ctx, userID, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list matches")
	}
	return matches, nil
}

func (s *Service) loadMatch(ctx context.Context, matchID id.MatchID) (*models.Match, error) {
	match, err := s.store.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, err
	}
	return match, nil
}

// translateTransition maps store misses on a conditional update. The match was
// just loaded in the same transaction, so a state miss means a concurrent
// writer got there first.
func (s *Service) translateTransition(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "match not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "match changed concurrently")
	default:
		return err
	}
}

func (s *Service) asCoded(err error, fallback string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, fallback)
}
