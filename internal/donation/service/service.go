package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"givebridge/internal/donation/models"
	"givebridge/internal/platform/metrics"
	"givebridge/internal/platform/middleware"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/audit"
	"givebridge/pkg/platform/sentinel"
)

// Store is the persistence the donation service needs. Matching code owns the
// status mutations; this service only creates donations, reads them, and
// accepts the claimant's one-time review.
type Store interface {
	Create(ctx context.Context, donation *models.Donation) error
	FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	ListAvailable(ctx context.Context) ([]*models.Donation, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Donation, error)
	SetReview(ctx context.Context, donationID id.DonationID, review string) error
}

// PublishInput carries the donor-supplied fields of a new donation.
type PublishInput struct {
	Category    string
	Description string
	// MediaRef is an opaque reference into the media store; this core never
	// dereferences it.
	MediaRef *string
}

type Service struct {
	store   Store
	auditor audit.Store
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(store Store, auditor audit.Store, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		auditor: auditor,
		metrics: m,
		tracer:  otel.Tracer("givebridge/donation"),
	}
}

// Publish lists a new donation as available. Donor role required.
func (s *Service) Publish(ctx context.Context, donorID id.UserID, role id.Role, input PublishInput) (*models.Donation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.Publish")
	defer span.End()

	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if role != id.RoleDonor {
		return nil, dErrors.New(dErrors.CodeForbidden, "only donors can publish donations")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "category is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "description is required")
	}

	now := time.Now().UTC()
	donation := &models.Donation{
		ID:          id.NewDonationID(),
		DonorID:     donorID,
		Category:    strings.TrimSpace(input.Category),
		Description: strings.TrimSpace(input.Description),
		Status:      models.StatusAvailable,
		MediaRef:    input.MediaRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, donation); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish donation")
	}
	if err := s.auditor.Append(ctx, audit.Event{
		Action:     audit.ActionDonationPublished,
		Timestamp:  now,
		ActorID:    donorID,
		DonationID: donation.ID.String(),
		RequestID:  middleware.GetRequestID(ctx),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish donation")
	}
	s.metrics.DonationsPublished.Inc()
	return donation, nil
}

func (s *Service) Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	donation, err := s.store.FindByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation")
	}
	return donation, nil
}

func (s *Service) ListAvailable(ctx context.Context) ([]*models.Donation, error) {
	donations, err := s.store.ListAvailable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Donation, error) {
	donations, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}

// LeaveReview records the claimant's one-time review text after hand-off.
func (s *Service) LeaveReview(ctx context.Context, donationID id.DonationID, callerID id.UserID, review string) (*models.Donation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.LeaveReview")
	defer span.End()

	if strings.TrimSpace(review) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "review text is required")
	}

	donation, err := s.Get(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.ClaimantID == nil || *donation.ClaimantID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the claimant can review this donation")
	}

	if err := s.store.SetReview(ctx, donationID, strings.TrimSpace(review)); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "donation has not been handed over yet")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "donation already reviewed")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
		}
	}
	if err := s.auditor.Append(ctx, audit.Event{
		Action:     audit.ActionDonationReviewed,
		Timestamp:  time.Now().UTC(),
		ActorID:    callerID,
		DonationID: donationID.String(),
		RequestID:  middleware.GetRequestID(ctx),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
	}
	return s.Get(ctx, donationID)
}
