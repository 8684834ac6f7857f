package store

import (
	"context"
	"sort"
	"sync"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

// InMemory keeps donations in a map. Used by unit tests and storage-less dev
// runs; the postgres store is the durable implementation.
type InMemory struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*models.Donation
}

func NewInMemory() *InMemory {
	return &InMemory{donations: make(map[id.DonationID]*models.Donation)}
}

func (s *InMemory) Create(_ context.Context, donation *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donations[donation.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *donation
	s.donations[donation.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donationID id.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *donation
	return &copied, nil
}

func (s *InMemory) ListAvailable(_ context.Context) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Donation
	for _, donation := range s.donations {
		if donation.Status == models.StatusAvailable {
			copied := *donation
			result = append(result, &copied)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.UserID) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Donation
	for _, donation := range s.donations {
		if donation.DonorID == ownerID {
			copied := *donation
			result = append(result, &copied)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// MarkRequested moves available -> requested and records the claimant.
// Called when the donor accepts a match.
func (s *InMemory) MarkRequested(_ context.Context, donationID id.DonationID, claimantID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if donation.Status != models.StatusAvailable {
		return sentinel.ErrInvalidState
	}
	donation.Status = models.StatusRequested
	claimant := claimantID
	donation.ClaimantID = &claimant
	return nil
}

// MarkDonated moves requested -> donated. Called when the match completes.
func (s *InMemory) MarkDonated(_ context.Context, donationID id.DonationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if donation.Status != models.StatusRequested {
		return sentinel.ErrInvalidState
	}
	donation.Status = models.StatusDonated
	return nil
}

// SetReview writes the claimant's one-time review. ErrInvalidState when the
// donation has not been handed over, ErrConflict when a review already exists.
func (s *InMemory) SetReview(_ context.Context, donationID id.DonationID, review string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if donation.Status != models.StatusDonated {
		return sentinel.ErrInvalidState
	}
	if donation.Review != nil {
		return sentinel.ErrConflict
	}
	donation.Review = &review
	return nil
}

func sortNewestFirst(donations []*models.Donation) {
	sort.Slice(donations, func(i, j int) bool {
		return donations[i].CreatedAt.After(donations[j].CreatedAt)
	})
}
