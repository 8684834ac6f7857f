package store

import (
	"context"
	"sort"
	"sync"

	"givebridge/internal/match/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

// InMemory keeps matches in a map guarded by one mutex, so the check-then-
// insert in CreateIfUnclaimed is atomic the same way the postgres partial
// unique index makes it atomic.
type InMemory struct {
	mu      sync.RWMutex
	matches map[id.MatchID]*models.Match
}

func NewInMemory() *InMemory {
	return &InMemory{matches: make(map[id.MatchID]*models.Match)}
}

// CreateIfUnclaimed inserts the match only when its donation has no pending
// or accepted match. ErrConflict otherwise; exactly one concurrent claim wins.
func (s *InMemory) CreateIfUnclaimed(_ context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.matches {
		if existing.DonationID == match.DonationID && existing.Status.IsActive() {
			return sentinel.ErrConflict
		}
	}
	copied := *match
	s.matches[match.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, matchID id.MatchID) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[matchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *match
	return &copied, nil
}

func (s *InMemory) FindActiveByDonation(_ context.Context, donationID id.DonationID) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, match := range s.matches {
		if match.DonationID == donationID && match.Status.IsActive() {
			copied := *match
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Transition moves the match from one status to another only if it currently
// holds the expected status. ErrInvalidState otherwise.
func (s *InMemory) Transition(_ context.Context, matchID id.MatchID, from, to models.Status) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[matchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if match.Status != from {
		return nil, sentinel.ErrInvalidState
	}
	match.Status = to
	copied := *match
	return &copied, nil
}

// Confirm sets the party's completion flag on an accepted match and, when
// both flags are set, completes the match in the same step. This keeps
// "completed iff both confirmed" atomic.
func (s *InMemory) Confirm(_ context.Context, matchID id.MatchID, party id.Role) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[matchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if match.Status != models.StatusAccepted {
		return nil, sentinel.ErrInvalidState
	}
	if party == id.RoleDonor {
		match.DonorCompleted = true
	} else {
		match.RecipientCompleted = true
	}
	if match.DonorCompleted && match.RecipientCompleted {
		match.Status = models.StatusCompleted
	}
	copied := *match
	return &copied, nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID, role id.Role) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Match
	for _, match := range s.matches {
		if (role == id.RoleDonor && match.DonorID == userID) ||
			(role == id.RoleRecipient && match.RecipientID == userID) {
			copied := *match
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
