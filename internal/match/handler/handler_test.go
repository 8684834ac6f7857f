package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"givebridge/internal/match/handler/mocks"
	"givebridge/internal/match/models"
	"givebridge/internal/platform/middleware"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/match-mocks.go -package=mocks Service
type MatchHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *MatchHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestMatchHandlerSuite(t *testing.T) {
	suite.Run(t, new(MatchHandlerSuite))
}

func (s *MatchHandlerSuite) newRouter(service Service) chi.Router {
	r := chi.NewRouter()
	New(service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func (s *MatchHandlerSuite) doAs(router http.Handler, caller middleware.Caller, method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithCaller(req.Context(), caller))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleMatch(donor, recipient id.UserID) *models.Match {
	now := time.Now().UTC()
	return &models.Match{
		ID:          id.NewMatchID(),
		DonationID:  id.NewDonationID(),
		DonorID:     donor,
		RecipientID: recipient,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *MatchHandlerSuite) TestClaim() {
	s.Run("returns 201 with the created match", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		recipient := id.NewUserID()
		match := sampleMatch(id.NewUserID(), recipient)
		caller := middleware.Caller{UserID: recipient, Role: id.RoleRecipient}

		service.EXPECT().
			Claim(gomock.Any(), match.DonationID, recipient, id.RoleRecipient).
			Return(match, nil)

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/donations/"+match.DonationID.String()+"/claims", nil)

		s.Equal(http.StatusCreated, rec.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(match.ID.String(), body["id"])
		s.Equal("pending", body["status"])
	})

	s.Run("maps conflict to 409", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		caller := middleware.Caller{UserID: id.NewUserID(), Role: id.RoleRecipient}
		donationID := id.NewDonationID()

		service.EXPECT().
			Claim(gomock.Any(), donationID, caller.UserID, id.RoleRecipient).
			Return(nil, dErrors.New(dErrors.CodeConflict, "donation already claimed"))

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/donations/"+donationID.String()+"/claims", nil)

		s.Equal(http.StatusConflict, rec.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal("conflict", body["error"])
	})

	s.Run("rejects a malformed donation id", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		caller := middleware.Caller{UserID: id.NewUserID(), Role: id.RoleRecipient}

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/donations/not-a-uuid/claims", nil)

		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *MatchHandlerSuite) TestDecide() {
	s.Run("passes the parsed decision to the service", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		donor := id.NewUserID()
		match := sampleMatch(donor, id.NewUserID())
		match.Status = models.StatusAccepted
		caller := middleware.Caller{UserID: donor, Role: id.RoleDonor}

		service.EXPECT().
			Decide(gomock.Any(), match.ID, donor, models.DecisionAccept).
			Return(match, nil)

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/matches/"+match.ID.String()+"/decision",
			map[string]string{"decision": "accept"})

		s.Equal(http.StatusOK, rec.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal("accepted", body["status"])
	})

	s.Run("rejects an unknown decision without calling the service", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		caller := middleware.Caller{UserID: id.NewUserID(), Role: id.RoleDonor}

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/matches/"+id.NewMatchID().String()+"/decision",
			map[string]string{"decision": "maybe"})

		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("maps invalid state to 422", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		caller := middleware.Caller{UserID: id.NewUserID(), Role: id.RoleDonor}
		matchID := id.NewMatchID()

		service.EXPECT().
			Decide(gomock.Any(), matchID, caller.UserID, models.DecisionReject).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "match already decided"))

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/matches/"+matchID.String()+"/decision",
			map[string]string{"decision": "reject"})

		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})
}

func (s *MatchHandlerSuite) TestConfirm() {
	s.Run("returns the updated match", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		donor := id.NewUserID()
		match := sampleMatch(donor, id.NewUserID())
		match.Status = models.StatusCompleted
		match.DonorCompleted = true
		match.RecipientCompleted = true
		caller := middleware.Caller{UserID: donor, Role: id.RoleDonor}

		service.EXPECT().
			Confirm(gomock.Any(), match.ID, donor).
			Return(match, nil)

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodPost, "/matches/"+match.ID.String()+"/confirm", nil)

		s.Equal(http.StatusOK, rec.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal("completed", body["status"])
		s.Equal(true, body["donor_completed"])
	})
}

func (s *MatchHandlerSuite) TestList() {
	s.Run("lists the caller's matches", func() {
		ctrl := gomock.NewController(s.T())
		service := mocks.NewMockService(ctrl)
		recipient := id.NewUserID()
		caller := middleware.Caller{UserID: recipient, Role: id.RoleRecipient}
		matches := []*models.Match{sampleMatch(id.NewUserID(), recipient)}

		service.EXPECT().
			ListForUser(gomock.Any(), recipient, id.RoleRecipient).
			Return(matches, nil)

		router := s.newRouter(service)
		rec := s.doAs(router, caller, http.MethodGet, "/matches", nil)

		s.Equal(http.StatusOK, rec.Code)
		var body []map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Require().Len(body, 1)
		s.Equal(matches[0].ID.String(), body[0]["id"])
	})
}
