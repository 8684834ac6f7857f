package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givebridge/internal/match/models"
	"givebridge/internal/platform/middleware"
	"givebridge/internal/transport/http/shared"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

// Service defines the match lifecycle operations the handler exposes.
type Service interface {
	Claim(ctx context.Context, donationID id.DonationID, callerID id.UserID, role id.Role) (*models.Match, error)
	Decide(ctx context.Context, matchID id.MatchID, callerID id.UserID, decision models.Decision) (*models.Match, error)
	Confirm(ctx context.Context, matchID id.MatchID, callerID id.UserID) (*models.Match, error)
	Get(ctx context.Context, matchID id.MatchID, callerID id.UserID) (*models.Match, error)
	ListForUser(ctx context.Context, userID id.UserID, role id.Role) ([]*models.Match, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register mounts the match routes. The caller applies auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donations/{donationID}/claims", h.handleClaim)
	r.Post("/matches/{matchID}/decision", h.handleDecide)
	r.Post("/matches/{matchID}/confirm", h.handleConfirm)
	r.Get("/matches/{matchID}", h.handleGet)
	r.Get("/matches", h.handleList)
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type matchResponse struct {
	ID                 string    `json:"id"`
	DonationID         string    `json:"donation_id"`
	DonorID            string    `json:"donor_id"`
	RecipientID        string    `json:"recipient_id"`
	Status             string    `json:"status"`
	DonorCompleted     bool      `json:"donor_completed"`
	RecipientCompleted bool      `json:"recipient_completed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	donationID, err := id.ParseDonationID(chi.URLParam(r, "donationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	match, err := h.service.Claim(ctx, donationID, caller.UserID, caller.Role)
	if err != nil {
		h.logger.WarnContext(ctx, "claim failed",
			"request_id", middleware.GetRequestID(ctx),
			"donation_id", donationID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toMatchResponse(match))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	matchID, err := id.ParseMatchID(chi.URLParam(r, "matchID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "decision must be accept or reject"))
		return
	}

	match, err := h.service.Decide(ctx, matchID, caller.UserID, decision)
	if err != nil {
		h.logger.WarnContext(ctx, "decision failed",
			"request_id", middleware.GetRequestID(ctx),
			"match_id", matchID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMatchResponse(match))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	matchID, err := id.ParseMatchID(chi.URLParam(r, "matchID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	match, err := h.service.Confirm(ctx, matchID, caller.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "confirm failed",
			"request_id", middleware.GetRequestID(ctx),
			"match_id", matchID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMatchResponse(match))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	matchID, err := id.ParseMatchID(chi.URLParam(r, "matchID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	match, err := h.service.Get(ctx, matchID, caller.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toMatchResponse(match))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	matches, err := h.service.ListForUser(ctx, caller.UserID, caller.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	responses := make([]matchResponse, 0, len(matches))
	for _, match := range matches {
		responses = append(responses, toMatchResponse(match))
	}
	shared.WriteJSON(w, http.StatusOK, responses)
}

func toMatchResponse(match *models.Match) matchResponse {
	return matchResponse{
		ID:                 match.ID.String(),
		DonationID:         match.DonationID.String(),
		DonorID:            match.DonorID.String(),
		RecipientID:        match.RecipientID.String(),
		Status:             string(match.Status),
		DonorCompleted:     match.DonorCompleted,
		RecipientCompleted: match.RecipientCompleted,
		CreatedAt:          match.CreatedAt,
		UpdatedAt:          match.UpdatedAt,
	}
}
