package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givebridge/internal/platform/middleware"
	"givebridge/internal/rating/models"
	"givebridge/internal/transport/http/shared"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

// Service defines the rating operations the handler exposes.
type Service interface {
	Rate(ctx context.Context, matchID id.MatchID, raterID id.UserID, score int, comment string) (*models.Rating, error)
	SummaryFor(ctx context.Context, userID id.UserID) (*models.Summary, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register mounts the rating routes. The caller applies auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/matches/{matchID}/ratings", h.handleRate)
	r.Get("/users/{userID}/rating", h.handleSummary)
}

type rateRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

type ratingResponse struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	RaterID   string    `json:"rater_id"`
	RatedID   string    `json:"rated_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type summaryResponse struct {
	UserID    string           `json:"user_id"`
	Average   float64          `json:"average"`
	Count     int              `json:"count"`
	Donations int              `json:"donations"`
	Recent    []ratingResponse `json:"recent"`
}

func (h *Handler) handleRate(w http.ResponseWriter, r *http.Request) {
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

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	rating, err := h.service.Rate(ctx, matchID, caller.UserID, req.Score, req.Comment)
	if err != nil {
		h.logger.WarnContext(ctx, "rating failed",
			"request_id", middleware.GetRequestID(ctx),
			"match_id", matchID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toRatingResponse(*rating))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	summary, err := h.service.SummaryFor(ctx, userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := summaryResponse{
		UserID:    summary.UserID.String(),
		Average:   summary.Average,
		Count:     summary.Count,
		Donations: summary.Donations,
		Recent:    make([]ratingResponse, 0, len(summary.Recent)),
	}
	for _, rating := range summary.Recent {
		resp.Recent = append(resp.Recent, toRatingResponse(rating))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func toRatingResponse(rating models.Rating) ratingResponse {
	return ratingResponse{
		ID:        rating.ID.String(),
		MatchID:   rating.MatchID.String(),
		RaterID:   rating.RaterID.String(),
		RatedID:   rating.RateeID.String(),
		Score:     rating.Score,
		Comment:   rating.Comment,
		CreatedAt: rating.CreatedAt,
	}
}
