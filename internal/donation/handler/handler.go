package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givebridge/internal/donation/models"
	"givebridge/internal/donation/service"
	"givebridge/internal/platform/middleware"
	"givebridge/internal/transport/http/shared"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

// Service defines the donation operations the handler exposes.
type Service interface {
	Publish(ctx context.Context, donorID id.UserID, role id.Role, input service.PublishInput) (*models.Donation, error)
	Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	ListAvailable(ctx context.Context) ([]*models.Donation, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Donation, error)
	LeaveReview(ctx context.Context, donationID id.DonationID, callerID id.UserID, review string) (*models.Donation, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register mounts the donation routes. The caller applies auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donations", h.handlePublish)
	r.Get("/donations", h.handleList)
	r.Get("/donations/{donationID}", h.handleGet)
	r.Post("/donations/{donationID}/review", h.handleReview)
}

type publishRequest struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	MediaRef    *string `json:"media_ref,omitempty"`
}

type reviewRequest struct {
	Review string `json:"review"`
}

type donationResponse struct {
	ID          string    `json:"id"`
	DonorID     string    `json:"donor_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	ClaimantID  *string   `json:"claimant_id,omitempty"`
	Review      *string   `json:"review,omitempty"`
	MediaRef    *string   `json:"media_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	donation, err := h.service.Publish(ctx, caller.UserID, caller.Role, service.PublishInput{
		Category:    req.Category,
		Description: req.Description,
		MediaRef:    req.MediaRef,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "publish donation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toDonationResponse(donation))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// ?mine=true narrows the listing to the caller's own donations.
	if r.URL.Query().Get("mine") == "true" {
		caller, ok := middleware.GetCaller(ctx)
		if !ok {
			shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		donations, err := h.service.ListByOwner(ctx, caller.UserID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, toDonationResponses(donations))
		return
	}

	donations, err := h.service.ListAvailable(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDonationResponses(donations))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donationID, err := id.ParseDonationID(chi.URLParam(r, "donationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	donation, err := h.service.Get(ctx, donationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDonationResponse(donation))
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
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

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	donation, err := h.service.LeaveReview(ctx, donationID, caller.UserID, req.Review)
	if err != nil {
		h.logger.WarnContext(ctx, "leave review failed",
			"request_id", middleware.GetRequestID(ctx),
			"donation_id", donationID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDonationResponse(donation))
}

func toDonationResponse(donation *models.Donation) donationResponse {
	resp := donationResponse{
		ID:          donation.ID.String(),
		DonorID:     donation.DonorID.String(),
		Category:    donation.Category,
		Description: donation.Description,
		Status:      string(donation.Status),
		Review:      donation.Review,
		MediaRef:    donation.MediaRef,
		CreatedAt:   donation.CreatedAt,
		UpdatedAt:   donation.UpdatedAt,
	}
	if donation.ClaimantID != nil {
		claimant := donation.ClaimantID.String()
		resp.ClaimantID = &claimant
	}
	return resp
}

func toDonationResponses(donations []*models.Donation) []donationResponse {
	responses := make([]donationResponse, 0, len(donations))
	for _, donation := range donations {
		responses = append(responses, toDonationResponse(donation))
	}
	return responses
}
