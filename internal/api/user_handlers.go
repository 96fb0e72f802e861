package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"raccoon/internal/db"
	"raccoon/internal/entities"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/repository"
)

// ReservationService is what the handlers need from the service layer.
type ReservationService interface {
	Create(ctx context.Context, res *db.Reservation) (uuid.UUID, error)
	Decline(ctx context.Context, token string) (uuid.UUID, error)
	List(ctx context.Context, f repository.ReservationFilter, p repository.Page) ([]db.Reservation, int, error)
	Get(ctx context.Context, id uuid.UUID) (*db.Reservation, error)
	Update(ctx context.Context, id uuid.UUID, patch db.ReservationPatch) (*db.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserReservationHandler struct {
	Service ReservationService
}

func NewUserReservationHandler(svc ReservationService) *UserReservationHandler {
	return &UserReservationHandler{Service: svc}
}

// decodeBody decodes a JSON request body of at most maxRequestBody bytes; a
// malformed or oversized body is a validation failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		if bodyErr := bodyTooLarge(err); bodyErr != nil {
			return bodyErr
		}
		return apperrors.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func bodyTooLarge(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewValidationError("body", fmt.Sprintf("must not exceed %d bytes", tooLarge.Limit))
	}
	return nil
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateReservationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	res := reservationFromRequest(req)
	id, err := h.Service.Create(r.Context(), &res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, StatusResponse{Status: "success", ReservationID: id.String()})
}

func (h *UserReservationHandler) DeclineReservation(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, apperrors.ErrInvalidToken)
		return
	}
	id, err := h.Service.Decline(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: string(db.StatusDeclined), ReservationID: id.String()})
}
