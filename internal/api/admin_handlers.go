package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"raccoon/internal/entities"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/repository"
)

// maxRequestBody caps every JSON request body.
const maxRequestBody = 1 << 20

type AdminHandler struct {
	Service ReservationService
}

func NewAdminHandler(svc ReservationService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidQuery("%s must be an integer", name)
	}
	return n, nil
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perPage, err := intParam(q, "per_page", repository.DefaultPerPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := repository.ReservationFilter{
		Name:         q.Get("name"),
		Status:       q.Get("status"),
		Subscription: q.Get("subscription"),
		ServiceType:  q.Get("service_type"),
		DateFrom:     q.Get("date_from"),
		DateTo:       q.Get("date_to"),
	}
	p := repository.Page{Page: page, PerPage: perPage, Sort: q.Get("sort")}

	reservations, total, err := h.Service.List(r.Context(), filter, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.ReservationsPage{
		Data:    reservations,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// reservationID parses the {id} path segment. A malformed id cannot exist,
// so it is reported as not found.
func reservationID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return id, nil
}

func (h *AdminHandler) AdminGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := reservationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) AdminUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := reservationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		if bodyErr := bodyTooLarge(err); bodyErr != nil {
			writeError(w, r, bodyErr)
			return
		}
		writeError(w, r, apperrors.NewValidationError("body", "could not read request body"))
		return
	}
	patch, err := parsePatch(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) AdminDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := reservationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted", ReservationID: id.String()})
}
