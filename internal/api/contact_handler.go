package api

import (
	"context"
	"net/http"

	"raccoon/internal/entities"
)

// ContactSender relays contact form messages.
type ContactSender interface {
	SendContactEmail(ctx context.Context, msg entities.ContactMessage) error
}

type ContactHandler struct {
	Sender ContactSender
}

func NewContactHandler(sender ContactSender) *ContactHandler {
	return &ContactHandler{Sender: sender}
}

func (h *ContactHandler) SendContact(w http.ResponseWriter, r *http.Request) {
	var msg entities.ContactMessage
	if err := decodeBody(w, r, &msg); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(msg); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Sender.SendContactEmail(r.Context(), msg); err != nil {
		requestLogger(r).WithError(err).Error("Failed to relay contact message")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "sent"})
}
