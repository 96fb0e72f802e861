package api

import (
	"bytes"
	"encoding/json"

	"raccoon/internal/db"
	"raccoon/internal/entities"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/utils"
)

// StatusResponse is the body of create, decline, delete, contact and health.
type StatusResponse struct {
	Status        string `json:"status"`
	ReservationID string `json:"reservation_id,omitempty"`
}

func reservationFromRequest(req entities.CreateReservationRequest) db.Reservation {
	res := db.Reservation{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Info:         req.Info,
		FlatType:     req.FlatType,
		Subscription: req.Subscription,
		Plan:         req.Plan,
		Activities:   req.Activities,
		Date:         req.Date,
		Time:         req.Time,
		ServiceType:  req.ServiceType,
	}
	if req.TotalPrice != nil {
		res.TotalPrice = *req.TotalPrice
	}
	return res
}

var nullJSON = []byte("null")

// parsePatch reads a PATCH body. Absent keys are left alone; null clears the
// nullable notes and info columns and is rejected elsewhere.
func parsePatch(body []byte) (db.ReservationPatch, error) {
	var patch db.ReservationPatch
	if len(bytes.TrimSpace(body)) == 0 {
		return patch, apperrors.ErrEmptyUpdate
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return patch, apperrors.NewValidationError("body", "must be a JSON object")
	}

	fields := map[string]string{}
	str := func(key string, nullable bool) (*string, bool) {
		v, ok := raw[key]
		if !ok {
			return nil, false
		}
		if bytes.Equal(bytes.TrimSpace(v), nullJSON) {
			if !nullable {
				fields[key] = "cannot be null"
			}
			return nil, nullable
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			fields[key] = "must be a string"
			return nil, false
		}
		return &s, false
	}

	if s, _ := str("status", false); s != nil {
		st := db.Status(*s)
		if !st.Valid() {
			fields["status"] = "must be one of pending, confirmed, declined, completed"
		}
		patch.Status = &st
	}
	patch.Notes, patch.ClearNote = str("notes", true)
	patch.Info, patch.ClearInfo = str("info", true)
	patch.Name, _ = str("name", false)
	patch.Phone, _ = str("phone", false)
	patch.Address, _ = str("address", false)
	patch.Date, _ = str("date", false)
	patch.Time, _ = str("time", false)

	if patch.Name != nil && *patch.Name == "" {
		fields["name"] = "is required"
	}
	if patch.Date != nil && !utils.ValidDate(*patch.Date) {
		fields["date"] = "must be a date in YYYY-MM-DD format"
	}
	if patch.Time != nil && !utils.ValidClock(*patch.Time) {
		fields["time"] = "must be a time in HH:MM format"
	}

	if len(fields) > 0 {
		return patch, &apperrors.ValidationError{Fields: fields}
	}
	if patch.Empty() {
		return patch, apperrors.ErrEmptyUpdate
	}
	return patch, nil
}
