package entities

import "raccoon/internal/db"

// ReservationsPage is the envelope returned by the admin listing.
type ReservationsPage struct {
	Data    []db.Reservation `json:"data"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}
