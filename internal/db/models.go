package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined, StatusCompleted:
		return true
	}
	return false
}

// DefaultPlanLabel is shown wherever a reservation carries no plan.
const DefaultPlanLabel = "Потребителски"

// Date and Time are kept in their wire form (YYYY-MM-DD, HH:MM); the
// columns are DATE and TIME and are formatted on the way out.
type Reservation struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	Phone        string         `db:"phone" json:"phone"`
	Address      string         `db:"address" json:"address"`
	Info         *string        `db:"info" json:"info"`
	FlatType     string         `db:"flat_type" json:"flat_type"`
	Subscription string         `db:"subscription" json:"subscription"`
	Plan         *string        `db:"plan" json:"plan"`
	Activities   pq.StringArray `db:"activities" json:"activities"`
	TotalPrice   int            `db:"total_price" json:"total_price"`
	Date         string         `db:"date" json:"date"`
	Time         string         `db:"time" json:"time"`
	ServiceType  string         `db:"service_type" json:"service_type"`
	Status       Status         `db:"status" json:"status"`
	Notes        *string        `db:"notes" json:"notes"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// PlanLabel returns the plan name, or DefaultPlanLabel when none was chosen.
func (r *Reservation) PlanLabel() string {
	if r.Plan == nil || *r.Plan == "" {
		return DefaultPlanLabel
	}
	return *r.Plan
}

// Normalize substitutes an empty sequence for missing activities.
func (r *Reservation) Normalize() {
	if r.Activities == nil {
		r.Activities = pq.StringArray{}
	}
}

// ReservationPatch is a sparse set of changes. A nil field is left untouched;
// for the nullable columns the Clear* flags write NULL.
type ReservationPatch struct {
	Status    *Status
	Notes     *string
	ClearNote bool
	Name      *string
	Phone     *string
	Address   *string
	Info      *string
	ClearInfo bool
	Date      *string
	Time      *string
}

// Empty reports whether the patch would change nothing.
func (p ReservationPatch) Empty() bool {
	return p.Status == nil && p.Notes == nil && !p.ClearNote &&
		p.Name == nil && p.Phone == nil && p.Address == nil &&
		p.Info == nil && !p.ClearInfo && p.Date == nil && p.Time == nil
}
