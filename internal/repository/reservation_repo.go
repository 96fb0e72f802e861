package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"raccoon/internal/db"
	apperrors "raccoon/internal/errors"
)

const reservationColumns = `id, name, email, phone, address, info, flat_type, subscription, plan,
	activities, total_price, to_char(date, 'YYYY-MM-DD') AS date, to_char(time, 'HH24:MI') AS time,
	service_type, status, notes, created_at`

type ReservationRepository struct {
	DB  *sqlx.DB
	now func() time.Time
}

func NewReservationRepository(conn *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{DB: conn, now: time.Now}
}

func persistence(op string, err error) error {
	return &apperrors.PersistenceError{Op: op, Err: err}
}

// Create inserts res as a new pending reservation and fills in the stored values.
func (r *ReservationRepository) Create(ctx context.Context, res *db.Reservation) error {
	res.ID = uuid.New()
	res.Status = db.StatusPending
	res.CreatedAt = r.now().UTC()
	res.Normalize()

	query := `
		INSERT INTO reservations
		(id, name, email, phone, address, info, flat_type, subscription, plan, activities, total_price, date, time, service_type, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + reservationColumns

	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, query,
			res.ID,
			res.Name,
			res.Email,
			res.Phone,
			res.Address,
			res.Info,
			res.FlatType,
			res.Subscription,
			res.Plan,
			res.Activities,
			res.TotalPrice,
			res.Date,
			res.Time,
			res.ServiceType,
			res.Status,
			res.Notes,
			res.CreatedAt,
		).StructScan(res)
	})
	if err != nil {
		return persistence("create reservation", err)
	}
	res.Normalize()
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*db.Reservation, error) {
	var res db.Reservation
	err := r.DB.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, persistence("get reservation", err)
	}
	res.Normalize()
	return &res, nil
}

// List returns one page of reservations matching f, plus the total number of
// matches across all pages.
func (r *ReservationRepository) List(ctx context.Context, f ReservationFilter, p Page) ([]db.Reservation, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}
	where, args, err := f.where()
	if err != nil {
		return nil, 0, err
	}
	order, err := orderBy(p.Sort)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM reservations`+where, args...); err != nil {
		return nil, 0, persistence("count reservations", err)
	}

	idx := len(args) + 1
	query := `SELECT ` + reservationColumns + ` FROM reservations` + where + order +
		" LIMIT $" + strconv.Itoa(idx) + " OFFSET $" + strconv.Itoa(idx+1)
	pageArgs := append(append([]any{}, args...), p.PerPage, p.Offset())

	reservations := []db.Reservation{}
	if err := r.DB.SelectContext(ctx, &reservations, query, pageArgs...); err != nil {
		return nil, 0, persistence("list reservations", err)
	}
	for i := range reservations {
		reservations[i].Normalize()
	}
	return reservations, total, nil
}

// UpdateFields writes only the fields set in patch and returns the updated row.
func (r *ReservationRepository) UpdateFields(ctx context.Context, id uuid.UUID, patch db.ReservationPatch) (*db.Reservation, error) {
	if patch.Empty() {
		return nil, apperrors.ErrEmptyUpdate
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.ClearNote {
		set("notes", nil)
	} else if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Phone != nil {
		set("phone", *patch.Phone)
	}
	if patch.Address != nil {
		set("address", *patch.Address)
	}
	if patch.ClearInfo {
		set("info", nil)
	} else if patch.Info != nil {
		set("info", *patch.Info)
	}
	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Time != nil {
		set("time", *patch.Time)
	}

	args = append(args, id)
	query := `UPDATE reservations SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + reservationColumns

	var res db.Reservation
	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, query, args...).StructScan(&res)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, persistence("update reservation", err)
	}
	res.Normalize()
	return &res, nil
}

// SetStatus changes only the status column.
func (r *ReservationRepository) SetStatus(ctx context.Context, id uuid.UUID, status db.Status) error {
	return r.execOne(ctx, "set reservation status",
		`UPDATE reservations SET status = $1 WHERE id = $2`, status, id)
}

// Delete removes the reservation. Deleting a missing id reports ErrNotFound.
func (r *ReservationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete reservation", `DELETE FROM reservations WHERE id = $1`, id)
}

// execOne runs a statement that must touch exactly one row.
func (r *ReservationRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return err
	default:
		return persistence(op, err)
	}
}
