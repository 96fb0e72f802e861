package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"raccoon/internal/db"
	"raccoon/internal/logger"
)

type JobRepository struct {
	DB *sqlx.DB
}

func NewJobRepository(conn *sqlx.DB) *JobRepository {
	return &JobRepository{DB: conn}
}

// GetConfirmedReservationIDsBefore returns confirmed reservations whose service day is before day.
func (r *JobRepository) GetConfirmedReservationIDsBefore(ctx context.Context, day string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT id FROM reservations WHERE status = $1 AND date < $2`
	if err := r.DB.SelectContext(ctx, &ids, query, db.StatusConfirmed, day); err != nil {
		return nil, fmt.Errorf("error querying confirmed reservations before %s: %w", day, err)
	}
	return ids, nil
}

// UpdateReservationStatuses sets status for every id in ids.
func (r *JobRepository) UpdateReservationStatuses(ctx context.Context, ids []uuid.UUID, status db.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	var affected int64
	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = $1 WHERE id = ANY($2::uuid[])`, status, pq.Array(strIDs))
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error updating reservation statuses: %w", err)
	}
	logger.InfoLogger.Infof("Updated status for %d reservations to '%s'", affected, status)
	return affected, nil
}
