package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raccoon/internal/db"
	"raccoon/internal/logger"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) PingContext(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitReadyRetriesUntilReady(t *testing.T) {
	logger.Silence()
	p := &flakyPinger{failures: 2}
	require.NoError(t, WaitReady(context.Background(), p, 5, time.Millisecond))
	assert.Equal(t, 3, p.calls)
}

func TestWaitReadyGivesUp(t *testing.T) {
	logger.Silence()
	p := &flakyPinger{failures: 100}
	assert.Error(t, WaitReady(context.Background(), p, 3, time.Millisecond))
	assert.Equal(t, 3, p.calls)
}

func TestCompletePastJobQueries(t *testing.T) {
	logger.Silence()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "sqlmock init")
	defer mockDB.Close()
	repo := NewJobRepository(sqlx.NewDb(mockDB, "postgres"))
	id1, id2 := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM reservations WHERE status = $1 AND date < $2")).
		WithArgs("confirmed", "2025-05-01").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id1.String()).AddRow(id2.String()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = $1 WHERE id = ANY($2::uuid[])")).
		WithArgs("completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ids, err := repo.GetConfirmedReservationIDsBefore(context.Background(), "2025-05-01")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id1, id2}, ids)

	n, err := repo.UpdateReservationStatuses(context.Background(), ids, db.StatusCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
