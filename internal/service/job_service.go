package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"raccoon/internal/db"
	"raccoon/internal/logger"
	"raccoon/internal/utils"
)

// JobStore is the slice of the job repository the maintenance job uses.
type JobStore interface {
	GetConfirmedReservationIDsBefore(ctx context.Context, day string) ([]uuid.UUID, error)
	UpdateReservationStatuses(ctx context.Context, ids []uuid.UUID, status db.Status) (int64, error)
}

type JobService struct {
	Repo    JobStore
	timeout time.Duration
	now     func() time.Time
}

func NewJobService(repo JobStore) *JobService {
	return &JobService{Repo: repo, timeout: time.Minute, now: time.Now}
}

// CompleteFinishedReservations marks confirmed reservations whose day has
// passed as completed.
func (s *JobService) CompleteFinishedReservations(ctx context.Context) (int64, error) {
	logger.InfoLogger.Info("Cron Job: checking for reservations to mark as 'completed'")

	today := s.now().UTC().Format(utils.DateLayout)
	ids, err := s.Repo.GetConfirmedReservationIDsBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to get confirmed reservations: %w", err)
	}
	if len(ids) == 0 {
		logger.InfoLogger.Info("Cron Job: no confirmed reservations in the past")
		return 0, nil
	}

	n, err := s.Repo.UpdateReservationStatuses(ctx, ids, db.StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to update reservation statuses: %w", err)
	}
	logger.InfoLogger.Infof("Cron Job: marked %d reservations as 'completed'", n)
	return n, nil
}

// Start schedules the completion job. The caller stops the returned scheduler.
func (s *JobService) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.CompleteFinishedReservations(ctx); err != nil {
			logger.ErrorLogger.WithError(err).Error("Completion job failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid job schedule %q: %w", schedule, err)
	}
	c.Start()
	logger.InfoLogger.Infof("Completion job scheduled: %s", schedule)
	return c, nil
}
