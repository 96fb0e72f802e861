package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"raccoon/internal/db"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/logger"
	"raccoon/internal/repository"
)

// ReservationStore is the persistence the reservation service depends on.
type ReservationStore interface {
	Create(ctx context.Context, res *db.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*db.Reservation, error)
	List(ctx context.Context, f repository.ReservationFilter, p repository.Page) ([]db.Reservation, int, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch db.ReservationPatch) (*db.Reservation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status db.Status) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenDecoder verifies a decline token and returns the reservation id it names.
type TokenDecoder interface {
	Decode(token string) (uuid.UUID, error)
}

// PostCreateHook runs after a reservation has been committed. Its error is
// logged and never reaches the caller of Create.
type PostCreateHook struct {
	Name string
	Fn   func(ctx context.Context, res db.Reservation) error
}

type ReservationService struct {
	store       ReservationStore
	tokens      TokenDecoder
	hooks       []PostCreateHook
	hookTimeout time.Duration
}

func NewReservationService(store ReservationStore, tokens TokenDecoder, hookTimeout time.Duration, hooks ...PostCreateHook) *ReservationService {
	return &ReservationService{
		store:       store,
		tokens:      tokens,
		hooks:       hooks,
		hookTimeout: hookTimeout,
	}
}

// NotificationHooks returns the chat and requester email hooks, in that order.
func NotificationHooks(sender *SenderService) []PostCreateHook {
	return []PostCreateHook{
		{
			Name: "chat",
			Fn: func(ctx context.Context, res db.Reservation) error {
				return sender.SendChatNotification(ctx, FormatChatMessage(res))
			},
		},
		{
			Name: "email",
			Fn: func(ctx context.Context, res db.Reservation) error {
				return sender.SendReservationEmail(ctx, res.Email, res)
			},
		},
	}
}

// Create persists the reservation and then runs the post-create hooks.
// Only a persistence failure makes Create fail.
func (s *ReservationService) Create(ctx context.Context, res *db.Reservation) (uuid.UUID, error) {
	if err := s.store.Create(ctx, res); err != nil {
		logger.ErrorLogger.WithError(err).Error("Error creating reservation")
		return uuid.Nil, err
	}
	logger.InfoLogger.WithField("reservation_id", res.ID).Info("Reservation created")

	// Hooks outlive a cancelled request but not the timeout.
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range s.hooks {
		s.runHook(hookCtx, hook, *res)
	}
	return res.ID, nil
}

func (s *ReservationService) runHook(ctx context.Context, hook PostCreateHook, res db.Reservation) {
	log := logger.WarnLogger.WithField("reservation_id", res.ID).WithField("hook", hook.Name)
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("Post-create hook panicked: %v", r)
		}
	}()

	if s.hookTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.hookTimeout)
		defer cancel()
	}
	if err := hook.Fn(ctx, res); err != nil {
		log.WithError(err).Warn("Post-create hook failed")
	}
}

// Decline marks the reservation named by token as declined. Declining twice
// succeeds. An unknown reservation is reported as an invalid token.
func (s *ReservationService) Decline(ctx context.Context, token string) (uuid.UUID, error) {
	id, err := s.tokens.Decode(token)
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidToken
	}
	if err := s.store.SetStatus(ctx, id, db.StatusDeclined); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnLogger.WithField("reservation_id", id).Warn("Valid decline token for missing reservation")
			return uuid.Nil, apperrors.ErrInvalidToken
		}
		return uuid.Nil, err
	}
	logger.InfoLogger.WithField("reservation_id", id).Info("Reservation declined by requester")
	return id, nil
}

func (s *ReservationService) List(ctx context.Context, f repository.ReservationFilter, p repository.Page) ([]db.Reservation, int, error) {
	return s.store.List(ctx, f, p)
}

func (s *ReservationService) Get(ctx context.Context, id uuid.UUID) (*db.Reservation, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies an admin patch.
func (s *ReservationService) Update(ctx context.Context, id uuid.UUID, patch db.ReservationPatch) (*db.Reservation, error) {
	if patch.Empty() {
		return nil, apperrors.ErrEmptyUpdate
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewValidationError("status",
			fmt.Sprintf("must be one of pending, confirmed, declined, completed; got %q", *patch.Status))
	}
	res, err := s.store.UpdateFields(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	logger.InfoLogger.WithField("reservation_id", id).Info("Reservation updated")
	return res, nil
}

func (s *ReservationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.InfoLogger.WithField("reservation_id", id).Info("Reservation deleted")
	return nil
}
