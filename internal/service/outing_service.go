package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/lifecycle"
	"github.com/Eursukkul/outing-service/internal/metrics"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the user issuing a command. Admin is decided by the identity
// provider; the service never inspects role names.
type Actor struct {
	UserID uint
	Admin  bool
}

// OutingInput carries the editable attributes of an outing.
type OutingInput struct {
	Name                 string
	Description          string
	StartAt              time.Time
	DurationMinutes      int
	RegistrationDeadline time.Time
	MaxRegistration      int
}

type OutingService interface {
	Create(ctx context.Context, actor Actor, in OutingInput) (*models.Outing, error)
	Get(ctx context.Context, id uint) (*models.Outing, error)
	List(ctx context.Context) ([]models.Outing, error)

	Register(ctx context.Context, id uint, actor Actor) (*models.Outing, error)
	Unregister(ctx context.Context, id uint, actor Actor) (*models.Outing, error)
	Publish(ctx context.Context, id uint, actor Actor) (*models.Outing, error)
	Cancel(ctx context.Context, id uint, actor Actor, reason string) (*models.Outing, error)
	Edit(ctx context.Context, id uint, actor Actor, in OutingInput) (*models.Outing, error)
	Delete(ctx context.Context, id uint, actor Actor) error
}

type outingService struct {
	repo     repository.OutingRepository
	notifier Notifier
	clock    clock.Clock
	updater  *StateUpdater
	logger   *zap.Logger
}

func NewOutingService(repo repository.OutingRepository, notifier Notifier, clk clock.Clock, logger *zap.Logger) OutingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &outingService{
		repo:     repo,
		notifier: notifier,
		clock:    clk,
		updater:  NewStateUpdater(repo, clk, logger),
		logger:   logger,
	}
}

func (s *outingService) Create(ctx context.Context, actor Actor, in OutingInput) (*models.Outing, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in, 0); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	outing := &models.Outing{
		Name:                 in.Name,
		Description:          in.Description,
		StartAt:              in.StartAt,
		DurationMinutes:      in.DurationMinutes,
		RegistrationDeadline: in.RegistrationDeadline,
		MaxRegistration:      in.MaxRegistration,
		State:                lifecycle.StateCreated,
		OrganizerID:          actor.UserID,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Create(ctx, outing); err != nil {
		return nil, infra("create outing", err)
	}
	s.logger.Info("outing created", zap.Uint("outing_id", outing.ID), zap.Uint("organizer_id", actor.UserID))
	return outing, nil
}

// Get returns the outing with its state brought up to date. A failed write of
// the new state is logged and the derived state is still reported.
func (s *outingService) Get(ctx context.Context, id uint) (*models.Outing, error) {
	outing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLoadError(err)
	}
	if _, err := s.updater.UpdateOutingState(ctx, outing); err != nil {
		s.logger.Warn("refresh outing state failed", zap.Uint("outing_id", id), zap.Error(err))
		outing.State = outing.NaturalState(s.clock.Now())
	}
	return outing, nil
}

func (s *outingService) List(ctx context.Context) ([]models.Outing, error) {
	outings, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, infra("list outings", err)
	}
	return outings, nil
}

func (s *outingService) Register(ctx context.Context, id uint, actor Actor) (*models.Outing, error) {
	return s.command(ctx, lifecycle.CommandRegister, id, func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error {
		switch {
		case o.HasParticipant(actor.UserID):
			return ErrAlreadyRegistered
		case o.IsOrganizer(actor.UserID):
			return ErrNotAuthorized
		case !now.Before(o.RegistrationDeadline):
			return ErrRegistrationDeadlinePassed
		case !lifecycle.Allows(lifecycle.CommandRegister, state):
			return ErrEventNotOpen
		case o.IsFull():
			return ErrEventFull
		}

		if err := repo.AddParticipant(ctx, o.ID, actor.UserID, now); err != nil {
			return infra("add participant", err)
		}
		o.Participants = append(o.Participants, models.Participation{OutingID: o.ID, UserID: actor.UserID, RegisteredAt: now})
		return s.persist(ctx, repo, o, state, now)
	}, func(o *models.Outing, now time.Time) *models.OutingMessage {
		return newMessage(models.ActionRegistered, o.ID, actor.UserID, "", now)
	})
}

func (s *outingService) Unregister(ctx context.Context, id uint, actor Actor) (*models.Outing, error) {
	return s.command(ctx, lifecycle.CommandUnregister, id, func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error {
		switch {
		case !o.HasParticipant(actor.UserID):
			return ErrNotRegistered
		case !now.Before(o.StartAt):
			return ErrEventAlreadyStarted
		case !lifecycle.Allows(lifecycle.CommandUnregister, state):
			return ErrInvalidStateForUnregister
		}

		if err := repo.RemoveParticipant(ctx, o.ID, actor.UserID); err != nil {
			return infra("remove participant", err)
		}
		o.RemoveParticipant(actor.UserID)
		return s.persist(ctx, repo, o, state, now)
	}, func(o *models.Outing, now time.Time) *models.OutingMessage {
		return newMessage(models.ActionUnregistered, o.ID, actor.UserID, "", now)
	})
}

func (s *outingService) Publish(ctx context.Context, id uint, actor Actor) (*models.Outing, error) {
	return s.command(ctx, lifecycle.CommandPublish, id, func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error {
		if !o.IsOrganizer(actor.UserID) {
			return ErrNotAuthorized
		}
		if !now.Before(o.RegistrationDeadline) {
			return ErrRegistrationDeadlinePassed
		}
		next, ok := lifecycle.Target(lifecycle.CommandPublish, state)
		if !ok {
			return ErrInvalidStateForPublish
		}
		return s.persist(ctx, repo, o, next, now)
	}, func(o *models.Outing, now time.Time) *models.OutingMessage {
		return newMessage(models.ActionPublished, o.ID, actor.UserID, "", now)
	})
}

func (s *outingService) Cancel(ctx context.Context, id uint, actor Actor, reason string) (*models.Outing, error) {
	reason = strings.TrimSpace(reason)
	return s.command(ctx, lifecycle.CommandCancel, id, func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error {
		if !o.IsOrganizer(actor.UserID) && !actor.Admin {
			return ErrNotAuthorized
		}
		next, ok := lifecycle.Target(lifecycle.CommandCancel, state)
		if !ok {
			return ErrInvalidStateForCancel
		}
		o.Description = CancellationNotice(reason, now) + o.Description
		return s.persist(ctx, repo, o, next, now)
	}, func(o *models.Outing, now time.Time) *models.OutingMessage {
		return newMessage(models.ActionCancelled, o.ID, actor.UserID, reason, now)
	})
}

func (s *outingService) Edit(ctx context.Context, id uint, actor Actor, in OutingInput) (*models.Outing, error) {
	in.Name = strings.TrimSpace(in.Name)
	return s.command(ctx, lifecycle.CommandEdit, id, func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error {
		if !o.IsOrganizer(actor.UserID) {
			return ErrNotAuthorized
		}
		if !lifecycle.Allows(lifecycle.CommandEdit, state) {
			return ErrInvalidStateForEdit
		}
		if err := validateInput(in, len(o.Participants)); err != nil {
			return err
		}

		o.Name = in.Name
		o.Description = in.Description
		o.StartAt = in.StartAt
		o.DurationMinutes = in.DurationMinutes
		o.RegistrationDeadline = in.RegistrationDeadline
		o.MaxRegistration = in.MaxRegistration
		// New dates may move the outing along, or back to OPEN when the deadline moved out.
		return s.persist(ctx, repo, o, o.NaturalState(now), now)
	}, nil)
}

func (s *outingService) Delete(ctx context.Context, id uint, actor Actor) error {
	_, err := s.command(ctx, lifecycle.CommandDelete, id, func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error {
		if !o.IsOrganizer(actor.UserID) && !actor.Admin {
			return ErrNotAuthorized
		}
		if !lifecycle.Allows(lifecycle.CommandDelete, state) {
			return ErrInvalidStateForDelete
		}
		if err := repo.Delete(ctx, o.ID); err != nil {
			return translateSaveError("delete outing", err)
		}
		return nil
	}, nil)
	return err
}

type commandFunc func(repo repository.OutingRepository, o *models.Outing, state lifecycle.State, now time.Time) error

// command loads the outing under a row lock, derives its current state at a
// single instant and runs fn. Nothing is written unless fn succeeds, and the
// notification goes out only after commit.
func (s *outingService) command(ctx context.Context, cmd lifecycle.Command, id uint, fn commandFunc, message func(*models.Outing, time.Time) *models.OutingMessage) (*models.Outing, error) {
	now := s.clock.Now()

	var (
		result *models.Outing
		stored lifecycle.State
	)
	err := s.repo.Transaction(ctx, func(repo repository.OutingRepository) error {
		outing, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateLoadError(err)
		}
		stored = outing.State
		if err := fn(repo, outing, outing.NaturalState(now), now); err != nil {
			return err
		}
		result = outing
		return nil
	})
	if err != nil {
		var ie *InfrastructureError
		if !IsDomainError(err) && !errors.As(err, &ie) {
			err = infra("outing transaction", err)
		}
		s.recordOutcome(cmd, id, err)
		return nil, err
	}
	s.recordOutcome(cmd, id, nil)
	if result.State != stored {
		metrics.RecordTransition(result.State.String(), "command")
	}

	if message != nil {
		msg := message(result, now)
		if nerr := s.notifier.Notify(ctx, *msg); nerr != nil {
			s.logger.Warn("notify outing message failed",
				zap.String("action", string(msg.Action)),
				zap.Uint("outing_id", result.ID),
				zap.Error(nerr),
			)
		}
	}
	return result, nil
}

// persist writes o with next as its state.
func (s *outingService) persist(ctx context.Context, repo repository.OutingRepository, o *models.Outing, next lifecycle.State, now time.Time) error {
	o.State = next
	o.UpdatedAt = now
	if err := repo.Save(ctx, o); err != nil {
		return translateSaveError("save outing", err)
	}
	return nil
}

func (s *outingService) recordOutcome(cmd lifecycle.Command, id uint, err error) {
	switch {
	case err == nil:
		metrics.RecordCommand(string(cmd), "ok")
		s.logger.Info("outing command applied", zap.String("command", string(cmd)), zap.Uint("outing_id", id))
	case IsDomainError(err):
		metrics.RecordCommand(string(cmd), "rejected")
		s.logger.Debug("outing command rejected",
			zap.String("command", string(cmd)),
			zap.Uint("outing_id", id),
			zap.String("kind", Kind(err)),
		)
	default:
		metrics.RecordCommand(string(cmd), "error")
		s.logger.Error("outing command failed", zap.String("command", string(cmd)), zap.Uint("outing_id", id), zap.Error(err))
	}
}

// CancellationNotice is the block prepended to the description of a cancelled outing.
func CancellationNotice(reason string, at time.Time) string {
	if reason == "" {
		reason = "non précisé"
	}
	return fmt.Sprintf("[SORTIE ANNULÉE le %s]\nMotif : %s\n\n", at.Format("02/01/2006 15:04"), reason)
}

func newMessage(action models.OutingAction, outingID, userID uint, reason string, now time.Time) *models.OutingMessage {
	return &models.OutingMessage{
		MessageID:  uuid.NewString(),
		Action:     action,
		OutingID:   outingID,
		UserID:     userID,
		Reason:     reason,
		OccurredAt: now.UTC(),
	}
}

func validateInput(in OutingInput, participants int) error {
	switch {
	case in.Name == "":
		return invalid("name is required")
	case in.StartAt.IsZero():
		return invalid("start_at is required")
	case in.DurationMinutes <= 0:
		return invalid("duration_minutes must be positive")
	case in.MaxRegistration <= 0:
		return invalid("max_registration must be positive")
	case in.MaxRegistration < participants:
		return invalid("max_registration cannot drop below the %d registered participants", participants)
	case in.RegistrationDeadline.IsZero():
		return invalid("registration_deadline is required")
	case !in.RegistrationDeadline.Before(in.StartAt):
		return invalid("registration_deadline must be before start_at")
	}
	return nil
}

func translateLoadError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEventNotFound
	}
	if IsDomainError(err) {
		return err
	}
	return infra("load outing", err)
}

func translateSaveError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrStale):
		return ErrConcurrentUpdate
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	}
	return infra(op, err)
}
