package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/outing-service/internal/lifecycle"
	"github.com/Eursukkul/outing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStale is returned when the stored version no longer matches the one read.
	ErrStale = errors.New("outing was modified concurrently")
)

type OutingRepository interface {
	// Transaction runs fn with a repository bound to a single database transaction.
	Transaction(ctx context.Context, fn func(repo OutingRepository) error) error

	Create(ctx context.Context, outing *models.Outing) error
	FindByID(ctx context.Context, id uint) (*models.Outing, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Outing, error)
	FindAll(ctx context.Context) ([]models.Outing, error)
	FindNonTerminal(ctx context.Context) ([]models.Outing, error)
	FindStartingBetween(ctx context.Context, from, to time.Time, states []lifecycle.State) ([]models.Outing, error)

	// Save writes every scalar column and bumps the version.
	Save(ctx context.Context, outing *models.Outing) error
	// SaveStates writes the state of each outing in one transaction and returns the
	// outings actually written. Outings whose version moved are skipped.
	SaveStates(ctx context.Context, outings []*models.Outing) ([]*models.Outing, error)

	AddParticipant(ctx context.Context, outingID, userID uint, at time.Time) error
	RemoveParticipant(ctx context.Context, outingID, userID uint) error
	Delete(ctx context.Context, id uint) error
}

type outingRepository struct {
	db *gorm.DB
}

func NewOutingRepository(db *gorm.DB) OutingRepository {
	return &outingRepository{db: db}
}

func (r *outingRepository) Transaction(ctx context.Context, fn func(repo OutingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&outingRepository{db: tx})
	})
}

func (r *outingRepository) Create(ctx context.Context, outing *models.Outing) error {
	if outing.Version == 0 {
		outing.Version = 1
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(outing).Error
}

func (r *outingRepository) FindByID(ctx context.Context, id uint) (*models.Outing, error) {
	var outing models.Outing
	err := r.db.WithContext(ctx).
		Preload("Participants", orderedParticipants).
		First(&outing, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &outing, nil
}

// FindByIDForUpdate acquires a row-level lock on the outing within the current transaction.
func (r *outingRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Outing, error) {
	var outing models.Outing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&outing, id).Error
	if err != nil {
		return nil, notFound(err)
	}

	if err := r.db.WithContext(ctx).
		Where("outing_id = ?", outing.ID).
		Order("registered_at ASC, user_id ASC").
		Find(&outing.Participants).Error; err != nil {
		return nil, err
	}
	return &outing, nil
}

func (r *outingRepository) FindAll(ctx context.Context) ([]models.Outing, error) {
	var outings []models.Outing
	err := r.db.WithContext(ctx).
		Preload("Participants", orderedParticipants).
		Order("start_at ASC, id ASC").
		Find(&outings).Error
	if err != nil {
		return nil, err
	}
	return outings, nil
}

// FindNonTerminal skips cancelled and archived outings: they can never change state.
func (r *outingRepository) FindNonTerminal(ctx context.Context) ([]models.Outing, error) {
	var outings []models.Outing
	err := r.db.WithContext(ctx).
		Where("state NOT IN ?", lifecycle.TerminalStates()).
		Order("id ASC").
		Find(&outings).Error
	if err != nil {
		return nil, err
	}
	return outings, nil
}

func (r *outingRepository) FindStartingBetween(ctx context.Context, from, to time.Time, states []lifecycle.State) ([]models.Outing, error) {
	var outings []models.Outing
	q := r.db.WithContext(ctx).
		Preload("Participants", orderedParticipants).
		Where("start_at >= ? AND start_at < ?", from, to)
	if len(states) > 0 {
		q = q.Where("state IN ?", states)
	}
	if err := q.Order("start_at ASC, id ASC").Find(&outings).Error; err != nil {
		return nil, err
	}
	return outings, nil
}

func (r *outingRepository) Save(ctx context.Context, outing *models.Outing) error {
	res := r.db.WithContext(ctx).
		Model(&models.Outing{}).
		Where("id = ? AND version = ?", outing.ID, outing.Version).
		Updates(map[string]any{
			"name":                  outing.Name,
			"description":           outing.Description,
			"start_at":              outing.StartAt,
			"duration_minutes":      outing.DurationMinutes,
			"registration_deadline": outing.RegistrationDeadline,
			"max_registration":      outing.MaxRegistration,
			"state":                 outing.State,
			"version":               outing.Version + 1,
			"updated_at":            outing.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	outing.Version++
	return nil
}

func (r *outingRepository) SaveStates(ctx context.Context, outings []*models.Outing) ([]*models.Outing, error) {
	if len(outings) == 0 {
		return nil, nil
	}

	var saved []*models.Outing
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		saved = saved[:0]
		for _, o := range outings {
			res := tx.Model(&models.Outing{}).
				Where("id = ? AND version = ?", o.ID, o.Version).
				Updates(map[string]any{
					"state":      o.State,
					"version":    o.Version + 1,
					"updated_at": o.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			saved = append(saved, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, o := range saved {
		o.Version++
	}
	return saved, nil
}

func (r *outingRepository) AddParticipant(ctx context.Context, outingID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Create(&models.Participation{
		OutingID:     outingID,
		UserID:       userID,
		RegisteredAt: at,
	}).Error
}

func (r *outingRepository) RemoveParticipant(ctx context.Context, outingID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("outing_id = ? AND user_id = ?", outingID, userID).
		Delete(&models.Participation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *outingRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("outing_id = ?", id).Delete(&models.Participation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Outing{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func orderedParticipants(db *gorm.DB) *gorm.DB {
	return db.Order("registered_at ASC, user_id ASC")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
