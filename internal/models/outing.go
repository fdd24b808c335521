package models

import (
	"time"

	"github.com/Eursukkul/outing-service/internal/lifecycle"
)

type Outing struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"not null" json:"name"`
	Description          string          `gorm:"type:text" json:"description"`
	StartAt              time.Time       `gorm:"not null;index" json:"start_at"`
	DurationMinutes      int             `gorm:"not null" json:"duration_minutes"`
	RegistrationDeadline time.Time       `gorm:"not null" json:"registration_deadline"`
	MaxRegistration      int             `gorm:"not null" json:"max_registration"`
	State                lifecycle.State `gorm:"type:varchar(20);not null;default:'CREATED';index" json:"state"`
	OrganizerID          uint            `gorm:"not null;index" json:"organizer_id"`
	Version              int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time       `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`

	Participants []Participation `gorm:"foreignKey:OutingID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
}

// Participation links a user to an outing they registered for.
type Participation struct {
	OutingID     uint      `gorm:"primaryKey" json:"outing_id"`
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	RegisteredAt time.Time `gorm:"not null" json:"registered_at"`
}

func (Participation) TableName() string {
	return "outing_participants"
}

func (o *Outing) EndAt() time.Time {
	return lifecycle.EndTime(o.StartAt, o.DurationMinutes)
}

func (o *Outing) ArchiveAt() time.Time {
	return lifecycle.ArchiveTime(o.EndAt())
}

// NaturalState is the state the outing should be in at now, ignoring who asks.
func (o *Outing) NaturalState(now time.Time) lifecycle.State {
	return lifecycle.DeriveState(o.State, now, o.StartAt, o.EndAt(), o.RegistrationDeadline, o.ArchiveAt())
}

func (o *Outing) IsOrganizer(userID uint) bool {
	return o.OrganizerID == userID
}

func (o *Outing) HasParticipant(userID uint) bool {
	for _, p := range o.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (o *Outing) IsFull() bool {
	return len(o.Participants) >= o.MaxRegistration
}

// ParticipantIDs returns the registered user ids in registration order.
func (o *Outing) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(o.Participants))
	for _, p := range o.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// RemoveParticipant drops userID from the in-memory participant list.
func (o *Outing) RemoveParticipant(userID uint) bool {
	for i, p := range o.Participants {
		if p.UserID == userID {
			o.Participants = append(o.Participants[:i], o.Participants[i+1:]...)
			return true
		}
	}
	return false
}
