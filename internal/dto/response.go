package dto

import (
	"time"

	"github.com/Eursukkul/outing-service/internal/lifecycle"
	"github.com/Eursukkul/outing-service/internal/models"
)

type OutingResponse struct {
	ID                   uint            `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	StartAt              time.Time       `json:"start_at"`
	EndAt                time.Time       `json:"end_at"`
	DurationMinutes      int             `json:"duration_minutes"`
	RegistrationDeadline time.Time       `json:"registration_deadline"`
	MaxRegistration      int             `json:"max_registration"`
	State                lifecycle.State `json:"state"`
	OrganizerID          uint            `json:"organizer_id"`
	Participants         []uint          `json:"participants"`
	SeatsAvailable       int             `json:"seats_available"`
	Version              int64           `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type NotificationResponse struct {
	ID        string              `json:"id"`
	OutingID  uint                `json:"outing_id"`
	Action    models.OutingAction `json:"action"`
	Body      string              `json:"body"`
	CreatedAt time.Time           `json:"created_at"`
}

type SweepResponse struct {
	Updated int `json:"updated"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func ToOutingResponse(o *models.Outing) OutingResponse {
	return OutingResponse{
		ID:                   o.ID,
		Name:                 o.Name,
		Description:          o.Description,
		StartAt:              o.StartAt,
		EndAt:                o.EndAt(),
		DurationMinutes:      o.DurationMinutes,
		RegistrationDeadline: o.RegistrationDeadline,
		MaxRegistration:      o.MaxRegistration,
		State:                o.State,
		OrganizerID:          o.OrganizerID,
		Participants:         o.ParticipantIDs(),
		SeatsAvailable:       max(o.MaxRegistration-len(o.Participants), 0),
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func ToNotificationResponse(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		OutingID:  n.OutingID,
		Action:    n.Action,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}
