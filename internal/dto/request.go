package dto

import (
	"time"

	"github.com/Eursukkul/outing-service/internal/service"
)

type OutingRequest struct {
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	StartAt              time.Time `json:"start_at"`
	DurationMinutes      int       `json:"duration_minutes"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	MaxRegistration      int       `json:"max_registration"`
}

func (r OutingRequest) ToInput() service.OutingInput {
	return service.OutingInput{
		Name:                 r.Name,
		Description:          r.Description,
		StartAt:              r.StartAt,
		DurationMinutes:      r.DurationMinutes,
		RegistrationDeadline: r.RegistrationDeadline,
		MaxRegistration:      r.MaxRegistration,
	}
}

type CancelRequest struct {
	Reason string `json:"reason"`
}
