package models

import "time"

type OutingAction string

const (
	ActionRegistered   OutingAction = "registered"
	ActionUnregistered OutingAction = "unregistered"
	ActionPublished    OutingAction = "published"
	ActionCancelled    OutingAction = "cancelled"
	ActionReminder     OutingAction = "reminder"
)

// OutingMessage is published to the broker after a command commits or when a
// reminder is due.
type OutingMessage struct {
	MessageID  string       `json:"message_id"`
	Action     OutingAction `json:"action"`
	OutingID   uint         `json:"outing_id"`
	UserID     uint         `json:"user_id,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// RoutingKey returns the topic routing key for the message, e.g. "outing.cancelled".
func (m OutingMessage) RoutingKey() string {
	return "outing." + string(m.Action)
}

type Notification struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MessageID string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_notification_message_user" json:"message_id"`
	UserID    uint         `gorm:"not null;index;uniqueIndex:idx_notification_message_user" json:"user_id"`
	OutingID  uint         `gorm:"not null;index" json:"outing_id"`
	Action    OutingAction `gorm:"type:varchar(20);not null" json:"action"`
	Body      string       `gorm:"type:text" json:"body"`
	CreatedAt time.Time    `gorm:"autoCreateTime:false" json:"created_at"`
}
