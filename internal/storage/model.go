package storage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormRecord persists one event's form schema. Only published forms are
// served to registrants; drafts stay editable.
type FormRecord struct {
	EventID     string         `json:"eventId" gorm:"primaryKey"`
	Title       string         `json:"title"`
	Schema      datatypes.JSON `json:"schema" gorm:"type:jsonb"`
	Published   bool           `json:"published"`
	AutoApprove bool           `json:"autoApprove"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// SubmissionRecord persists one registrant's submission. The composite
// unique index makes repeat registration for the same event idempotent at
// the database level.
type SubmissionRecord struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	EventID     string         `json:"eventId" gorm:"uniqueIndex:idx_event_user"`
	UserID      string         `json:"userId" gorm:"uniqueIndex:idx_event_user"`
	Email       string         `json:"email"`
	Approved    bool           `json:"approved"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	SubmittedAt time.Time      `json:"submittedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// BeforeCreate ensures that a UUID is present for new records.
func (s *SubmissionRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
