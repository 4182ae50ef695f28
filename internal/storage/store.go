// Package storage persists form schemas and submissions in PostgreSQL via
// GORM. The store implements both the orchestrator's schema source and the
// wizard's persistence collaborator.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/wizard"
)

// ErrFormNotFound is returned when an event has no published form.
var ErrFormNotFound = errors.New("storage: form not found")

// Store provides persistence for forms and submissions.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL and migrates the schema. TranslateError maps
// driver-specific duplicate-key failures onto gorm.ErrDuplicatedKey, which
// the submit path relies on.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing connection and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("storage: db is required")
	}
	if err := db.AutoMigrate(&FormRecord{}, &SubmissionRecord{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// PublishForm validates the schema and stores it as the event's published
// form, replacing any previous version.
func (s *Store) PublishForm(ctx context.Context, schema model.FormSchema, autoApprove bool) error {
	if schema.EventID == "" {
		return errors.New("storage: schema has no event id")
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	record, err := recordFromSchema(schema)
	if err != nil {
		return err
	}
	record.Published = true
	record.AutoApprove = autoApprove

	return s.db.WithContext(ctx).
		Save(record).Error
}

// FormSchema returns the published schema for an event. It implements the
// orchestrator's SchemaSource.
func (s *Store) FormSchema(ctx context.Context, eventID string) (model.FormSchema, error) {
	record, err := s.formRecord(ctx, eventID)
	if err != nil {
		return model.FormSchema{}, err
	}
	return schemaFromRecord(record)
}

// AutoApprove reports whether submissions for an event are approved on
// arrival.
func (s *Store) AutoApprove(ctx context.Context, eventID string) (bool, error) {
	record, err := s.formRecord(ctx, eventID)
	if err != nil {
		return false, err
	}
	return record.AutoApprove, nil
}

// FormMeta returns the stored record for an event, published or not.
func (s *Store) FormMeta(ctx context.Context, eventID string) (*FormRecord, error) {
	return s.formRecord(ctx, eventID)
}

func (s *Store) formRecord(ctx context.Context, eventID string) (*FormRecord, error) {
	var record FormRecord
	err := s.db.WithContext(ctx).First(&record, "event_id = ? AND published = ?", eventID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, eventID)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Submit persists one assembled payload. A registrant resubmitting for the
// same event gets their existing record back instead of a duplicate.
func (s *Store) Submit(ctx context.Context, payload wizard.Payload) (wizard.Receipt, error) {
	record, err := submissionFromPayload(payload)
	if err != nil {
		return wizard.Receipt{}, err
	}

	err = s.db.WithContext(ctx).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing SubmissionRecord
		lookupErr := s.db.WithContext(ctx).
			First(&existing, "event_id = ? AND user_id = ?", payload.EventID, payload.UserID).Error
		if lookupErr != nil {
			return wizard.Receipt{}, fmt.Errorf("storage: load existing submission: %w", lookupErr)
		}
		return wizard.Receipt{ID: existing.ID, Existing: true}, nil
	}
	if err != nil {
		return wizard.Receipt{}, fmt.Errorf("storage: store submission: %w", err)
	}
	return wizard.Receipt{ID: record.ID}, nil
}

// Submissions lists stored submissions for an event, newest first.
func (s *Store) Submissions(ctx context.Context, eventID string) ([]SubmissionRecord, error) {
	var records []SubmissionRecord
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("submitted_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// IsNotFound reports whether an error indicates a missing form.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFormNotFound)
}

func recordFromSchema(schema model.FormSchema) (*FormRecord, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("storage: marshal schema: %w", err)
	}
	return &FormRecord{
		EventID: schema.EventID,
		Title:   schema.Title,
		Schema:  raw,
	}, nil
}

func schemaFromRecord(record *FormRecord) (model.FormSchema, error) {
	var schema model.FormSchema
	if err := json.Unmarshal(record.Schema, &schema); err != nil {
		return model.FormSchema{}, fmt.Errorf("storage: unmarshal schema for %s: %w", record.EventID, err)
	}
	return schema, nil
}

func submissionFromPayload(payload wizard.Payload) (*SubmissionRecord, error) {
	if payload.EventID == "" || payload.UserID == "" {
		return nil, errors.New("storage: submission needs event and user ids")
	}
	answers, err := json.Marshal(payload.Answers)
	if err != nil {
		return nil, fmt.Errorf("storage: marshal answers: %w", err)
	}
	return &SubmissionRecord{
		EventID:     payload.EventID,
		UserID:      payload.UserID,
		Email:       payload.Email,
		Approved:    payload.Approved,
		Payload:     answers,
		SubmittedAt: payload.SubmittedAt,
	}, nil
}
