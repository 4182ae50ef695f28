package wizard

import (
	"context"
	"io"
	"time"
)

// Identity is the registrant the submission will be attributed to. The wizard
// never authenticates; it only reads what the host application supplies.
type Identity struct {
	UserID string
	Email  string
}

// SubmitContext carries the cross-cutting metadata the assembler attaches to
// a payload: who is registering, for which event, and whether the event
// auto-approves registrations.
type SubmitContext struct {
	Identity    Identity
	EventID     string
	AutoApprove bool
}

// Payload is the assembled submission handed to the persistence collaborator.
// Answers is keyed by field name; redirect steps never appear in it.
type Payload struct {
	EventID     string         `json:"eventId"`
	UserID      string         `json:"userId"`
	Email       string         `json:"email"`
	Approved    bool           `json:"approved"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Answers     map[string]any `json:"answers"`
}

// Receipt is what persistence returns for a stored submission. Existing is
// true when the registrant had already registered for the event and the
// stored record was reused instead of duplicated.
type Receipt struct {
	ID       string
	Existing bool
}

// Submitter persists one assembled payload. Implementations own idempotence:
// resubmission for an already-registered event returns the existing record
// rather than creating a duplicate.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) (Receipt, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, payload Payload) (Receipt, error)

func (f SubmitterFunc) Submit(ctx context.Context, payload Payload) (Receipt, error) {
	return f(ctx, payload)
}

// UploadRequest describes one file handed to the upload collaborator.
type UploadRequest struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores a file and returns its public URL. Used by file-field
// renderers; the wizard core only tracks the busy sub-state around the call.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// Validator is the compiled-schema seam the controller validates through.
// *compiler.Compiled satisfies it; tests substitute counting stubs.
type Validator interface {
	CheckField(name string, value any) error
	CheckPayload(payload map[string]any) error
}
