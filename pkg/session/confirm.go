package session

import (
	"context"
	"time"
)

// Prompt is what an operator is asked before a document is sent.
type Prompt struct {
	Title       string
	Description string
	Document    any
}

// Confirmer asks the operator to approve a submission.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// AlwaysConfirm approves every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Prompt) (bool, error) { return true, nil })

// SubmissionKind names the endpoint a document went to.
type SubmissionKind string

const (
	KindChangeState  SubmissionKind = "change-state"
	KindMigrate      SubmissionKind = "migrate"
	KindBatchMigrate SubmissionKind = "batch-migrate"
)

// Submission is one document sent to the server, successful or not.
type Submission struct {
	Kind             SubmissionKind
	CaseInstanceID   string
	CaseDefinitionID string
	Document         any
	Err              error
	At               time.Time
}

// Recorder keeps a history of submissions.
type Recorder interface {
	Record(ctx context.Context, sub Submission) error
}
