package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Outgoing is a document prepared from the session state, waiting to be
// confirmed and sent. Send touches nothing but the Outgoing itself and the
// poster, recorder and logger captured when it was prepared, so it may run
// on any goroutine. Commit must run on the goroutine that owns the session.
type Outgoing struct {
	Submission Submission
	Prompt     Prompt

	post     func(ctx context.Context) error
	recorder Recorder
	logger   *zap.Logger
}

// Migration reports whether the document is a migration.
func (o *Outgoing) Migration() bool {
	return o.Submission.Kind != KindChangeState
}

// Send posts the document and records the attempt. The returned error is
// the POST error; a failed journal write is only logged.
func (o *Outgoing) Send(ctx context.Context) error {
	sub := o.Submission
	sub.At = time.Now()
	sub.Err = o.post(ctx)
	if o.recorder != nil {
		if err := o.recorder.Record(ctx, sub); err != nil {
			o.logger.Warn("journal write failed", zap.Error(err))
		}
	}
	fields := []zap.Field{
		zap.String("kind", string(sub.Kind)),
		zap.String("instance", sub.CaseInstanceID),
		zap.String("definition", sub.CaseDefinitionID),
	}
	if sub.Err != nil {
		o.logger.Error("submission failed", append(fields, zap.Error(sub.Err))...)
		return sub.Err
	}
	o.logger.Info("submission accepted", fields...)
	return nil
}

// Commit applies a successful send: loads in flight become stale, both
// canvases are cleared and the selection and buttons reset. A migration
// also leaves migration mode. The caller reloads.
func (s *Session) Commit(o *Outgoing) {
	s.generation.Add(1)
	s.Clear()
	s.layer.Reset()
	if o.Migration() {
		s.SetMigrationTarget("")
	}
}

func (s *Session) outgoing(sub Submission, p Prompt, post func(ctx context.Context) error) *Outgoing {
	return &Outgoing{
		Submission: sub,
		Prompt:     p,
		post:       post,
		recorder:   s.cfg.Recorder,
		logger:     s.cfg.Logger,
	}
}

func (s *Session) confirm(ctx context.Context, o *Outgoing) error {
	ok, err := s.cfg.Confirmer.Confirm(ctx, o.Prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}
