package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// PendingChangeState builds the document ChangeState would send for the
// current selection, without sending it.
func (s *Session) PendingChangeState(action model.Action) (model.ChangeStateDocument, error) {
	if err := s.writable(); err != nil {
		return model.ChangeStateDocument{}, err
	}
	if s.cfg.Ref.InstanceID == "" {
		return model.ChangeStateDocument{}, ErrNoInstance
	}
	sel := s.layer.Selection()
	if sel.Len() == 0 {
		return model.ChangeStateDocument{}, ErrEmptySelection
	}
	if !s.layer.Buttons().Shown(action) {
		return model.ChangeStateDocument{}, fmt.Errorf("%s: %w", action, ErrActionHidden)
	}
	ids, err := sel.PlanItemDefinitionIDs()
	if err != nil {
		return model.ChangeStateDocument{}, err
	}
	return model.NewChangeStateDocument(action, ids), nil
}

// PrepareChangeState builds the change-state submission for the selection.
func (s *Session) PrepareChangeState(action model.Action) (*Outgoing, error) {
	doc, err := s.PendingChangeState(action)
	if err != nil {
		return nil, err
	}
	names := s.layer.Selection().Names()
	instanceID := s.cfg.Ref.InstanceID
	poster := s.cfg.Poster
	return s.outgoing(
		Submission{Kind: KindChangeState, CaseInstanceID: instanceID, Document: doc},
		Prompt{
			Title:       fmt.Sprintf("%s %d plan item(s)?", action.Title(), len(names)),
			Description: strings.Join(names, ", "),
			Document:    doc,
		},
		func(ctx context.Context) error { return poster.ChangeState(ctx, instanceID, doc) },
	), nil
}

// ChangeState asks for confirmation and posts the change-state document for
// the selection. On success the canvas is cleared, the selection and buttons
// reset and the diagram reloaded. On failure the selection is kept.
func (s *Session) ChangeState(ctx context.Context, action model.Action) error {
	out, err := s.PrepareChangeState(action)
	if err != nil {
		return err
	}
	if err := s.confirm(ctx, out); err != nil {
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return fmt.Errorf("confirming %s: %w", action, err)
	}
	if err := out.Send(ctx); err != nil {
		return fmt.Errorf("change state: %w", err)
	}

	s.Commit(out)
	if err := s.Load(ctx); err != nil {
		return fmt.Errorf("state changed, reloading diagram: %w", err)
	}
	return nil
}

func (s *Session) writable() error {
	if s.cfg.Poster == nil {
		return ErrReadOnly
	}
	if s.cfg.Ref.ModelType == model.ModelBPMN {
		return fmt.Errorf("bpmn diagrams are render-only: %w", ErrReadOnly)
	}
	if s.source == nil {
		return ErrNotLoaded
	}
	return nil
}
