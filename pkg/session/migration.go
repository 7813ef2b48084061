package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// MappingEntry is one step of a migration: a single action applied to the
// plan item definitions that were selected when it was added.
type MappingEntry struct {
	Kind                  model.Action
	PlanItemDefinitionIDs []string
	Label                 string
}

// MarshalJSON writes the entry as {"activateItemIds": [...]} and friends.
func (m MappingEntry) MarshalJSON() ([]byte, error) {
	key := "activateItemIds"
	switch m.Kind {
	case model.ActionMoveToAvailable:
		key = "availableItemIds"
	case model.ActionTerminate:
		key = "terminateItemIds"
	}
	ids := m.PlanItemDefinitionIDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(map[string][]string{key: ids})
}

// MigrationTarget returns the case definition id being migrated to.
func (s *Session) MigrationTarget() string {
	return s.cfg.MigrationTargetID
}

// SetMigrationTarget enters migration mode. The target diagram is fetched
// on the next Load. An empty id leaves migration mode.
func (s *Session) SetMigrationTarget(definitionID string) {
	s.cfg.MigrationTargetID = definitionID
	s.layer.SetMigrationMode(definitionID != "")
	if definitionID == "" {
		s.target = nil
		s.layer.Detach(interaction.SurfaceTarget)
		s.mapping = nil
	}
}

// AddMapping appends an entry built from the selection and clears the
// selection and its glow.
func (s *Session) AddMapping(kind model.Action) (MappingEntry, error) {
	if s.cfg.MigrationTargetID == "" {
		return MappingEntry{}, ErrNoMigrationTarget
	}
	sel := s.layer.Selection()
	if sel.Len() == 0 {
		return MappingEntry{}, ErrEmptySelection
	}
	ids, err := sel.PlanItemDefinitionIDs()
	if err != nil {
		return MappingEntry{}, err
	}
	entry := MappingEntry{
		Kind:                  kind,
		PlanItemDefinitionIDs: ids,
		Label:                 strings.Join(sel.Names(), ", "),
	}
	s.mapping = append(s.mapping, entry)
	s.layer.Reset()
	return entry, nil
}

// Mapping returns a copy of the mapping entries in insertion order.
func (s *Session) Mapping() []MappingEntry {
	out := make([]MappingEntry, len(s.mapping))
	copy(out, s.mapping)
	return out
}

// Summary renders the mapping as "Mapping 1 a, b  -  Mapping 2 c".
func (s *Session) Summary() string {
	parts := make([]string, len(s.mapping))
	for i, m := range s.mapping {
		parts[i] = fmt.Sprintf("Mapping %d %s", i+1, m.Label)
	}
	return strings.Join(parts, "  -  ")
}

// MigrationDocument flattens the mapping into the three action buckets,
// keeping the order of entries and of ids within each entry.
func (s *Session) MigrationDocument() (model.MigrationDocument, error) {
	if s.cfg.MigrationTargetID == "" {
		return model.MigrationDocument{}, ErrNoMigrationTarget
	}
	doc := model.MigrationDocument{
		ToCaseDefinitionID:                 s.cfg.MigrationTargetID,
		ActivatePlanItemDefinitions:        []model.PlanItemDefinitionRef{},
		MoveToAvailablePlanItemDefinitions: []model.PlanItemDefinitionRef{},
		TerminatePlanItemDefinitions:       []model.PlanItemDefinitionRef{},
	}
	for _, m := range s.mapping {
		bucket := &doc.ActivatePlanItemDefinitions
		switch m.Kind {
		case model.ActionMoveToAvailable:
			bucket = &doc.MoveToAvailablePlanItemDefinitions
		case model.ActionTerminate:
			bucket = &doc.TerminatePlanItemDefinitions
		}
		for _, id := range m.PlanItemDefinitionIDs {
			*bucket = append(*bucket, model.PlanItemDefinitionRef{PlanItemDefinitionID: id})
		}
	}
	return doc, nil
}

// PrepareMigration builds the migration submission: the instance endpoint
// when the session has an instance, the definition's batch endpoint
// otherwise.
func (s *Session) PrepareMigration() (*Outgoing, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	doc, err := s.MigrationDocument()
	if err != nil {
		return nil, err
	}
	poster := s.cfg.Poster
	prompt := Prompt{
		Title:       fmt.Sprintf("Migrate to %s?", doc.ToCaseDefinitionID),
		Description: s.Summary(),
		Document:    doc,
	}
	if id := s.cfg.Ref.InstanceID; id != "" {
		return s.outgoing(
			Submission{Kind: KindMigrate, CaseInstanceID: id, Document: doc},
			prompt,
			func(ctx context.Context) error { return poster.Migrate(ctx, id, doc) },
		), nil
	}
	def := s.cfg.Ref.DefinitionID
	return s.outgoing(
		Submission{Kind: KindBatchMigrate, CaseDefinitionID: def, Document: doc},
		prompt,
		func(ctx context.Context) error { return poster.BatchMigrate(ctx, def, doc) },
	), nil
}

// ExecuteMigration confirms and posts the migration document. On success
// both canvases are cleared and migration state is reset.
func (s *Session) ExecuteMigration(ctx context.Context) error {
	out, err := s.PrepareMigration()
	if err != nil {
		return err
	}
	if err := s.confirm(ctx, out); err != nil {
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return fmt.Errorf("confirming migration: %w", err)
	}
	if err := out.Send(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.Commit(out)
	return nil
}
