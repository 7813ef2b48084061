// Package session ties a loaded diagram, its interaction layer and the
// change-state and migration workflows into one object with an explicit
// lifecycle. A Session is owned by a single goroutine; only Fetch and
// Outgoing.Send may run elsewhere.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/caseview/pkg/client"
	"github.com/vanderheijden86/caseview/pkg/debug"
	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
)

// Common errors.
var (
	ErrNotLoaded         = errors.New("diagram is not loaded")
	ErrStaleLoad         = errors.New("a newer load superseded this one")
	ErrEmptySelection    = errors.New("no elements selected")
	ErrCancelled         = errors.New("cancelled")
	ErrNoMigrationTarget = errors.New("no migration target definition set")
	ErrNoInstance        = errors.New("change-state needs a case instance")
	ErrReadOnly          = errors.New("session has no server to send documents to")
	ErrActionHidden      = errors.New("action is not available for the selection")
)

// Poster sends documents to the admin API.
type Poster interface {
	ChangeState(ctx context.Context, instanceID string, doc model.ChangeStateDocument) error
	Migrate(ctx context.Context, instanceID string, doc model.MigrationDocument) error
	BatchMigrate(ctx context.Context, definitionID string, doc model.MigrationDocument) error
}

// Config wires a Session to its collaborators.
type Config struct {
	// Ref is the source diagram: a case instance, or a case definition for
	// definition-wide migration.
	Ref client.Ref
	// MigrationTargetID, when set, is the case definition to migrate to.
	MigrationTargetID string

	Source    client.ModelSource
	Poster    Poster    // nil makes the session read-only
	Confirmer Confirmer // nil confirms everything
	Recorder  Recorder  // optional
	Render    diagram.Options
	Logger    *zap.Logger
}

// Session is the explicit state of one diagram page.
type Session struct {
	cfg   Config
	layer *interaction.Layer

	source *model.Diagram
	target *model.Diagram

	mapping []MappingEntry

	generation atomic.Uint64
	active     bool
}

// New creates a session. Call Init to load the diagrams.
func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("session needs a model source")
	}
	if cfg.Ref.Empty() {
		return nil, fmt.Errorf("session needs an instance id, a definition id or a file")
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = AlwaysConfirm
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Session{cfg: cfg, layer: interaction.NewLayer()}
	s.layer.SetMigrationMode(cfg.MigrationTargetID != "")
	return s, nil
}

// Init loads the source diagram and, in migration mode, the target.
func (s *Session) Init(ctx context.Context) error {
	s.active = true
	return s.Load(ctx)
}

// Teardown drops all state. Loads still in flight become stale.
func (s *Session) Teardown() {
	s.generation.Add(1)
	s.Clear()
	s.layer.Reset()
	s.mapping = nil
	s.active = false
}

// Active reports whether Init ran and Teardown did not.
func (s *Session) Active() bool {
	return s.active
}

// Ref returns the source reference.
func (s *Session) Ref() client.Ref {
	return s.cfg.Ref
}

// Layer returns the interaction layer that receives clicks and hovers.
func (s *Session) Layer() *interaction.Layer {
	return s.layer
}

// Source returns the loaded source diagram, or nil.
func (s *Session) Source() *model.Diagram {
	return s.source
}

// Target returns the loaded migration target diagram, or nil.
func (s *Session) Target() *model.Diagram {
	return s.target
}

// ReadOnly reports whether documents can be sent.
func (s *Session) ReadOnly() bool {
	return s.cfg.Poster == nil
}

// LoadRequest captures what to fetch for one load generation.
type LoadRequest struct {
	Generation uint64
	Ref        client.Ref
	TargetID   string
}

// Loaded is the result of a Fetch, applied with Apply.
type Loaded struct {
	Generation uint64
	Source     *model.Diagram
	Target     *model.Diagram
}

// StartLoad begins a new load generation. Results of earlier generations
// are rejected by Apply.
func (s *Session) StartLoad() LoadRequest {
	return LoadRequest{
		Generation: s.generation.Add(1),
		Ref:        s.cfg.Ref,
		TargetID:   s.cfg.MigrationTargetID,
	}
}

// Fetch loads the diagrams of a request. It only reads the request and the
// model source, so it may run on any goroutine.
func (s *Session) Fetch(ctx context.Context, req LoadRequest) (*Loaded, error) {
	defer debug.LogEnterExit("session.Fetch")()
	out := &Loaded{Generation: req.Generation}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.cfg.Source.ModelJSON(ctx, req.Ref)
		if err != nil {
			return err
		}
		out.Source = d
		return nil
	})
	if req.TargetID != "" {
		g.Go(func() error {
			ref := client.Ref{ModelType: req.Ref.ModelType, DefinitionID: req.TargetID}
			d, err := s.cfg.Source.ModelJSON(ctx, ref)
			if err != nil {
				return fmt.Errorf("migration target: %w", err)
			}
			out.Target = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply installs fetched diagrams and attaches their hit regions.
func (s *Session) Apply(l *Loaded) error {
	if l == nil {
		return ErrNotLoaded
	}
	if l.Generation != s.generation.Load() {
		debug.Log("session: dropping load %d, current is %d", l.Generation, s.generation.Load())
		return ErrStaleLoad
	}
	srcLayout, err := diagram.BuildLayout(l.Source, s.cfg.Render)
	if err != nil {
		return err
	}
	var tgtLayout *diagram.Layout
	if l.Target != nil {
		if tgtLayout, err = diagram.BuildLayout(l.Target, s.cfg.Render); err != nil {
			return fmt.Errorf("migration target: %w", err)
		}
	}

	s.source = l.Source
	s.layer.Attach(interaction.SurfaceSource, srcLayout)
	for _, id := range srcLayout.Skipped {
		s.cfg.Logger.Warn("skipped element with unsupported type", zap.String("element", id))
	}
	if tgtLayout != nil {
		s.target = l.Target
		s.layer.Attach(interaction.SurfaceTarget, tgtLayout)
	}
	return nil
}

// Load fetches and applies in one step.
func (s *Session) Load(ctx context.Context) error {
	l, err := s.Fetch(ctx, s.StartLoad())
	if err != nil {
		return err
	}
	return s.Apply(l)
}

// Clear empties both canvases. The selection is left alone.
func (s *Session) Clear() {
	s.source = nil
	s.target = nil
	s.layer.Detach(interaction.SurfaceSource)
	s.layer.Detach(interaction.SurfaceTarget)
}

// Render draws a surface with the current selection and hover state.
func (s *Session) Render(w io.Writer, surface interaction.Surface, format string) (diagram.Result, error) {
	d := s.source
	if surface == interaction.SurfaceTarget {
		d = s.target
	}
	if d == nil {
		return diagram.Result{}, ErrNotLoaded
	}
	opts := s.cfg.Render
	opts.Highlight = s.layer.Highlight(surface)
	opts.HitRegions = true
	return diagram.Render(w, format, d, opts)
}
