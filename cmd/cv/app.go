package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/caseview/internal/journal"
	"github.com/vanderheijden86/caseview/pkg/client"
	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
	"github.com/vanderheijden86/caseview/pkg/session"
)

// refFlags select the diagram a command works on.
type refFlags struct {
	instance   string
	definition string
	modelType  string
	file       string
}

func (f *refFlags) register(cmd *cobra.Command, allowFile bool) {
	fl := cmd.Flags()
	fl.StringVarP(&f.instance, "instance", "i", "", "Case or process instance id")
	fl.StringVarP(&f.definition, "definition", "d", "", "Case or process definition id")
	fl.StringVar(&f.modelType, "type", "cmmn", "Model type: cmmn or bpmn")
	if allowFile {
		fl.StringVarP(&f.file, "file", "f", "", "Read a saved model-json file instead of calling the server")
	}
}

func (f *refFlags) ref() (client.Ref, error) {
	mt, err := model.ParseModelType(f.modelType)
	if err != nil {
		return client.Ref{}, err
	}
	ref := client.Ref{ModelType: mt, InstanceID: f.instance, DefinitionID: f.definition}
	if f.instance == "" && f.definition == "" {
		if f.file == "" {
			return ref, errors.New("one of --instance or --definition is required")
		}
		ref.File = f.file
	}
	return ref, nil
}

// newClient builds the REST client for the selected server.
func (a *app) newClient() (*client.Client, error) {
	srv, err := a.cfg.ResolveServer(a.serverName)
	if err != nil {
		return nil, err
	}
	if srv.BaseURL == "" {
		return nil, errors.New("no server configured: set CASEVIEW_BASE_URL or add a server to the config file")
	}
	opts := []client.Option{client.WithLogger(a.logger)}
	if srv.Username != "" {
		opts = append(opts, client.WithBasicAuth(srv.Username, srv.Password))
	}
	if srv.Timeout > 0 {
		opts = append(opts, client.WithTimeout(srv.Timeout))
	}
	return client.New(srv.BaseURL, opts...)
}

// source returns the file source when --file is set, else the REST client.
func (a *app) source(f *refFlags) (client.ModelSource, *client.Client, error) {
	if f.file != "" {
		return client.FileSource{Path: f.file}, nil, nil
	}
	c, err := a.newClient()
	if err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

func (a *app) renderOptions(unknown string) (diagram.Options, error) {
	if unknown == "" {
		unknown = a.cfg.Render.UnknownTypes
	}
	policy, err := diagram.ParseUnknownTypePolicy(unknown)
	if err != nil {
		return diagram.Options{}, err
	}
	return diagram.Options{UnknownTypes: policy}, nil
}

// openJournal opens the submission journal. A journal that cannot be opened
// is logged and skipped; it never blocks a submission.
func (a *app) openJournal() (session.Recorder, func()) {
	path := a.cfg.JournalPath()
	if path == "" {
		return nil, func() {}
	}
	store, err := journal.Open(path)
	if err != nil {
		a.logger.Warn("journal unavailable", zap.String("path", path), zap.Error(err))
		return nil, func() {}
	}
	return store, func() { store.Close() }
}

// sessionConfig bundles what newSession needs beyond the ref flags.
type sessionConfig struct {
	migrateTo string
	confirmer session.Confirmer
	unknown   string
	journal   bool
}

func (a *app) newSession(ctx context.Context, f *refFlags, sc sessionConfig) (*session.Session, func(), error) {
	ref, err := f.ref()
	if err != nil {
		return nil, nil, err
	}
	src, c, err := a.source(f)
	if err != nil {
		return nil, nil, err
	}
	render, err := a.renderOptions(sc.unknown)
	if err != nil {
		return nil, nil, err
	}

	cfg := session.Config{
		Ref:               ref,
		MigrationTargetID: sc.migrateTo,
		Source:            src,
		Confirmer:         sc.confirmer,
		Render:            render,
		Logger:            a.logger,
	}
	cleanup := func() {}
	if c != nil {
		cfg.Poster = c
		if sc.journal {
			cfg.Recorder, cleanup = a.openJournal()
		}
	}

	s, err := session.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := s.Init(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, func() {
		s.Teardown()
		cleanup()
	}, nil
}

// selectElements clicks each id, on the source diagram when it is there
// and on the target diagram otherwise.
func selectElements(s *session.Session, ids []string) error {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		_, err := s.Layer().Click(interaction.SurfaceSource, id)
		if errors.Is(err, interaction.ErrUnknownElement) && s.Target() != nil {
			_, err = s.Layer().Click(interaction.SurfaceTarget, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
