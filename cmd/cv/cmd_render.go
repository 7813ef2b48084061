package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/watcher"
)

type renderFlags struct {
	ref     refFlags
	output  string
	format  string
	title   string
	unknown string
	selects []string
	hover   string
	watch   bool
}

func newRenderCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a case or process diagram to SVG or PNG",
		Long: `Render fetches the model of an instance or definition (or reads a saved
model-json file) and draws it. Without --output the image goes to stdout.

With --file and --watch the image is redrawn whenever the file changes.`,
		Example: `  cv render -i 4b1c... -o case.svg
  cv render -f model.json -o model.png --select review,approve
  cv render -f model.json -o model.svg --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, f)
		},
	}
	f.ref.register(cmd, true)
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	fl.StringVar(&f.format, "format", "", "svg or png (default: from the output name, then config)")
	fl.StringVar(&f.title, "title", "", "Title embedded in the SVG")
	fl.StringVar(&f.unknown, "unknown-types", "", "Unsupported element types: skip or fail")
	fl.StringSliceVar(&f.selects, "select", nil, "Element ids drawn as selected")
	fl.StringVar(&f.hover, "hover", "", "Element id drawn with the hover stroke")
	fl.BoolVarP(&f.watch, "watch", "w", false, "Redraw when the --file changes")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, f *renderFlags) error {
	if f.watch && (f.ref.file == "" || f.output == "") {
		return errors.New("--watch needs --file and --output")
	}
	ref, err := f.ref.ref()
	if err != nil {
		return err
	}
	src, _, err := a.source(&f.ref)
	if err != nil {
		return err
	}
	opts, err := a.renderOptions(f.unknown)
	if err != nil {
		return err
	}
	opts.Title = f.title
	opts.HitRegions = true
	opts.Highlight = diagram.Highlight{Selected: make(map[string]bool), Hover: f.hover}
	for _, id := range f.selects {
		opts.Highlight.Selected[strings.TrimSpace(id)] = true
	}

	format := f.format
	if format == "" && f.output != "" {
		format = diagram.FormatFromPath(f.output)
	}
	if format == "" {
		format = a.cfg.Render.Format
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	draw := func() error {
		d, err := src.ModelJSON(ctx, ref)
		if err != nil {
			return err
		}
		var res diagram.Result
		if f.output == "" {
			res, err = diagram.Render(cmd.OutOrStdout(), format, d, opts)
		} else {
			res, err = diagram.Save(f.output, format, d, opts)
		}
		if err != nil {
			return err
		}
		a.logger.Info("rendered diagram",
			zap.String("ref", ref.String()),
			zap.Int("elements", res.Drawn),
			zap.Int("flows", res.Flows),
			zap.Strings("skipped", res.Skipped))
		if f.output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%dx%d, %d elements)\n", f.output, res.Width, res.Height, res.Drawn)
		}
		return nil
	}

	if err := draw(); err != nil {
		return err
	}
	if !f.watch {
		return nil
	}
	return a.watchAndRender(ctx, f.ref.file, draw)
}

func (a *app) watchAndRender(ctx context.Context, path string, draw func() error) error {
	w, err := watcher.New(path,
		watcher.WithOnError(func(err error) {
			a.logger.Warn("watching model file", zap.String("path", path), zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
			if err := draw(); err != nil {
				// a half-written file is expected mid-save; keep watching
				a.logger.Warn("re-render failed", zap.Error(err))
			}
		}
	}
}
