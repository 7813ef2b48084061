package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/caseview/pkg/session"
	"github.com/vanderheijden86/caseview/pkg/ui"
)

type tuiFlags struct {
	ref      refFlags
	to       string
	snapshot string
	unknown  string
}

func newTUICmd(a *app) *cobra.Command {
	f := &tuiFlags{}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Select plan items interactively and change their state or build a migration",
		Long: `tui lists the elements of the diagram. Space toggles the selection, a/v/t
activate, move to available or terminate the selection (after a
confirmation that shows the document), and with --to they add migration
mapping entries instead; m sends the migration.

--snapshot keeps an SVG (or PNG) of the diagram with the live selection
up to date, for viewing next to the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context(), f)
		},
	}
	f.ref.register(cmd, true)
	fl := cmd.Flags()
	fl.StringVar(&f.to, "to", "", "Target case definition id; enables migration mode")
	fl.StringVar(&f.snapshot, "snapshot", "", "Keep a rendered image of the diagram at this path")
	fl.StringVar(&f.unknown, "unknown-types", "", "Unsupported element types: skip or fail")
	return cmd
}

func (a *app) runTUI(ctx context.Context, f *tuiFlags) error {
	ref, err := f.ref.ref()
	if err != nil {
		return err
	}
	src, c, err := a.source(&f.ref)
	if err != nil {
		return err
	}
	render, err := a.renderOptions(f.unknown)
	if err != nil {
		return err
	}
	cfg := session.Config{
		Ref:               ref,
		MigrationTargetID: f.to,
		Source:            src,
		Render:            render,
		Logger:            a.logger,
	}
	if c != nil {
		cfg.Poster = c
		var closeJournal func()
		cfg.Recorder, closeJournal = a.openJournal()
		defer closeJournal()
	}
	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	defer s.Teardown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m := ui.NewModel(ctx, s, ui.Options{
		SnapshotPath: f.snapshot,
		SplitRatio:   a.cfg.UI.SplitRatio,
	})
	return runTUIProgram(m)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated runs: set CV_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CV_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-runDone:
				case <-timer.C:
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
