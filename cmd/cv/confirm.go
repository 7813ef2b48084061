package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/caseview/pkg/session"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// formConfirmer prints the document and asks before it is sent.
type formConfirmer struct {
	out io.Writer
}

func (c formConfirmer) Confirm(ctx context.Context, p session.Prompt) (bool, error) {
	data, err := json.MarshalIndent(p.Document, "", "  ")
	if err != nil {
		return false, err
	}
	fmt.Fprintln(c.out, string(data))

	send := false
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(p.Title).
				Description(p.Description).
				Value(&send).
				Affirmative("Send").
				Negative("Cancel"),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return send, nil
}

// confirmer returns the interactive confirmer, or one that approves
// everything when --yes was given.
func confirmer(yes bool, out io.Writer) session.Confirmer {
	if yes {
		return session.AlwaysConfirm
	}
	return formConfirmer{out: out}
}
