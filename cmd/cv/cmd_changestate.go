package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/caseview/pkg/model"
	"github.com/vanderheijden86/caseview/pkg/session"
)

type changeStateFlags struct {
	ref     refFlags
	selects []string
	yes     bool
	dryRun  bool
}

func newChangeStateCmd(a *app) *cobra.Command {
	f := &changeStateFlags{}
	cmd := &cobra.Command{
		Use:   "change-state <activate|available|terminate>",
		Short: "Activate, move to available or terminate plan items of a case instance",
		Long: `change-state selects the given elements in order, exactly as clicking
them on the diagram would, and sends the matching change-state document.
The action must be one the last selected element allows:

  current    terminate
  available  available, terminate
  completed  activate
  other      activate, available`,
		Example: `  cv change-state terminate -i 4b1c... --select planItem1,planItem2
  cv change-state activate -i 4b1c... --select review --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := model.ParseAction(args[0])
			if err != nil {
				return err
			}
			if f.ref.instance == "" {
				return session.ErrNoInstance
			}
			out := cmd.OutOrStdout()
			s, done, err := a.newSession(cmd.Context(), &f.ref, sessionConfig{
				confirmer: confirmer(f.yes, out),
				journal:   !f.dryRun,
			})
			if err != nil {
				return err
			}
			defer done()

			if err := selectElements(s, f.selects); err != nil {
				return err
			}
			if f.dryRun {
				doc, err := s.PendingChangeState(action)
				if err != nil {
					return err
				}
				return printJSON(out, doc)
			}
			err = s.ChangeState(cmd.Context(), action)
			if errors.Is(err, session.ErrCancelled) {
				fmt.Fprintln(out, "cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s sent for %s\n", action.Title(), f.ref.instance)
			return nil
		},
	}
	f.ref.register(cmd, false)
	fl := cmd.Flags()
	fl.StringSliceVar(&f.selects, "select", nil, "Element ids to select, in order")
	fl.BoolVarP(&f.yes, "yes", "y", false, "Send without asking")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Print the document instead of sending it")
	_ = cmd.MarkFlagRequired("select")
	return cmd
}
