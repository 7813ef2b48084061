package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/caseview/internal/journal"
)

func newHistoryCmd(a *app) *cobra.Command {
	var opts journal.ListOptions
	cmd := &cobra.Command{
		Use:   "history [entry-id]",
		Short: "List submitted change-state and migration documents",
		Long: `history reads the local journal of every document cv sent, accepted or
rejected. Pass an entry id to print its document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.JournalPath()
			if path == "" {
				return errors.New("the journal is disabled in the config file")
			}
			store, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s %s at %s\n", e.ID, e.Kind, e.Target(), e.At.Format("2006-01-02 15:04:05"))
				if !e.OK() {
					fmt.Fprintf(out, "error: %s\n", e.Error)
				}
				fmt.Fprintln(out, e.Payload)
				return nil
			}

			entries, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no submissions recorded")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tKIND\tTARGET\tRESULT")
			for _, e := range entries {
				result := "ok"
				if !e.OK() {
					result = e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.At.Format("2006-01-02 15:04:05"), e.Kind, e.Target(), result)
			}
			return tw.Flush()
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&opts.Limit, "limit", "n", 20, "Number of entries (0 for all)")
	fl.StringVar(&opts.Target, "target", "", "Only entries for this instance or definition id")
	fl.BoolVar(&opts.Failed, "failed", false, "Only rejected submissions")
	return cmd
}
