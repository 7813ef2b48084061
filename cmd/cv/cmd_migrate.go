package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/caseview/pkg/model"
	"github.com/vanderheijden86/caseview/pkg/session"
)

type migrateFlags struct {
	ref      refFlags
	to       string
	mappings []string
	yes      bool
	dryRun   bool
}

// mappingFlag is one --map kind=id,id value.
type mappingFlag struct {
	kind model.Action
	ids  []string
}

func parseMappingFlag(v string) (mappingFlag, error) {
	kind, list, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(list) == "" {
		return mappingFlag{}, fmt.Errorf("--map %q: want kind=id[,id...]", v)
	}
	a, err := model.ParseAction(strings.TrimSpace(kind))
	if err != nil {
		return mappingFlag{}, fmt.Errorf("--map %q: %w", v, err)
	}
	return mappingFlag{kind: a, ids: strings.Split(list, ",")}, nil
}

func newMigrateCmd(a *app) *cobra.Command {
	f := &migrateFlags{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a case instance, or every instance of a definition, to another definition",
		Long: `migrate loads the source and the target diagram and builds the mapping
from --map flags, each one entry of a single kind. Element ids are looked up
on the source diagram first and on the target diagram otherwise.

With --instance the instance is migrated; with only --definition all its
instances are migrated in one batch.`,
		Example: `  cv migrate -i 4b1c... --to caseDef:2 --map terminate=oldTask --map activate=newTask
  cv migrate -d caseDef:1 --to caseDef:2 --map available=review,approve --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.to == "" {
				return session.ErrNoMigrationTarget
			}
			var entries []mappingFlag
			for _, v := range f.mappings {
				m, err := parseMappingFlag(v)
				if err != nil {
					return err
				}
				entries = append(entries, m)
			}

			out := cmd.OutOrStdout()
			s, done, err := a.newSession(cmd.Context(), &f.ref, sessionConfig{
				migrateTo: f.to,
				confirmer: confirmer(f.yes, out),
				journal:   !f.dryRun,
			})
			if err != nil {
				return err
			}
			defer done()

			for _, m := range entries {
				if err := selectElements(s, m.ids); err != nil {
					return err
				}
				if _, err := s.AddMapping(m.kind); err != nil {
					return err
				}
			}
			if summary := s.Summary(); summary != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), summary)
			}

			if f.dryRun {
				doc, err := s.MigrationDocument()
				if err != nil {
					return err
				}
				return printJSON(out, doc)
			}
			err = s.ExecuteMigration(cmd.Context())
			if errors.Is(err, session.ErrCancelled) {
				fmt.Fprintln(out, "cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "migration to %s sent\n", f.to)
			return nil
		},
	}
	f.ref.register(cmd, false)
	fl := cmd.Flags()
	fl.StringVar(&f.to, "to", "", "Target case definition id")
	fl.StringArrayVar(&f.mappings, "map", nil, "Mapping entry kind=id[,id...]; kind is activate, available or terminate (repeatable)")
	fl.BoolVarP(&f.yes, "yes", "y", false, "Send without asking")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Print the document instead of sending it")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
