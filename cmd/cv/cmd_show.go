package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/caseview/pkg/diagram"
	"github.com/vanderheijden86/caseview/pkg/interaction"
	"github.com/vanderheijden86/caseview/pkg/model"
)

type showFlags struct {
	ref    refFlags
	asJSON bool
}

type elementRow struct {
	ID                   string   `json:"id"`
	Type                 string   `json:"type"`
	Name                 string   `json:"name,omitempty"`
	Lifecycle            string   `json:"lifecycle"`
	PlanItemDefinitionID string   `json:"planItemDefinitionId,omitempty"`
	Actions              []string `json:"actions"`
	Next                 []string `json:"next,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	f := &showFlags{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the elements of a diagram with their state and allowed actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := f.ref.ref()
			if err != nil {
				return err
			}
			src, _, err := a.source(&f.ref)
			if err != nil {
				return err
			}
			d, err := src.ModelJSON(cmd.Context(), ref)
			if err != nil {
				return err
			}
			rows := elementRows(d)
			out := cmd.OutOrStdout()
			if f.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tSTATE\tDEFINITION\tNAME\tACTIONS")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Lifecycle, r.PlanItemDefinitionID, r.Name, joinOrDash(r.Actions))
			}
			return tw.Flush()
		},
	}
	f.ref.register(cmd, true)
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON")
	return cmd
}

// elementRows lists elements in flow order with the actions a selection
// of that element alone would enable.
func elementRows(d *model.Diagram) []elementRow {
	fg, _ := diagram.NewFlowGraph(d)
	rows := make([]elementRow, 0, len(d.Elements))
	for _, id := range fg.Order() {
		e, ok := d.Element(id)
		if !ok {
			continue
		}
		b := interaction.ButtonsFor(e)
		actions := []string{}
		for _, act := range model.Actions {
			if b.Shown(act) {
				actions = append(actions, act.String())
			}
		}
		rows = append(rows, elementRow{
			ID:                   e.ID,
			Type:                 e.Type,
			Name:                 e.Name,
			Lifecycle:            model.LifecycleOf(e).String(),
			PlanItemDefinitionID: e.PlanItemDefinitionID,
			Actions:              actions,
			Next:                 fg.Successors(e.ID),
		})
	}
	return rows
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}
