package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/caseview/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cv version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cv %s\n", version.Version)
			return err
		},
	}
}
