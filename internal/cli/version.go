package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	version    = "0.1.0"
	modulePath = "github.com/meshline/datashelf"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shelfd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "shelfd v%s\nmodule: %s\n", version, modulePath)
			return nil
		},
	}
}
