// Package cli implements the shelfd command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configFile string
	addr       string
	dataDir    string
}

var flags rootFlags

// NewRootCmd creates the top-level "shelfd" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelfd",
		Short: "A dynamic-entity data service",
		Long: "Shelfd serves CRUD and query operations over registered record\n" +
			"shapes through one uniform HTTP surface.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "listen address (overrides config)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (overrides config)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
