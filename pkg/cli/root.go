// Package cli implements the expertmarket admin command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "expertmarket",
		Short:         "Expertmarket admin CLI",
		Long:          "Administrative commands for the expertmarket backend: bootstrap the first admin account and mint bearer tokens for testing.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the SQLite database")

	rootCmd.AddCommand(newBootstrapAdminCmd(&dbPath))
	rootCmd.AddCommand(newMintTokenCmd(&dbPath))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func defaultDBPath() string {
	if v := os.Getenv("DB_PATH"); v != "" {
		return v
	}
	return "expertmarket.sqlite"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "expertmarket %s (%s)\n", version, commit)
			return nil
		},
	}
}
