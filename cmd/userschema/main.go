package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/userschema/internal/interfaces/cli/migrate"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "userschema",
		Short:        "userschema - user table schema migrations",
		Long:         `userschema manages the revisioned schema of the application's user table: applying, reverting, stamping and rendering revisions.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
