// Package migrate implements the migrate command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/techcrawler/cmd/common"
)

// Command returns the migrate command. Opening the store applies the
// schema, so the command only opens and closes it.
func Command(flags *cmdcommon.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the article schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(flags)
			if err != nil {
				return err
			}

			store, err := cmdcommon.OpenStore(cmd.Context(), deps)
			if err != nil {
				return err
			}
			if closeErr := store.Close(); closeErr != nil {
				return fmt.Errorf("failed to close article store: %w", closeErr)
			}

			deps.Logger.Info("Schema is up to date")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}
