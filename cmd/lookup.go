package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
	"github.com/mrwersa/saba-pharma-bot/internal/present"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <postcode-or-code>",
		Short: "Run a single lookup and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, coordinator, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer()
			defer func() { _ = logger.Sync() }()

			result, err := coordinator.Lookup(cmd.Context(), args[0])
			if err != nil {
				var vErr *pharma.ValidationError
				if errors.As(err, &vErr) {
					fmt.Fprintln(cmd.OutOrStdout(), present.ValidationFailure(vErr))
					return nil
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), present.Batch(result))
			return nil
		},
	}
}
