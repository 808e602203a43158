package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt items received from sync targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.unlockActiveKey(ctx, cmd); err != nil {
				return err
			}

			report, err := a.engine.Decryption.Run(ctx)
			printWarnings(cmd, report.Warnings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "decrypted %d items\n", report.Decrypted)
			return nil
		},
	}
}
