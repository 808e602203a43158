package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *App) newSyncCmd() *cobra.Command {
	var decrypt bool
	cmd := &cobra.Command{
		Use:   "sync [target-id]",
		Short: "Synchronise with one or every configured target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			targets := a.engine.Config.TargetIDs()
			if len(args) == 1 {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid target id %q", args[0])
				}
				targets = []int{id}
			}
			if len(targets) == 0 {
				return fmt.Errorf("no sync target configured")
			}

			if err := a.unlockActiveKey(ctx, cmd); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range targets {
				r, err := a.engine.Sync(ctx, id)
				if err != nil {
					return fmt.Errorf("sync with target %d failed: %w", id, err)
				}
				printWarnings(cmd, r.Warnings)
				fmt.Fprintf(out, "target %d: %d uploaded, %d downloaded, %d updated, %d deleted remotely, %d deleted locally, %d conflicts, %d disabled\n",
					id, r.Uploaded, r.Downloaded, r.Updated, r.RemoteDeleted, r.LocalDeleted, r.Conflicts, r.Disabled)
			}

			if !decrypt {
				return nil
			}
			active, err := a.engine.Keys.ActiveID(ctx)
			if err != nil || active == "" {
				return err
			}
			report, err := a.engine.Decryption.Run(ctx)
			printWarnings(cmd, report.Warnings)
			if err != nil {
				return err
			}
			if report.Decrypted > 0 {
				fmt.Fprintf(out, "decrypted %d items\n", report.Decrypted)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&decrypt, "decrypt", true, "run the decryption worker after syncing")
	return cmd
}
