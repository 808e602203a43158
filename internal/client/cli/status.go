package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts, encryption progress and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := a.engine
			out := cmd.OutOrStdout()

			counts := make(map[models.ItemType]int)
			for _, t := range e.Registry.Types() {
				items, err := e.Items.List(ctx, t)
				if err != nil {
					return err
				}
				counts[t] = len(items)
			}
			fmt.Fprintln(out, "items:")
			printCounts(cmd, counts)

			stats, err := e.Encryption.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "encrypted: %d of %d\n", stats.Encrypted, stats.Total)

			active, err := e.Keys.ActiveID(ctx)
			if err != nil {
				return err
			}
			if active == "" {
				fmt.Fprintln(out, "master key: none")
			} else {
				state := "locked"
				if _, err := e.Keys.Key(active); err == nil {
					state = "unlocked"
				}
				fmt.Fprintf(out, "master key: %s (%s)\n", active, state)
			}

			lastSync, err := e.Synchronizer.LastSyncTimes(ctx)
			if err != nil {
				return err
			}
			configured := make(map[int]bool)

			for _, id := range e.Config.TargetIDs() {
				configured[id] = true
				tombstones, err := e.Tracker.TombstoneCount(ctx, id)
				if err != nil {
					return err
				}
				disabled, err := e.Tracker.ListDisabled(ctx, id)
				if err != nil {
					return err
				}
				lastStr := "never"
				if last := lastSync[id]; last != 0 {
					lastStr = timex.FormatMs(last)
				}
				fmt.Fprintf(out, "target %d: last sync %s, %d pending deletions, %d disabled\n",
					id, lastStr, tombstones, len(disabled))
				for _, d := range disabled {
					fmt.Fprintf(out, "  disabled %s %s: %s\n", d.ItemType, d.ItemID, d.SyncDisabledReason)
				}
			}
			for id, last := range lastSync {
				if !configured[id] {
					fmt.Fprintf(out, "target %d: not configured, last sync %s\n", id, timex.FormatMs(last))
				}
			}
			return nil
		},
	}
}
