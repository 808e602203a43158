package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

func (a *App) newAttachCmd() *cobra.Command {
	var position int
	cmd := &cobra.Command{
		Use:   "attach <note-id> <file>",
		Short: "Copy a file into the store and link it from a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			it, err := a.engine.Items.Load(ctx, models.TypeNote, itemID(args[0]))
			if err != nil {
				return err
			}

			note := it.(*models.Note)
			before := make(map[string]bool)
			for _, id := range models.LinkedItemIDs(note.Body) {
				before[id] = true
			}

			n, err := a.engine.Resources.AttachFileToNote(ctx, note, args[1], position)
			if err != nil {
				return fmt.Errorf("failed to attach %s: %w", args[1], err)
			}
			for _, id := range models.LinkedItemIDs(n.Body) {
				if !before[id] {
					fmt.Fprintf(cmd.OutOrStdout(), "attached %s\n", id)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&position, "position", -1, "byte offset in the body, -1 appends")
	return cmd
}
