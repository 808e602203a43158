package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/services"
)

func (a *App) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete items; the deletion is propagated on the next sync",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, arg := range args {
				id := itemID(arg)
				it, err := a.engine.Items.LoadAny(ctx, id)
				if err != nil {
					return fmt.Errorf("item %s: %w", id, err)
				}

				if it.Type() == models.TypeResource {
					err = a.engine.Resources.Delete(ctx, []string{id}, services.DeleteOptions{})
				} else {
					err = a.engine.Items.Delete(ctx, it.Type(), []string{id}, services.DeleteOptions{})
				}
				if err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", it.Type(), id)
			}
			return nil
		},
	}
}
