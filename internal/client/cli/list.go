package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

func (a *App) newListCmd() *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "list [notes|folders|resources|masterkeys]",
		Short: "List items of one type, notes by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := models.TypeNote
			if len(args) == 1 {
				var err error
				if t, err = parseItemType(args[0]); err != nil {
					return err
				}
			}

			items, err := a.engine.Items.List(cmd.Context(), t)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, it := range items {
				if folder != "" && models.ParentID(it) != folder {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", it.Base().ID, models.DisplayTitle(it))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "only items whose parent is this folder id")
	return cmd
}
