package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/services"
)

func (a *App) newFolderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage folders",
	}

	var parent string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &models.Folder{BaseItem: models.BaseItem{Title: args[0]}, ParentID: parent}
			if _, err := a.engine.Items.Save(cmd.Context(), f, services.SaveOptions{UserSideValidation: true}); err != nil {
				return fmt.Errorf("failed to save folder: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.ID)
			return nil
		},
	}
	add.Flags().StringVar(&parent, "parent", "", "parent folder id")

	cmd.AddCommand(add)
	return cmd
}
