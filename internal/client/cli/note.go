package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/services"
)

func (a *App) newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Create, show and edit notes",
	}
	cmd.AddCommand(a.newNoteAddCmd(), a.newNoteShowCmd(), a.newNoteEditCmd())
	return cmd
}

func (a *App) newNoteAddCmd() *cobra.Command {
	var title, body, folder string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note; title and body are prompted for when not given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if !cmd.Flags().Changed("title") {
				if title, err = GetSimpleText(a.reader, "Title", cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("body") {
				if body, err = GetMultiline(a.reader, "Body", cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			n := &models.Note{BaseItem: models.BaseItem{Title: title}, Body: body, ParentID: folder}
			if _, err := a.engine.Items.Save(cmd.Context(), n, services.SaveOptions{UserSideValidation: true}); err != nil {
				return fmt.Errorf("failed to save note: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&body, "body", "", "note body")
	cmd.Flags().StringVar(&folder, "folder", "", "parent folder id")
	return cmd
}

func (a *App) newNoteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.engine.Items.Load(cmd.Context(), models.TypeNote, itemID(args[0]))
			if err != nil {
				return err
			}
			n := it.(*models.Note)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", models.DisplayTitle(n))
			if n.EncryptionApplied {
				fmt.Fprintln(out, "(encrypted, run decrypt first)")
				return nil
			}
			if n.IsConflict {
				fmt.Fprintln(out, "(conflict copy)")
			}
			fmt.Fprintf(out, "\n%s\n", n.Body)
			return nil
		},
	}
}

func (a *App) newNoteEditCmd() *cobra.Command {
	var title, body string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or body of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.engine.Items.Load(cmd.Context(), models.TypeNote, itemID(args[0]))
			if err != nil {
				return err
			}
			n := it.(*models.Note)
			if cmd.Flags().Changed("title") {
				n.Title = title
			}
			if cmd.Flags().Changed("body") {
				n.Body = body
			}
			if _, err := a.engine.Items.Save(cmd.Context(), n, services.SaveOptions{UserSideValidation: true}); err != nil {
				return fmt.Errorf("failed to save note: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body")
	return cmd
}
