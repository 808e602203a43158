package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/common"
)

func (a *App) newMasterKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "masterkey",
		Short: "Create or unlock master keys",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a master key protected by a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GetPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			if len(pw) == 0 {
				return fmt.Errorf("password must not be empty")
			}

			mk, err := a.engine.Keys.Generate(cmd.Context(), pw)
			if err != nil {
				return fmt.Errorf("failed to generate master key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), mk.ID)
			return nil
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Unlock a master key and make it the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadKey(cmd.Context(), cmd, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active master key: %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(newCmd, loadCmd)
	return cmd
}
