package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/client/services"
)

func (a *App) newImportCmd() *cobra.Command {
	var opts services.ImportOptions
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import a raw export directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.SourcePath = args[0]
			res, err := a.engine.Importer.Import(cmd.Context(), opts)
			if res != nil {
				printWarnings(cmd, res.Warnings)
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "imported:")
			printCounts(cmd, res.Counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.DestinationFolderID, "folder", "", "put every note into this folder id")
	cmd.Flags().StringVar(&opts.DefaultFolderTitle, "default-title", "", "title of the folder for notes without one")
	return cmd
}

func (a *App) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every item as a raw export directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.Exporter.Export(cmd.Context(), args[0])
			if res != nil {
				printWarnings(cmd, res.Warnings)
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported:")
			printCounts(cmd, res.Counts)
			return nil
		},
	}
}
