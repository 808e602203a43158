package cli

import (
	"bufio"
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/gophnotes/internal/buildinfo"
	"github.com/dmitrijs2005/gophnotes/internal/client/client"
	"github.com/dmitrijs2005/gophnotes/internal/client/config"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// App carries the state shared by the subcommands of one invocation.
type App struct {
	engine *client.Engine
	log    logging.Logger
	reader *bufio.Reader
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return (&App{}).rootCmd()
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gophnotes",
		Short:         "Local note store with end-to-end encrypted sync",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		a.newNoteCmd(),
		a.newFolderCmd(),
		a.newListCmd(),
		a.newDeleteCmd(),
		a.newAttachCmd(),
		a.newImportCmd(),
		a.newExportCmd(),
		a.newStatusCmd(),
		a.newDecryptCmd(),
		a.newSyncCmd(),
		a.newMasterKeyCmd(),
	)
	return root
}

func (a *App) open(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log

	e, err := client.Open(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	a.engine = e
	a.reader = bufio.NewReader(cmd.InOrStdin())
	return nil
}

func (a *App) close() error {
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close()
	a.engine = nil
	return err
}

// Execute runs the command tree against os.Args and returns the process
// exit code.
func Execute(ctx context.Context) int {
	a := &App{}
	root := a.rootCmd()

	// cobra skips PersistentPostRunE when RunE fails.
	defer a.close()

	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
