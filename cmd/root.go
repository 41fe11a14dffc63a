package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grovetools/treenote/cmd/config"
	"github.com/grovetools/treenote/pkg/service"
)

// NewRootCmd builds the tn command tree. Settings are read once, before
// any subcommand runs.
func NewRootCmd() *cobra.Command {
	return newRootCmd(func() (service.Options, error) {
		config.InitConfig()
		v := viper.GetViper()
		logger, err := config.NewLogger(v)
		if err != nil {
			return service.Options{}, err
		}
		return config.Options(v, logger)
	})
}

func newRootCmd(load func() (service.Options, error)) *cobra.Command {
	opts := &service.Options{}

	rootCmd := &cobra.Command{
		Use:   "tn",
		Short: "Hierarchical note documents on the command line",
		Long: `tn reads and edits tree structured note documents stored as a single
SQLite database (.ctb) or an XML file (.ctd), optionally encrypted (.ctx, .ctz).
Saves are incremental and keep rotated backups of the previous file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o, err := load()
			if err != nil {
				return err
			}
			*opts = o
			return nil
		},
	}
	config.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewNewCmd(opts))
	rootCmd.AddCommand(NewAddCmd(opts))
	rootCmd.AddCommand(NewTreeCmd(opts))
	rootCmd.AddCommand(NewCatCmd(opts))
	rootCmd.AddCommand(NewInfoCmd(opts))
	rootCmd.AddCommand(NewCheckCmd(opts))
	rootCmd.AddCommand(NewSetCmd(opts))
	rootCmd.AddCommand(NewRmCmd(opts))
	rootCmd.AddCommand(NewMvCmd(opts))
	rootCmd.AddCommand(NewBookmarkCmd(opts))
	rootCmd.AddCommand(NewImportCmd(opts))
	rootCmd.AddCommand(NewConvertCmd(opts))
	rootCmd.AddCommand(NewCompactCmd(opts))
	rootCmd.AddCommand(NewSearchCmd(opts))
	rootCmd.AddCommand(NewWatchCmd(opts))
	rootCmd.AddCommand(NewRecentCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
