package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/pkg/service"
)

func NewWatchCmd(opts *service.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <document>",
		Short: "Report when another program changes a document",
		Long: `Watch a document and print a line each time it is modified on disk by
another program, for example a file sync client. Stop with ctrl+c.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctrl, err := openDocument(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s\n", ctrl.Path())
			return ctrl.Watch(ctx, func() {
				fmt.Fprintf(out, "%s modified externally at %s\n", ctrl.Path(), time.Now().Format(time.TimeOnly))
			})
		},
	}
}
