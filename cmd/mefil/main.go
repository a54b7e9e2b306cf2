package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/poetry-royal/mefil/internal/app"
	"github.com/poetry-royal/mefil/internal/tools/battlecheck"
	"github.com/poetry-royal/mefil/internal/tools/common"
)

func main() {
	root := &cobra.Command{
		Use:          "mefil",
		Short:        "Shared pomodoro boss battle for two",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(battlecheck.NewRootCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(envFile); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := app.Initialize(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is parsed")
	return cmd
}
