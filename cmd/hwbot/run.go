package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hwbot/internal/app"
	"hwbot/internal/config"
	logx "hwbot/pkg/logx"
)

const shutdownTimeout = 15 * time.Second

func newRunCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the polling loop in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, cc)
		},
	}
}

func runDaemon(cmd *cobra.Command, cc *commandContext) error {
	m, cfg, err := cc.loadConfig()
	if err != nil {
		return err
	}
	log := cc.logger(cmd, cfg)

	// Nothing touches the network before the secrets are known to be present.
	if err := config.CheckCredentials(cfg); err != nil {
		log.Critical("required credentials are missing", logx.Err(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, m, app.Options{StateDir: cc.stateDirFlag})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background())
		return err
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopErr := a.Stop(stopCtx)
	if err := a.Err(); err != nil {
		return err
	}
	if stopErr != nil && !errors.Is(stopErr, context.Canceled) {
		return stopErr
	}
	return nil
}
