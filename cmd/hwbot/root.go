package main

import (
	"github.com/spf13/cobra"

	"hwbot/internal/config"
	logx "hwbot/pkg/logx"
)

// commandContext carries the persistent flags shared by every subcommand.
type commandContext struct {
	configFlag   string
	stateDirFlag string
	envFileFlag  string

	// lookup overrides the process environment (tests).
	lookup config.LookupFunc
}

func (c *commandContext) loadConfig() (*config.Manager, *config.Config, error) {
	m := config.NewManager(c.configFlag)
	if c.lookup != nil {
		m.SetLookup(c.lookup)
	}
	cfg, err := m.Load()
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config) logx.Logger {
	level := config.DefaultLogLevel
	if cfg != nil {
		level = cfg.Logging.Level
	}
	return logx.NewWriter(cmd.ErrOrStderr(), level).With(logx.String("comp", "cli"))
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}
	return newRootCommandWith(cc)
}

func newRootCommandWith(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hwbot",
		Short:         "Homework review status notifier",
		Long:          "hwbot polls the homework review API and reports status changes to a Telegram chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cc.envFileFlag == "" {
				return nil
			}
			return config.LoadDotEnv(cc.envFileFlag)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, cc)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&cc.stateDirFlag, "state-dir", "", "Directory for the instance lock")
	rootCmd.PersistentFlags().StringVar(&cc.envFileFlag, "env-file", ".env", "Dotenv file loaded before reading the environment (empty disables)")

	rootCmd.AddCommand(newRunCommand(cc))
	rootCmd.AddCommand(newCheckCommand(cc))
	rootCmd.AddCommand(newSendTestCommand(cc))

	return rootCmd
}
