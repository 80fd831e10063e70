package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "frequency",
		Short:         "Serve LLMs with hot-swappable LoRA adapters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("log-level") {
				if v := os.Getenv("FREQUENCY_LOG_LEVEL"); v != "" {
					opts.logLevel = v
				}
			}
			if opts.configPath == "" {
				opts.configPath = os.Getenv("FREQUENCY_CONFIG")
			}
			l, err := newLogger(cmd.ErrOrStderr(), opts.logFormat, opts.logLevel)
			if err != nil {
				return err
			}
			opts.log = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (.yaml, .json, .toml); defaults to $FREQUENCY_CONFIG")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: off|error|info|debug (defaults to $FREQUENCY_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "auto", "Log format: auto|console|json")

	root.AddCommand(
		newServeCmd(opts),
		newProviderCmd(opts),
		newDoctorCmd(opts),
		newVersionCmd(),
	)
	return root
}
