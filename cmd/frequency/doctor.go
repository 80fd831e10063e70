package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"frequency/internal/config"
	"frequency/internal/manager"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the runtime, adapter cache and models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if g.configPath != "" {
				loaded, err := config.Load(g.configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			config.ApplyEnv(&cfg)
			cfg = cfg.WithDefaults()

			mgr := manager.New(manager.Config{
				ModelsDir:       cfg.ModelsDir,
				AdapterCacheDir: cfg.AdapterCache,
				Logger:          &g.log,
			})
			r := mgr.SanityCheck()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(r); err != nil {
				return err
			}
			if !r.OK() {
				return errors.New("sanity check failed")
			}
			return nil
		},
	}
}
