package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"frequency/internal/config"
	"frequency/internal/provider"
	"frequency/internal/provider/local"
	"frequency/internal/provider/runpod"
)

type providerOptions struct {
	kind     string
	stateDir string
}

// inferenceProvider builds the provider selected by --provider.
func (o *providerOptions) inferenceProvider(g *globalOptions) (provider.InferenceProvider, error) {
	switch strings.ToLower(o.kind) {
	case "runpod":
		key := os.Getenv("RUNPOD_API_KEY")
		if key == "" && g.configPath != "" {
			if cfg, err := config.Load(g.configPath); err == nil {
				key = cfg.RunPodAPIKey
			}
		}
		return runpod.New(runpod.Config{APIKey: key, Logger: &g.log})
	case "local":
		return local.New(local.Config{StateDir: o.stateDir, Logger: &g.log})
	default:
		return nil, fmt.Errorf("unknown provider %q (want runpod or local)", o.kind)
	}
}

func newProviderCmd(g *globalOptions) *cobra.Command {
	o := &providerOptions{}
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Run frequency servers on a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("provider requires a subcommand: run|status|list|stop")
		},
	}
	cmd.PersistentFlags().StringVar(&o.kind, "provider", "local", "Provider: runpod|local")
	cmd.PersistentFlags().StringVar(&o.stateDir, "state-dir", local.DefaultStateDir, "State directory for the local provider")

	spec := provider.RunSpec{}
	var env []string
	run := &cobra.Command{
		Use:     "run <name>",
		Short:   "Start a server instance",
		Example: "  frequency provider run demo --provider local --hf-repo hf://TheBloke/opt-350m-GGUF/opt-350m.Q4_K_M.gguf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.inferenceProvider(g)
			if err != nil {
				return err
			}
			spec.Name = args[0]
			spec.Env, err = parseEnv(env)
			if err != nil {
				return err
			}
			ep, err := p.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ep.URL)
			return err
		},
	}
	run.Flags().StringVar(&spec.Image, "image", runpod.DefaultImage, "Container image (runpod)")
	run.Flags().StringVar(&spec.GPUType, "gpu-type", runpod.DefaultGPUType, "GPU type id (runpod)")
	run.Flags().IntVar(&spec.GPUCount, "gpu-count", 1, "GPU count (runpod)")
	run.Flags().IntVar(&spec.GPUMemory, "gpu-memory", 0, "Minimum RAM per GPU in GiB (runpod)")
	run.Flags().IntVar(&spec.CPUCount, "cpu-count", 0, "Minimum vCPUs per GPU (runpod)")
	run.Flags().IntVar(&spec.DiskGB, "disk-gb", 0, "Container disk in GiB (runpod)")
	run.Flags().StringVar(&spec.HFRepo, "hf-repo", "", "Model repo to preload on start")
	run.Flags().StringArrayVar(&env, "env", nil, "Extra KEY=VALUE environment for the instance (repeatable)")

	status := &cobra.Command{
		Use:   "status <name>",
		Short: "Show an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.inferenceProvider(g)
			if err != nil {
				return err
			}
			st, err := p.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List running instances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.inferenceProvider(g)
			if err != nil {
				return err
			}
			names, err := p.Running(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	stop := &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.inferenceProvider(g)
			if err != nil {
				return err
			}
			return p.Stop(cmd.Context(), args[0])
		},
	}
	cmd.AddCommand(run, status, list, stop)
	return cmd
}

func parseEnv(kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --env %q (want KEY=VALUE)", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
