package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg        runtimeConfig
	configPath string
	flagSeed   string
	flagLevel  string
)

func Execute() error {
	root := &cobra.Command{
		Use:   "swarmauth",
		Short: "Seed-authenticated encrypted channels between swarm peers",
		Long: "swarmauth lets two peers that share a seed find each other in a swarm,\n" +
			"prove possession of the seed, and talk over a forward-secure Noise XX channel.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = defaultConfig()
			if configPath != "" {
				loaded, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if flagSeed != "" {
				cfg.Seed = flagSeed
			}
			if flagLevel != "" {
				cfg.LogLevel = flagLevel
			}

			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	root.PersistentFlags().StringVarP(&flagSeed, "seed", "s", "", "shared seed (overrides config)")
	root.PersistentFlags().StringVar(&flagLevel, "log-level", "", "logrus level (debug, info, warn, error)")

	root.AddCommand(deriveCmd(), listenCmd(), dialCmd())
	return root.Execute()
}

func requireSeed() error {
	if cfg.Seed == "" {
		return fmt.Errorf("a seed is required; pass --seed or set it in the config file")
	}
	return nil
}
