package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/swarmauth/challenge"
)

func deriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive",
		Short: "Print the rendezvous topic for the configured seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSeed(); err != nil {
				return err
			}

			topic, err := challenge.DeriveTopic(cfg.Seed)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(topic[:]))
			return nil
		},
	}
}
