package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/opd-ai/swarmauth"
	"github.com/opd-ai/swarmauth/transport"
)

func dialCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Connect to a listening peer and initiate the handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSeed(); err != nil {
				return err
			}
			if url == "" {
				url = cfg.DialURL
			}
			if url == "" {
				return fmt.Errorf("a peer URL is required; pass --url or set dial_url in the config file")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			localID, err := transport.NewPeerID()
			if err != nil {
				return err
			}
			conn, err := transport.DialWS(ctx, url, localID, []string{swarmauth.Capability})
			if err != nil {
				return err
			}

			ch, err := swarmauth.Bind(ctx, conn, swarmauth.Options{
				Seed:             cfg.Seed,
				HandshakeTimeout: cfg.HandshakeTimeout,
			})
			if err != nil {
				conn.Close()
				return err
			}
			defer ch.Close()

			return pipeChannel(ctx, ch)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "peer websocket URL (ws://host:port)")
	return cmd
}
