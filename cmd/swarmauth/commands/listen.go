package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/swarmauth"
	"github.com/opd-ai/swarmauth/transport"
)

func listenCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept overlay connections and answer handshakes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSeed(); err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ListenAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			srv, err := transport.ListenWS(addr, []string{swarmauth.Capability}, func(conn *transport.WSConn) {
				ch, err := swarmauth.Bind(ctx, conn, swarmauth.Options{
					Seed:             cfg.Seed,
					HandshakeTimeout: cfg.HandshakeTimeout,
				})
				if err != nil {
					logrus.WithField("error", err.Error()).Warn("Connection not engaged")
					conn.Close()
					return
				}
				if err := pipeChannel(ctx, ch); err != nil {
					logrus.WithField("error", err.Error()).Warn("Channel ended")
				}
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			logrus.WithField("addr", srv.Addr()).Info("Listening for peers")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port)")
	return cmd
}
