package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swarmauth"
)

// pipeChannel wires a ready channel to the terminal: stdin lines go out
// encrypted, received payloads print to stdout. Returns when either side
// goes away.
func pipeChannel(ctx context.Context, ch *swarmauth.Channel) error {
	if err := ch.WaitReady(ctx); err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	logrus.Info("Channel ready")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := ch.Send(ctx, scanner.Bytes()); err != nil {
				logrus.WithField("error", err.Error()).Warn("Send failed")
				return
			}
		}
	}()

	for payload := range ch.Payloads() {
		fmt.Printf("%s\n", payload)
	}

	if err := ch.Err(); err != nil {
		return err
	}
	return nil
}
