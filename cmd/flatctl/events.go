package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birbparty/flat-client/internal/queue"
	"github.com/spf13/cobra"
)

func eventsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow session events published by flatctl on any machine",
		Long: `events prints login and logout events from the NATS stream as they happen.
It needs NATS_URL to point at a JetStream enabled server.`,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if a.publisher == nil {
				return errors.New("session events are disabled, set NATS_URL")
			}
			if err := a.publisher.Health(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			sub, err := a.publisher.Subscribe(func(e *queue.SessionEvent) {
				line := fmt.Sprintf("%s  %-13s %s %s", e.Timestamp.Local().Format(time.DateTime), e.Type, e.UserUUID, e.Name)
				if e.Error != "" {
					line += "  " + e.Error
				}
				fmt.Fprintln(out, line)
			})
			if err != nil {
				return err
			}
			defer func() { _ = sub.Unsubscribe() }()

			fmt.Fprintln(out, "Waiting for session events, press Ctrl+C to stop")
			<-ctx.Done()
			return nil
		}),
	}
}
