package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-bingo-admin/realtime"
	"github.com/spf13/cobra"
)

var watchedEvents = []string{
	realtime.EventNewCallAnnounced,
	realtime.EventRoundStatusChanged,
	realtime.EventGameStatusChanged,
	realtime.EventWinnerAnnounced,
}

func newWatchCmd(a appFunc) *cobra.Command {
	var private bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live game events for the tenant",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !private {
				return nil
			}
			if decision := a().guard.Check(); !decision.Allowed {
				return &RedirectError{Decision: decision}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			visibility := realtime.Public
			if private {
				visibility = realtime.Private
			}

			namespace, err := a().sockets.Namespace(ctx, visibility)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			subscriptions := []realtime.Subscription{
				realtime.Subscribe(realtime.EventConnect, func(realtime.Envelope) {
					fmt.Fprintf(out, "connected to %s\n", namespace)
				}),
			}
			for _, event := range watchedEvents {
				subscriptions = append(subscriptions, realtime.Subscribe(event, func(e realtime.Envelope) {
					fmt.Fprintf(out, "%s %s %s %s\n", time.Now().Format(time.TimeOnly), e.Event, e.Status, string(e.Payload))
				}))
			}

			conn, err := a().sockets.Get(ctx, namespace, subscriptions...)
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return nil
			case <-conn.Done():
				return fmt.Errorf("disconnected from %s", namespace)
			}
		},
	}
	cmd.Flags().BoolVar(&private, "private", false, "join the authenticated tenant namespace")
	return cmd
}
