package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/birbparty/flat-client/sdk"
	"github.com/birbparty/flat-client/sdk/requests"
	"github.com/spf13/cobra"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func roomsCmd(opts *rootOptions) *cobra.Command {
	var pages int
	var all bool

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List rooms, one page of 50 at a time",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			list := sdk.NewPageList(requests.RoomListFetcher(a.provider), nil).WithObserver(a.config.Observer)

			if err := list.Refresh(cmd.Context()); err != nil {
				return describe(err)
			}
			for list.CanLoadMore() && (all || list.CurrentPage() < pages) {
				if err := list.LoadMore(cmd.Context()); err != nil {
					return describe(err)
				}
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "UUID\tTITLE\tBEGIN\tSTATUS\tREGION")
			for _, r := range list.Items() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.RoomUUID, r.Title, r.BeginTime.Local().Format(time.DateTime), r.RoomStatus, r.Region)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if list.CanLoadMore() {
				fmt.Fprintf(cmd.OutOrStdout(), "\nMore rooms available, use --pages %d or --all\n", list.NextPage())
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&all, "all", false, "load every page")
	return cmd
}

func joinCmd(opts *rootOptions) *cobra.Command {
	var periodic string

	cmd := &cobra.Command{
		Use:   "join <room-uuid>",
		Short: "Join a room and print its connection details",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			play, err := sdk.Do[requests.RoomPlayInfo](cmd.Context(), a.provider, requests.JoinRoom{
				RoomUUID:     args[0],
				PeriodicUUID: periodic,
				Servers:      a.servers,
			})
			if err != nil {
				return describe(err)
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "room\t%s\n", play.RoomUUID)
			fmt.Fprintf(w, "type\t%s\n", play.RoomType)
			fmt.Fprintf(w, "region\t%s\n", play.Region)
			fmt.Fprintf(w, "whiteboard\t%s\n", play.WhiteboardRoomUUID)
			fmt.Fprintf(w, "rtc uid\t%d\n", play.RtcUID)
			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&periodic, "periodic", "", "periodic room UUID")
	return cmd
}

func historyCmd(opts *rootOptions) *cobra.Command {
	var since time.Duration
	var token, uid string

	cmd := &cobra.Command{
		Use:   "history <channel>",
		Short: "Print RTM messages sent to a room channel",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			a.provider.AgoraCredentials().Set(token, uid)

			end := time.Now()
			source := requests.NewHistoryMessageSource(a.config.AgoraAppID, args[0], end.Add(-since), end)
			location, err := sdk.Do[string](cmd.Context(), a.provider, source)
			if err != nil {
				return describe(err)
			}
			msgs, err := sdk.Do[[]requests.HistoryMessage](cmd.Context(), a.provider, requests.HistoryMessages{Location: location})
			if err != nil {
				return describe(err)
			}

			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s: %s\n", m.Ms.Local().Format(time.DateTime), m.Src, m.Payload)
			}
			return nil
		}),
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	cmd.Flags().StringVar(&token, "rtm-token", "", "Agora RTM token")
	cmd.Flags().StringVar(&uid, "rtm-uid", "", "Agora RTM user id")
	_ = cmd.MarkFlagRequired("rtm-token")
	_ = cmd.MarkFlagRequired("rtm-uid")
	return cmd
}
