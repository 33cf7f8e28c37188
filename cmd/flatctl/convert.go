package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/birbparty/flat-client/sdk"
	"github.com/birbparty/flat-client/sdk/requests"
	"github.com/spf13/cobra"
)

type pollOptions struct {
	convertType string
	region      string
	wait        bool
	interval    time.Duration
}

func (o *pollOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.convertType, "type", string(requests.ConvertDynamic), "conversion type: static or dynamic")
	cmd.Flags().StringVar(&o.region, "region", "", "Netless region")
	cmd.Flags().BoolVar(&o.wait, "wait", false, "poll until the conversion finishes")
	cmd.Flags().DurationVar(&o.interval, "interval", 2*time.Second, "poll interval with --wait")
}

func convertCmd(opts *rootOptions) *cobra.Command {
	poll := &pollOptions{}

	cmd := &cobra.Command{
		Use:   "convert <file-uuid>",
		Short: "Start converting a cloud storage file for the whiteboard",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			result, err := sdk.Do[requests.ConvertStartResult](cmd.Context(), a.provider, requests.StartConvert{FileUUID: args[0]})
			if err != nil {
				return describe(err)
			}
			info, ok := result.Info()
			if !ok {
				return errors.New("server did not return a conversion task")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task  %s\ntoken %s\n", info.TaskUUID, info.TaskToken)
			if !poll.wait {
				return nil
			}
			return followConversion(cmd, a, info.TaskUUID, info.TaskToken, poll)
		}),
	}
	poll.bind(cmd)
	return cmd
}

func convertStatusCmd(opts *rootOptions) *cobra.Command {
	poll := &pollOptions{}
	var token string

	cmd := &cobra.Command{
		Use:   "convert-status <task-uuid>",
		Short: "Show the progress of a whiteboard conversion",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			return followConversion(cmd, a, args[0], token, poll)
		}),
	}
	poll.bind(cmd)
	cmd.Flags().StringVar(&token, "token", "", "task token returned when the conversion started")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func followConversion(cmd *cobra.Command, a *app, taskUUID, token string, poll *pollOptions) error {
	query := requests.ConversionProgressQuery{
		TaskUUID:  taskUUID,
		TaskToken: token,
		Type:      requests.ConvertType(poll.convertType),
		Region:    poll.region,
	}

	ticker := time.NewTicker(poll.interval)
	defer ticker.Stop()
	for {
		task, err := sdk.Do[requests.ConversionTask](cmd.Context(), a.provider, query)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %3.0f%%  %d/%d pages\n", task.Status,
			task.Progress.ConvertedPercentage, task.Progress.ConvertedPageSize, task.Progress.TotalPageSize)

		if task.Status == requests.ConversionFail {
			return fmt.Errorf("conversion failed: %s", task.FailedReason)
		}
		if task.Done() || !poll.wait {
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}
