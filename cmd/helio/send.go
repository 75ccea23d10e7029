package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/heliograph/internal/channel"
)

func newSendCmd() *cobra.Command {
	var root, path, image string

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send a message to the operator",
		Long:  "Sends an ad hoc message (optionally with an image) to the configured operator.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, root, path, image, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	cmd.Flags().StringVarP(&image, "image", "i", "", "path of an image to attach")
	return cmd
}

func runSend(cmd *cobra.Command, root, path, image, text string) error {
	if text == "" && image == "" {
		return fmt.Errorf("nothing to send")
	}

	a, err := buildApp(appOpts{root: root, contextPath: path})
	if err != nil {
		return err
	}
	if a.adapter == nil {
		return fmt.Errorf("no operator configured — run `helio pair` first")
	}

	ctx := cmd.Context()
	if err := a.adapter.Connect(ctx); err != nil {
		return err
	}
	defer a.adapter.Close()

	if err := a.adapter.Send(ctx, channel.OutboundMessage{Text: text, ImagePath: image}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Sent.")
	return nil
}
