package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

func init() {
	rootCmd.AddCommand(sendCmd, editCmd, deleteCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <message>...",
	Short: "Send a message to a chat",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return withThread(args[0], func(t *whatsthat.Thread) error {
			ctx, cancel := commandContext()
			defer cancel()
			if err := t.Send(ctx, text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent to #%s (%d messages)\n", args[0], len(t.Chat().Messages))
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <chat-id> <message-id> <text>...",
	Short: "Edit one of your messages",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[2:], " ")
		return withThread(args[0], func(t *whatsthat.Thread) error {
			if err := t.Select(whatsthat.ID(args[1])); err != nil {
				return err
			}
			if err := t.BeginEdit(); err != nil {
				return err
			}
			t.SetEditText(text)

			ctx, cancel := commandContext()
			defer cancel()
			if err := t.SaveEdit(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Edited message #%s\n", args[1])
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <chat-id> <message-id>",
	Short: "Delete one of your messages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withThread(args[0], func(t *whatsthat.Thread) error {
			if err := t.Select(whatsthat.ID(args[1])); err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()
			if err := t.DeleteSelected(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted message #%s\n", args[1])
			return nil
		})
	},
}
