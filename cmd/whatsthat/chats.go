package main

import (
	"fmt"

	"github.com/spf13/cobra"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

var (
	chatsJSON     bool
	chatsShowJSON bool
)

func init() {
	chatsListCmd.Flags().BoolVar(&chatsJSON, "json", false, "Output raw JSON")
	chatsShowCmd.Flags().BoolVar(&chatsShowJSON, "json", false, "Output raw JSON")

	chatsCmd.AddCommand(chatsListCmd, chatsCreateCmd, chatsRenameCmd, chatsShowCmd)
	membersCmd.AddCommand(membersListCmd, membersAddCmd, membersRemoveCmd)
	rootCmd.AddCommand(chatsCmd, membersCmd)
}

// ============================================================================
// chats
// ============================================================================

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List, create and read chats",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		chats, err := a.client.Chats.List(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if chatsJSON {
			return printJSON(w, chats)
		}
		if len(chats) == 0 {
			fmt.Fprintln(w, "No chats yet.")
			return nil
		}
		for _, c := range chats {
			fmt.Fprintf(w, "#%s  %s\n      %s\n", c.ChatID, c.Name, c.Preview())
		}
		return nil
	},
}

var chatsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		id, err := a.client.Chats.Create(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created chat #%s\n", id)
		return nil
	},
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename <chat-id> <name>",
	Short: "Rename a chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		t, err := a.thread(ctx, whatsthat.ID(args[0]))
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.Rename(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed chat #%s to %q\n", args[0], t.Chat().Name)
		return nil
	},
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show a chat's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		t, err := a.thread(ctx, whatsthat.ID(args[0]))
		if err != nil {
			return err
		}
		defer t.Close()

		w := cmd.OutOrStdout()
		if chatsShowJSON {
			return printJSON(w, t.Chat())
		}
		fmt.Fprintf(w, "%s (%d members)\n\n", t.Chat().Name, len(t.Chat().Members))
		renderTimeline(w, t.Timeline())
		return nil
	},
}

// ============================================================================
// members
// ============================================================================

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage chat members",
}

var membersListCmd = &cobra.Command{
	Use:   "list <chat-id>",
	Short: "List the members of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		chat, err := a.client.Chats.Get(ctx, whatsthat.ID(args[0]))
		if err != nil {
			return err
		}
		me := a.client.Session().UserID
		for _, m := range chat.Members {
			mark := ""
			if !whatsthat.CanRemoveMember(m, me) {
				mark = " (you)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s%s\n", m.UserID, m.FullName(), mark)
		}
		return nil
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add <chat-id> <user-id>",
	Short: "Add a user to a chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withThread(args[0], func(t *whatsthat.Thread) error {
			ctx, cancel := commandContext()
			defer cancel()
			if err := t.AddMember(ctx, whatsthat.ID(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added user %s to chat #%s\n", args[1], args[0])
			return nil
		})
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <chat-id> <user-id>",
	Short: "Remove a user from a chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withThread(args[0], func(t *whatsthat.Thread) error {
			ctx, cancel := commandContext()
			defer cancel()
			if err := t.RemoveMember(ctx, whatsthat.ID(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed user %s from chat #%s\n", args[1], args[0])
			return nil
		})
	},
}

// withThread opens the app and a Thread on chatID, runs fn and cleans up.
func withThread(chatID string, fn func(t *whatsthat.Thread) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	t, err := a.thread(ctx, whatsthat.ID(chatID))
	if err != nil {
		return err
	}
	defer t.Close()
	return fn(t)
}
