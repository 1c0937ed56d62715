package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

var draftsUseSend bool

func init() {
	draftsUseCmd.Flags().BoolVar(&draftsUseSend, "send", false, "Send the draft right away")

	draftsCmd.AddCommand(draftsChatsCmd, draftsListCmd, draftsSaveCmd, draftsRemoveCmd, draftsUseCmd)
	rootCmd.AddCommand(draftsCmd)
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Keep unsent messages per chat",
	Long:  "Drafts are stored locally per chat and user. They are never sent until used.",
}

// withDrafts runs fn against the signed-in user's drafts without touching the
// network.
func withDrafts(fn func(a *app, me whatsthat.ID) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	return fn(a, a.client.Session().UserID)
}

var draftsChatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats that have drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(func(a *app, me whatsthat.ID) error {
			chats, err := a.drafts.Chats(me)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(chats) == 0 {
				fmt.Fprintln(w, "No drafts.")
				return nil
			}
			for _, id := range chats {
				list, err := a.drafts.List(id, me)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "#%s  %d draft(s)\n", id, len(list))
			}
			return nil
		})
	},
}

var draftsListCmd = &cobra.Command{
	Use:   "list <chat-id>",
	Short: "List drafts for a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDrafts(func(a *app, me whatsthat.ID) error {
			list, err := a.drafts.List(whatsthat.ID(args[0]), me)
			if err != nil {
				return err
			}
			printDrafts(cmd, list)
			return nil
		})
	},
}

var draftsSaveCmd = &cobra.Command{
	Use:   "save <chat-id> <text>...",
	Short: "Save a draft",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return withDrafts(func(a *app, me whatsthat.ID) error {
			if err := a.drafts.Save(whatsthat.ID(args[0]), me, text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Draft saved.")
			return nil
		})
	},
}

var draftsRemoveCmd = &cobra.Command{
	Use:   "remove <chat-id> <n>",
	Short: "Remove the n-th draft",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		return withDrafts(func(a *app, me whatsthat.ID) error {
			rest, err := a.drafts.RemoveAt(whatsthat.ID(args[0]), me, i)
			if err != nil {
				return err
			}
			printDrafts(cmd, rest)
			return nil
		})
	},
}

var draftsUseCmd = &cobra.Command{
	Use:   "use <chat-id> <n>",
	Short: "Take the n-th draft out of the list",
	Long:  "Removes the n-th draft and prints it, or sends it with --send.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		return withThread(args[0], func(t *whatsthat.Thread) error {
			if _, err := t.OpenDrafts(); err != nil {
				return err
			}
			text, err := t.UseDraft(i)
			if err != nil {
				return err
			}
			if !draftsUseSend {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			ctx, cancel := commandContext()
			defer cancel()
			if err := t.SendCompose(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent draft to #%s\n", args[0])
			return nil
		})
	},
}

func printDrafts(cmd *cobra.Command, list []string) {
	w := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(w, "No drafts.")
		return
	}
	for i, d := range list {
		fmt.Fprintf(w, "%d. %s\n", i+1, d)
	}
}
