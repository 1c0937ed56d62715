package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

var (
	contactsJSON   bool
	searchContacts bool
	searchLimit    int
	searchOffset   int
	searchJSON     bool
)

func init() {
	contactsListCmd.Flags().BoolVar(&contactsJSON, "json", false, "Output raw JSON")
	searchCmd.Flags().BoolVar(&searchContacts, "contacts", false, "Only search your contacts")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Number of results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output raw JSON")

	contactsCmd.AddCommand(contactsListCmd, contactsAddCmd, contactsRemoveCmd)
	blockedCmd.AddCommand(blockedListCmd, blockedAddCmd, blockedRemoveCmd)
	rootCmd.AddCommand(contactsCmd, blockedCmd, searchCmd)
}

// withClient runs fn with the signed-in client and a command-scoped context.
func withClient(fn func(ctx context.Context, c *whatsthat.Client) error) error {
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
	return fn(ctx, a.client)
}

func printUsers(cmd *cobra.Command, users []whatsthat.User, empty string) {
	w := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "%s  %s  %s\n", u.UserID, u.FullName(), u.Email)
	}
}

// ============================================================================
// contacts
// ============================================================================

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage your contacts",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			users, err := c.Contacts.List(ctx)
			if err != nil {
				return err
			}
			if contactsJSON {
				return printJSON(cmd.OutOrStdout(), users)
			}
			printUsers(cmd, users, "No contacts yet.")
			return nil
		})
	},
}

var contactsAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Add a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			if err := c.Contacts.Add(ctx, whatsthat.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added contact %s\n", args[0])
			return nil
		})
	},
}

var contactsRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			if err := c.Contacts.Remove(ctx, whatsthat.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed contact %s\n", args[0])
			return nil
		})
	},
}

// ============================================================================
// blocked
// ============================================================================

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "Manage blocked users",
}

var blockedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			users, err := c.Contacts.Blocked(ctx)
			if err != nil {
				return err
			}
			printUsers(cmd, users, "Nobody is blocked.")
			return nil
		})
	},
}

var blockedAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Block a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			if err := c.Contacts.Block(ctx, whatsthat.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blocked %s\n", args[0])
			return nil
		})
	},
}

var blockedRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Unblock a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			if err := c.Contacts.Unblock(ctx, whatsthat.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unblocked %s\n", args[0])
			return nil
		})
	},
}

// ============================================================================
// search
// ============================================================================

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := whatsthat.SearchOptions{Query: args[0], In: whatsthat.SearchAll, Limit: searchLimit, Offset: searchOffset}
		if searchContacts {
			opts.In = whatsthat.SearchContacts
		}
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			users, err := c.Contacts.Search(ctx, opts)
			if err != nil {
				return err
			}
			if searchJSON {
				return printJSON(cmd.OutOrStdout(), users)
			}
			printUsers(cmd, users, "No users found.")
			return nil
		})
	},
}
