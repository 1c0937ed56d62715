package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

var (
	updateFirst    string
	updateLast     string
	updateEmail    string
	updatePassword string
	updateCurrent  string
)

func init() {
	userUpdateCmd.Flags().StringVar(&updateFirst, "first", "", "New first name")
	userUpdateCmd.Flags().StringVar(&updateLast, "last", "", "New last name")
	userUpdateCmd.Flags().StringVar(&updateEmail, "email", "", "New email")
	userUpdateCmd.Flags().StringVar(&updatePassword, "new-password", "", "New password")
	userUpdateCmd.Flags().StringVar(&updateCurrent, "password", "", "Current password (prompted if omitted)")

	userCmd.AddCommand(userShowCmd, userUpdateCmd)
	photoCmd.AddCommand(photoGetCmd, photoSetCmd)
	rootCmd.AddCommand(userCmd, photoCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Show or update user profiles",
}

var userShowCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Show a user's profile (yours by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			id := c.Session().UserID
			if len(args) == 1 {
				id = whatsthat.ID(args[0])
			}
			u, err := c.Users.Get(ctx, id)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "User ID:    %s\n", u.UserID)
			fmt.Fprintf(w, "First name: %s\n", u.FirstName)
			fmt.Fprintf(w, "Last name:  %s\n", u.LastName)
			fmt.Fprintf(w, "Email:      %s\n", u.Email)
			return nil
		})
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	Long:  "Update your profile. Unset flags keep their current value. The current password is checked locally before anything is sent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		current, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Current password: ", updateCurrent)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		me, err := a.client.Users.Get(ctx, a.client.Session().UserID)
		if err != nil {
			return err
		}
		desired := whatsthat.Profile{
			FirstName: valueOrDefault(updateFirst, me.FirstName),
			LastName:  valueOrDefault(updateLast, me.LastName),
			Email:     valueOrDefault(updateEmail, me.Email),
			Password:  valueOrDefault(updatePassword, current),
		}

		upd, err := whatsthat.NewProfileEditor(a.client, a.sessions).Update(ctx, current, desired)
		if err != nil {
			return err
		}
		if upd.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to update.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
		return nil
	},
}

// ============================================================================
// photo
// ============================================================================

var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Download or upload profile photos",
}

var photoGetCmd = &cobra.Command{
	Use:   "get <user-id> <file>",
	Short: "Save a user's profile photo to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			p, err := c.Users.Photo(ctx, whatsthat.ID(args[0]))
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], p.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write photo: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes, %s)\n", args[1], len(p.Data), p.ContentType)
			return nil
		})
	},
}

var photoSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Upload your profile photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *whatsthat.Client) error {
			if err := c.Users.UploadPhotoFile(ctx, c.Session().UserID, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Photo updated.")
			return nil
		})
	},
}
