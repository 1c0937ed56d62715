package main

import (
	"fmt"

	"github.com/spf13/cobra"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

var (
	signupFirst    string
	signupLast     string
	signupPassword string

	loginPassword string
)

func init() {
	signupCmd.Flags().StringVar(&signupFirst, "first", "", "First name")
	signupCmd.Flags().StringVar(&signupLast, "last", "", "Last name")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "Password (prompted if omitted)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted if omitted)")

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, statusCmd)
}

var signupCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", signupPassword)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		id, err := a.client.Account.SignUp(ctx, whatsthat.SignUpOptions{
			FirstName: signupFirst, LastName: signupLast, Email: args[0], Password: password,
		})
		if err != nil {
			return fmt.Errorf("sign up failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Account created (user %s). Run 'whatsthat login %s' to sign in.\n", id, args[0])
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and store the session locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", loginPassword)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		sess, err := a.client.Account.Login(ctx, args[0], password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := a.sessions.Save(sess); err != nil {
			return fmt.Errorf("logged in but failed to store session: %w", err)
		}
		if err := a.sessions.CachePassword(password); err != nil {
			return fmt.Errorf("logged in but failed to cache password: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as user %s.\n", sess.UserID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
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

		logoutErr := a.client.Account.Logout(ctx)
		if err := a.sessions.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		if logoutErr != nil {
			return fmt.Errorf("local session cleared but server logout failed: %w", logoutErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		w := cmd.OutOrStdout()

		path, _ := statePath(a.cfg)
		fmt.Fprintln(w, "Configuration:")
		fmt.Fprintf(w, "  Base URL:       %s\n", valueOrDefault(a.cfg.Default.BaseURL, whatsthat.DefaultBaseURL))
		fmt.Fprintf(w, "  Env:            %s\n", valueOrDefault(a.cfg.Default.Env, "(not set)"))
		fmt.Fprintf(w, "  Trailing space: %t\n", a.cfg.trailingSpace())
		fmt.Fprintf(w, "  State:          %s\n", path)

		fmt.Fprintln(w)
		sess := a.client.Session()
		if !sess.LoggedIn() {
			fmt.Fprintln(w, "Not logged in.")
			return nil
		}

		ctx, cancel := commandContext()
		defer cancel()

		me, err := a.client.Users.Get(ctx, sess.UserID)
		if err != nil {
			fmt.Fprintf(w, "Logged in as user %s (profile unavailable: %s)\n", sess.UserID, errorText(err))
			return nil
		}
		fmt.Fprintf(w, "Logged in as %s <%s> (user %s)\n", me.FullName(), me.Email, me.UserID)
		return nil
	},
}
