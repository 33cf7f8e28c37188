package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/birbparty/flat-client/sdk"
	"github.com/birbparty/flat-client/sdk/requests"
	"github.com/spf13/cobra"
)

func loginCmd(opts *rootOptions) *cobra.Command {
	var phone, email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a phone number or email and a password",
		Example: `  flatctl login --email dev@flat.test --password flat-dev
  FLAT_PASSWORD=secret flatctl login --phone +8613800000000`,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if password == "" {
				password = os.Getenv("FLAT_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required (--password or FLAT_PASSWORD)")
			}

			var req requests.PasswordLogin
			switch {
			case email != "":
				req = requests.EmailLogin(email, password)
			case phone != "":
				req = requests.PhoneLogin(phone, password)
			default:
				return errors.New("one of --phone or --email is required")
			}

			user, err := sdk.Do[sdk.User](cmd.Context(), a.provider, req)
			if err != nil {
				a.session.ProcessLoginFailure(err)
				return describe(err)
			}
			if err := a.session.ProcessLoginSuccess(cmd.Context(), user); err != nil {
				return fmt.Errorf("signed in but the session could not be saved: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Name, user.UserUUID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (default FLAT_PASSWORD)")
	cmd.MarkFlagsMutuallyExclusive("phone", "email")
	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if a.session.IsAuthenticated() {
				// the local session goes regardless of what the server says
				if _, err := sdk.Do[struct{}](cmd.Context(), a.provider, requests.Logout{}); err != nil {
					a.logger.WithError(err).Warn("Server logout failed")
				}
			}
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		}),
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			user, ok := a.session.User()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nuuid:   %s\navatar: %s\nphone:  %t\n", user.Name, user.UserUUID, user.AvatarURL, user.HasPhone)
			return nil
		}),
	}
}

func accountsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts that signed in on this machine",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			users, err := a.accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No known accounts")
				return nil
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "NAME\tUUID")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\n", u.Name, u.UserUUID)
			}
			return w.Flush()
		}),
	}
}

// describe turns API errors into messages fit for a terminal
func describe(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case sdk.IsSessionExpired(err):
		return errors.New("your session expired, run `flatctl login` again")
	case apiErr.Type == sdk.ErrorTypeServer:
		if code, ok := apiErr.ServerCode(); ok {
			return fmt.Errorf("%s failed: %s (code %d)", apiErr.Path, code, int(code))
		}
	}
	return err
}
