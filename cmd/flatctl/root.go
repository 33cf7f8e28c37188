package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
	store   string
	profile string
	apiURL  string
}

// NewRootCmd configures the root command with all subcommands and flags
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "flatctl",
		Short: "flatctl - Flat API client",
		Long: `flatctl signs in to Flat, lists and joins rooms, and follows whiteboard
conversions from the terminal.

The session is kept in the store selected by FLAT_SESSION_BACKEND (keyring by default).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "session store: memory, keyring, redis, postgres, sqlite or spaces")
	rootCmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "keep a separate session under this name")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "Flat API base URL (default FLAT_API_URL)")

	rootCmd.AddCommand(loginCmd(opts))
	rootCmd.AddCommand(logoutCmd(opts))
	rootCmd.AddCommand(whoamiCmd(opts))
	rootCmd.AddCommand(accountsCmd(opts))
	rootCmd.AddCommand(roomsCmd(opts))
	rootCmd.AddCommand(joinCmd(opts))
	rootCmd.AddCommand(convertCmd(opts))
	rootCmd.AddCommand(convertStatusCmd(opts))
	rootCmd.AddCommand(historyCmd(opts))
	rootCmd.AddCommand(eventsCmd(opts))

	return rootCmd
}

// withApp builds the app for the duration of one command
func withApp(opts *rootOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
