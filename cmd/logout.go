package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"minifeed/auth"
	"minifeed/notify"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.TokenFile == "" {
			if cfg.Token != "" {
				return errors.New("the token comes from TOKEN; unset it to log out")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
			return nil
		}
		if err := (auth.FileToken{Path: cfg.TokenFile}).Clear(); err != nil {
			return err
		}
		sink := notify.TerminalSink{Out: cmd.ErrOrStderr(), Hints: loginHints}
		logout(sink, sink)
		return nil
	},
}

func logout(sink notify.Sink, nav notify.Navigator) {
	sink.Notify(notify.Notification{Level: notify.LevelSuccess, Title: "Logged out successfully"})
	nav.Navigate(notify.LoginPath)
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
