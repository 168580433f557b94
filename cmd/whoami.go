package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if a.session == nil {
			fmt.Fprintln(w, "Not signed in")
			return nil
		}
		fmt.Fprintf(w, "%s (id %d)\n", a.session.DisplayName, a.session.Id)
		if a.session.AvatarRef != "" {
			fmt.Fprintf(w, "  avatar: %s\n", a.session.AvatarRef)
		}
		u, err := a.client.GetUser(cmd.Context(), a.session.Id)
		if err != nil {
			return err
		}
		if h := handle(*u); h != "" {
			fmt.Fprintf(w, "  handle: %s\n", h)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
