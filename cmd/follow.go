package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"minifeed/domain/feed"
)

var followCmd = &cobra.Command{
	Use:   "follow <userId>",
	Short: "Follow a user, or unfollow if already following",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := a.requireSession(); err != nil {
			return err
		}

		// The follow state of the target has to be known before toggling.
		snap := a.controller.Refresh(cmd.Context(), a.session)
		if snap.Phase == feed.PhaseError {
			return errors.New(snap.Error)
		}

		out, err := a.coordinator.ToggleFollow(cmd.Context(), a.session, targetId)
		if err != nil {
			return err
		}
		state := "not following"
		if out.Following {
			state = "following"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s user %d\n", state, targetId)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(followCmd)
}
