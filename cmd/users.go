package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"minifeed/domain/user"
	"minifeed/remote"
)

func newUsersCmd(use, short, title string, list func(c *remote.Client, ctx context.Context, userId int64) ([]user.User, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [userId]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var userId int64
			if len(args) == 1 {
				userId, err = strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid user id %q", args[0])
				}
			} else {
				if err := a.requireSession(); err != nil {
					return err
				}
				userId = a.session.Id
			}
			users, err := list(a.client, cmd.Context(), userId)
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), title, users)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		newUsersCmd("followers", "List who follows a user (default: you)", "Followers", (*remote.Client).GetFollowers),
		newUsersCmd("following", "List who a user follows (default: you)", "Following", (*remote.Client).GetFollowing),
	)
}
