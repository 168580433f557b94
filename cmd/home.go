package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"minifeed/domain/feed"
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show the home feed and people to discover",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		refresh, _ := cmd.Flags().GetBool("refresh")
		a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		refreshFn := a.controller.Refresh
		if refresh {
			refreshFn = a.controller.RefreshFeed
		}
		snap := refreshFn(cmd.Context(), a.session)

		if jsonOutput {
			out := struct {
				feed.Snapshot
				Discover []feed.Suggestion `json:"discover"`
			}{snap, snap.Discover(cfg.DiscoverLimit)}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		renderSnapshot(cmd.OutOrStdout(), snap, displayNames(snap.Candidates), cfg.DiscoverLimit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(homeCmd)

	homeCmd.Flags().Bool("json", false, "output the snapshot as JSON")
	homeCmd.Flags().Bool("refresh", false, "confirm a successful reload, as the Refresh Feed action does")
}
