// Package cmd holds the minifeed command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"minifeed/config"
)

var (
	envFile string
	cfg     *config.Config
	logger  *zap.Logger
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "minifeed",
	Short: "Terminal client for the minifeed social API",
	Long: `minifeed shows the home feed of the signed-in user, suggests people to
follow and follows or unfollows them.

Example usage:
  minifeed home                # Feed and people to discover
  minifeed follow 42           # Follow user 42, or unfollow if already following
  minifeed devapi              # Serve a local social API to talk to`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default is .env)")
}

func initConfig() error {
	var err error
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err = config.Load(files...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err = cfg.Logger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("apiUrl", cfg.APIURL),
		zap.Int("discoverLimit", cfg.DiscoverLimit),
		zap.Int("workers", cfg.FollowCheckWorkers),
	)
	return nil
}
