package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"minifeed/api"
	"minifeed/domain/user"
	"minifeed/storage"
)

var devapiCmd = &cobra.Command{
	Use:   "devapi",
	Short: "Serve a local social API",
	Long: `Serve the social API the client talks to, backed by memory, or by MongoDB
when MONGO_URL is set. REDIS_URL puts a redis cache in front of the store and
SEED_FILE loads users, follows and posts on start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, closeStorage, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer closeStorage()

		if cfg.SeedFile != "" {
			seed, err := storage.LoadSeed(cfg.SeedFile)
			if err != nil {
				return err
			}
			if err := seed.Apply(ctx, st); err != nil {
				return err
			}
			logger.Info("seed applied", zap.String("file", cfg.SeedFile), zap.Int("users", len(seed.Users)))
		}

		srv, err := api.MakeServer(":"+strconv.Itoa(cfg.ServerPort), st, []byte(cfg.JWTSecret), logger)
		if err != nil {
			return err
		}
		return serve(ctx, srv)
	},
}

func serve(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStorage(ctx context.Context) (storage.Storage, func(), error) {
	var st storage.Storage = storage.NewInMemoryStorage()
	closers := []func(){}
	if cfg.MongoURL != "" {
		m, client, err := storage.NewMongoStorage(ctx, cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		st = m
		logger.Info("using mongo storage", zap.String("db", cfg.MongoDBName))
	}
	if cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := rdb.Ping(ctx).Err(); err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		st = &storage.CachedStorage{Client: rdb, InternalStorage: st}
		logger.Info("using redis cache", zap.String("addr", cfg.RedisURL))
	}
	return st, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a user of the local API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
		userId, _ := cmd.Flags().GetInt64("user")
		name, _ := cmd.Flags().GetString("name")
		avatar, _ := cmd.Flags().GetString("avatar")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if userId == 0 {
			return errors.New("--user is required")
		}
		token, err := api.IssueToken([]byte(cfg.JWTSecret), user.User{Id: userId, DisplayName: name, AvatarRef: avatar}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devapiCmd)
	devapiCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Int64("user", 0, "user id the token is issued for")
	tokenCmd.Flags().String("name", "", "display name carried in the token")
	tokenCmd.Flags().String("avatar", "", "avatar reference carried in the token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
