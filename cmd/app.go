package cmd

import (
	"context"
	"fmt"
	"io"

	"minifeed/auth"
	"minifeed/domain/user"
	"minifeed/feedsync"
	"minifeed/follow"
	"minifeed/followstate"
	"minifeed/notify"
	"minifeed/remote"
)

// app wires the client core for one command invocation.
type app struct {
	session     *user.Session
	client      *remote.Client
	controller  *feedsync.Controller
	coordinator *follow.Coordinator
}

var loginHints = map[string]string{
	notify.LoginPath: "Sign in again: set TOKEN or TOKEN_FILE to a valid token.",
}

func newApp(ctx context.Context, out io.Writer) (*app, error) {
	tokens := cfg.TokenProvider()
	session, err := auth.CurrentSession(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	client, err := remote.NewClient(cfg.APIURL, tokens, cfg.ClientOptions(logger)...)
	if err != nil {
		return nil, err
	}
	sink := notify.TerminalSink{Out: out, Hints: loginHints}
	store := followstate.NewStore()
	ctrl := feedsync.NewController(client, store, sink, sink, logger, feedsync.Config{Workers: cfg.FollowCheckWorkers})
	return &app{
		session:     session,
		client:      client,
		controller:  ctrl,
		coordinator: follow.NewCoordinator(client, store, ctrl, sink, sink, logger),
	}, nil
}

func (a *app) requireSession() error {
	if a.session == nil {
		return fmt.Errorf("not signed in: %s", loginHints[notify.LoginPath])
	}
	return nil
}
