package feedsync

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"minifeed/domain/feed"
	"minifeed/domain/post"
	"minifeed/domain/user"
	"minifeed/followstate"
	"minifeed/notify"
	"minifeed/remote"
)

// Remote is the part of the social API a refresh needs.
type Remote interface {
	FetchFeed(ctx context.Context, userId int64) ([]post.Post, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	CheckFollowing(ctx context.Context, userId, targetId int64) (bool, error)
}

type Config struct {
	// Workers bounds concurrent follow-status checks. 1 or less checks
	// candidates one at a time.
	Workers int
}

// Controller runs the refresh sequence and owns the published Snapshot.
// Refresh may be called concurrently: results are published in start
// order, and a refresh that finishes after a newer one has been published
// is dropped.
type Controller struct {
	remote    Remote
	store     *followstate.Store
	sink      notify.Sink
	navigator notify.Navigator
	log       *zap.Logger
	workers   int

	mu        sync.Mutex
	started   uint64
	published uint64
	snap      feed.Snapshot
}

func NewController(r Remote, store *followstate.Store, sink notify.Sink, nav notify.Navigator, log *zap.Logger, cfg Config) *Controller {
	if sink == nil {
		sink = notify.Discard{}
	}
	if nav == nil {
		nav = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	snap := feed.Empty()
	snap.Phase = feed.PhaseLoading
	return &Controller{
		remote:    r,
		store:     store,
		sink:      sink,
		navigator: nav,
		log:       log,
		workers:   workers,
		snap:      snap,
	}
}

func (c *Controller) Store() *followstate.Store {
	return c.store
}

// Snapshot returns the current Snapshot. Follow state is read from the
// store, so optimistic flips made between refreshes are visible.
func (c *Controller) Snapshot() feed.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current()
}

func (c *Controller) current() feed.Snapshot {
	snap := c.snap.Clone()
	entries := c.store.Entries()
	snap.FollowState = make(map[int64]bool, len(snap.Candidates))
	for _, u := range snap.Candidates {
		if v, ok := entries[u.Id]; ok {
			snap.FollowState[u.Id] = v
		}
	}
	return snap
}

// RefreshFeed is the user-triggered refresh ("Refresh Feed", "Discover
// People", "Retry"). It behaves like Refresh and confirms a successful
// result with a notification.
func (c *Controller) RefreshFeed(ctx context.Context, session *user.Session) feed.Snapshot {
	snap := c.Refresh(ctx, session)
	if snap.Phase == feed.PhaseReady {
		c.sink.Notify(notify.Notification{Level: notify.LevelSuccess, Title: "Feed refreshed"})
	}
	return snap
}

type result struct {
	posts      []post.Post
	candidates []user.User
	following  map[int64]bool
}

func (c *Controller) Refresh(ctx context.Context, session *user.Session) feed.Snapshot {
	token := c.begin()
	log := c.log.With(zap.Uint64("token", token))

	if session == nil {
		log.Debug("refresh without session")
		return c.publish(token, &result{following: map[int64]bool{}}, nil)
	}
	log = log.With(zap.Int64("userId", session.Id))
	log.Debug("refresh started")

	res, err := c.fetch(ctx, session.Id)
	if err != nil {
		log.Warn("refresh failed", zap.Error(err))
	} else {
		log.Debug("refresh fetched",
			zap.Int("posts", len(res.posts)),
			zap.Int("candidates", len(res.candidates)),
		)
	}
	return c.publish(token, res, err)
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
	c.snap.Phase = feed.PhaseLoading
	c.snap.Error = ""
	return c.started
}

func (c *Controller) fetch(ctx context.Context, sessionId int64) (*result, error) {
	posts, err := c.remote.FetchFeed(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	users, err := c.remote.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	candidates := user.WithoutSession(users, sessionId)
	following, err := c.checkAll(ctx, sessionId, candidates)
	if err != nil {
		return nil, err
	}
	return &result{posts: posts, candidates: candidates, following: following}, nil
}

// checkAll resolves the follow state of every candidate or fails as a
// whole on the first error.
func (c *Controller) checkAll(ctx context.Context, sessionId int64, candidates []user.User) (map[int64]bool, error) {
	states := make([]bool, len(candidates))
	if c.workers == 1 {
		for i, u := range candidates {
			v, err := c.remote.CheckFollowing(ctx, sessionId, u.Id)
			if err != nil {
				return nil, err
			}
			states[i] = v
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for i, u := range candidates {
			i, targetId := i, u.Id
			g.Go(func() error {
				v, err := c.remote.CheckFollowing(gctx, sessionId, targetId)
				if err != nil {
					return err
				}
				states[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	following := make(map[int64]bool, len(candidates))
	for i, u := range candidates {
		following[u.Id] = states[i]
	}
	return following, nil
}

func (c *Controller) publish(token uint64, res *result, err error) feed.Snapshot {
	c.mu.Lock()
	// An error only matters for the newest refresh; an older one failing
	// while a newer one is in flight has nothing to say about current state.
	if token < c.published || (err != nil && token < c.started) {
		published := c.published
		snap := c.current()
		c.mu.Unlock()
		c.log.Debug("dropping stale refresh", zap.Uint64("token", token), zap.Uint64("published", published), zap.Error(err))
		return snap
	}
	c.published = token

	phase := feed.PhaseReady
	if token < c.started {
		phase = feed.PhaseLoading
	}
	if err != nil {
		c.snap.Phase = feed.PhaseError
		c.snap.Error = err.Error()
		snap := c.current()
		c.mu.Unlock()

		c.sink.Notify(notify.Notification{
			Level:       notify.LevelError,
			Title:       "Error loading data",
			Description: "Could not fetch data. Please try again later.",
		})
		var ae *remote.AuthError
		if errors.As(err, &ae) {
			c.navigator.Navigate(notify.LoginPath)
		}
		return snap
	}

	posts := res.posts
	if posts == nil {
		posts = []post.Post{}
	}
	candidates := res.candidates
	if candidates == nil {
		candidates = []user.User{}
	}
	c.store.Replace(res.following)
	c.snap = feed.Snapshot{
		Posts:      posts,
		Candidates: candidates,
		Phase:      phase,
	}
	snap := c.current()
	c.mu.Unlock()
	return snap
}
