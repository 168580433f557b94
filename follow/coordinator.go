package follow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"minifeed/domain/feed"
	"minifeed/domain/user"
	"minifeed/followstate"
	"minifeed/notify"
	"minifeed/remote"
)

// PreconditionError means the toggle was refused before anything changed.
type PreconditionError struct {
	TargetId int64
	Reason   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot toggle follow for user %d: %s", e.TargetId, e.Reason)
}

type Remote interface {
	Follow(ctx context.Context, userId, targetId int64) error
	Unfollow(ctx context.Context, userId, targetId int64) error
}

type Refresher interface {
	Refresh(ctx context.Context, session *user.Session) feed.Snapshot
}

type Outcome struct {
	TargetId  int64
	Following bool
	Snapshot  feed.Snapshot
}

// Coordinator runs one follow/unfollow action: optimistic flip, remote
// call, then a full refresh on success or a rollback on failure.
type Coordinator struct {
	remote    Remote
	store     *followstate.Store
	refresher Refresher
	sink      notify.Sink
	navigator notify.Navigator
	log       *zap.Logger

	mu      sync.Mutex
	pending map[int64]struct{}
}

func NewCoordinator(r Remote, store *followstate.Store, refresher Refresher, sink notify.Sink, nav notify.Navigator, log *zap.Logger) *Coordinator {
	if sink == nil {
		sink = notify.Discard{}
	}
	if nav == nil {
		nav = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		remote:    r,
		store:     store,
		refresher: refresher,
		sink:      sink,
		navigator: nav,
		log:       log,
		pending:   make(map[int64]struct{}),
	}
}

func (c *Coordinator) ToggleFollow(ctx context.Context, session *user.Session, targetId int64) (Outcome, error) {
	if session == nil {
		return Outcome{}, &PreconditionError{TargetId: targetId, Reason: "no session"}
	}
	if !c.acquire(targetId) {
		return Outcome{}, &PreconditionError{TargetId: targetId, Reason: "a toggle is already in progress"}
	}
	defer c.release(targetId)

	was, version, ok := c.store.Flip(targetId)
	if !ok {
		return Outcome{}, &PreconditionError{TargetId: targetId, Reason: "follow state unknown"}
	}
	log := c.log.With(zap.Int64("userId", session.Id), zap.Int64("targetId", targetId), zap.Bool("wasFollowing", was))
	log.Debug("toggle started")

	var err error
	if was {
		err = c.remote.Unfollow(ctx, session.Id, targetId)
	} else {
		err = c.remote.Follow(ctx, session.Id, targetId)
	}
	if err != nil {
		following := was
		// A refresh published since the flip is server truth; keep it.
		if c.store.RestoreIf(targetId, was, version) {
			log.Warn("toggle failed, rolled back", zap.Error(err))
		} else {
			if v, known := c.store.Get(targetId); known {
				following = v
			}
			log.Warn("toggle failed, keeping newer state", zap.Error(err), zap.Bool("following", following))
		}
		c.sink.Notify(notify.Notification{Level: notify.LevelError, Title: "Operation failed", Description: err.Error()})
		var ae *remote.AuthError
		if errors.As(err, &ae) {
			c.navigator.Navigate(notify.LoginPath)
		}
		return Outcome{TargetId: targetId, Following: following}, err
	}

	title := "Followed successfully"
	if was {
		title = "Unfollowed successfully"
	}
	c.sink.Notify(notify.Notification{Level: notify.LevelSuccess, Title: title})

	snap := c.refresher.Refresh(ctx, session)
	following, known := c.store.Get(targetId)
	if !known {
		following = !was
	}
	if following == was {
		log.Info("server disagrees with toggle", zap.Bool("following", following))
	}
	log.Debug("toggle done", zap.Bool("following", following), zap.String("phase", string(snap.Phase)))
	return Outcome{TargetId: targetId, Following: following, Snapshot: snap}, nil
}

func (c *Coordinator) acquire(targetId int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[targetId]; busy {
		return false
	}
	c.pending[targetId] = struct{}{}
	return true
}

func (c *Coordinator) release(targetId int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, targetId)
}
