package feedsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"minifeed/domain/feed"
	"minifeed/domain/post"
	"minifeed/domain/user"
	"minifeed/followstate"
	"minifeed/notify"
	"minifeed/remote"
)

var me = &user.Session{Id: 1, DisplayName: "Me"}

func setup(t *testing.T, workers int) (*Controller, *fakeRemote, *notify.Recorder) {
	t.Helper()
	f := newFake()
	f.users = []user.User{{Id: 1}, {Id: 2}, {Id: 3}}
	f.setFollow(1, 2, true)
	f.setFollow(1, 3, false)
	f.setPosts(1, []post.Post{{Id: 20, AuthorId: 2, Content: "hello"}})

	rec := &notify.Recorder{}
	c := NewController(f, followstate.NewStore(), rec, rec, zaptest.NewLogger(t), Config{Workers: workers})
	return c, f, rec
}

func assertBijection(t *testing.T, c *Controller, snap feed.Snapshot) {
	t.Helper()
	require.Equal(t, feed.PhaseReady, snap.Phase)
	assert.Len(t, snap.FollowState, len(snap.Candidates))
	for _, u := range snap.Candidates {
		_, ok := c.Store().Get(u.Id)
		assert.True(t, ok, "candidate %d has no follow entry", u.Id)
	}
}

func TestRefresh_ResolvesFollowState(t *testing.T) {
	c, _, _ := setup(t, 1)

	snap := c.Refresh(context.Background(), me)

	assertBijection(t, c, snap)
	assert.Equal(t, map[int64]bool{2: true, 3: false}, snap.FollowState)
	assert.Equal(t, []post.Post{{Id: 20, AuthorId: 2, Content: "hello"}}, snap.Posts)
	assert.Empty(t, snap.Error)
}

func TestRefresh_SessionNeverCandidate(t *testing.T) {
	c, _, _ := setup(t, 1)

	snap := c.Refresh(context.Background(), me)

	for _, u := range snap.Candidates {
		assert.NotEqual(t, me.Id, u.Id)
	}
	_, ok := snap.FollowState[me.Id]
	assert.False(t, ok)
}

func TestRefresh_EmptyFeed(t *testing.T) {
	c, f, _ := setup(t, 1)
	f.setPosts(1, nil)
	f.setFollow(1, 2, false)

	snap := c.Refresh(context.Background(), me)

	assert.Equal(t, feed.PhaseReady, snap.Phase)
	assert.NotNil(t, snap.Posts)
	assert.Empty(t, snap.Posts)
	assert.True(t, snap.IsEmpty())
}

func TestRefresh_NoSession(t *testing.T) {
	c, f, _ := setup(t, 1)
	c.Refresh(context.Background(), me)

	snap := c.Refresh(context.Background(), nil)

	assert.Equal(t, feed.PhaseReady, snap.Phase)
	assert.Empty(t, snap.Posts)
	assert.Empty(t, snap.Candidates)
	assert.Empty(t, c.Store().Entries())
	assert.Equal(t, 1, f.FeedCalls(), "anonymous viewers trigger no requests")
}

func TestRefresh_Idempotent(t *testing.T) {
	c, _, _ := setup(t, 1)

	first := c.Refresh(context.Background(), me)
	second := c.Refresh(context.Background(), me)

	assert.Equal(t, first, second)
}

func TestRefresh_FeedFailureKeepsPriorData(t *testing.T) {
	c, f, rec := setup(t, 1)
	ok := c.Refresh(context.Background(), me)

	f.setFeedErr(&remote.NetworkError{Op: "fetch feed", Err: errors.New("connection refused")})
	snap := c.Refresh(context.Background(), me)

	assert.Equal(t, feed.PhaseError, snap.Phase)
	assert.Contains(t, snap.Error, "connection refused")
	assert.Equal(t, ok.Posts, snap.Posts)
	assert.Equal(t, ok.Candidates, snap.Candidates)
	assert.Equal(t, ok.FollowState, snap.FollowState)
	assert.Equal(t, notify.LevelError, rec.Last().Level)
	assert.Equal(t, "Error loading data", rec.Last().Title)
	assert.Empty(t, rec.Paths())

	f.setFeedErr(nil)
	retried := c.RefreshFeed(context.Background(), me)
	assert.Equal(t, feed.PhaseReady, retried.Phase)
	assert.Empty(t, retried.Error)
	assert.Equal(t, "Feed refreshed", rec.Last().Title)
}

func TestRefresh_UsersFailure(t *testing.T) {
	c, f, _ := setup(t, 1)
	f.usersErr = &remote.RemoteError{Op: "list users", Status: http.StatusBadGateway}

	snap := c.Refresh(context.Background(), me)

	assert.Equal(t, feed.PhaseError, snap.Phase)
	assert.Empty(t, snap.Candidates)
}

func TestRefresh_CheckFailureFailsWholeRefresh(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			c, f, _ := setup(t, workers)
			c.Refresh(context.Background(), me)
			before := c.Store().Entries()

			f.users = append(f.users, user.User{Id: 4})
			f.setFollow(1, 2, false)
			f.checkErr[3] = &remote.NetworkError{Op: "check following", Err: errors.New("reset")}

			snap := c.Refresh(context.Background(), me)

			assert.Equal(t, feed.PhaseError, snap.Phase)
			assert.Equal(t, before, c.Store().Entries(), "no partial follow state is applied")
			assert.Len(t, snap.Candidates, 2)
		})
	}
}

func TestRefresh_AuthErrorNavigatesToLogin(t *testing.T) {
	c, f, rec := setup(t, 1)
	f.setFeedErr(&remote.AuthError{Op: "fetch feed", Status: http.StatusUnauthorized})

	snap := c.RefreshFeed(context.Background(), me)

	assert.Equal(t, feed.PhaseError, snap.Phase)
	assert.Equal(t, []string{notify.LoginPath}, rec.Paths())
	for _, n := range rec.Notifications() {
		assert.NotEqual(t, "Feed refreshed", n.Title)
	}
}

func TestRefresh_BoundedFanOutMatchesSerial(t *testing.T) {
	serial, fs, _ := setup(t, 1)
	parallel, fp, _ := setup(t, 3)
	for _, f := range []*fakeRemote{fs, fp} {
		f.users = nil
		for i := int64(1); i <= 20; i++ {
			f.users = append(f.users, user.User{Id: i})
			f.setFollow(1, i, i%3 == 0)
		}
	}

	a := serial.Refresh(context.Background(), me)
	b := parallel.Refresh(context.Background(), me)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, fs.maxInflight)
	assert.LessOrEqual(t, fp.maxInflight, 3)
	assert.Equal(t, 19, fp.checks)
}

func TestRefresh_LaterStartWins(t *testing.T) {
	c, f, _ := setup(t, 1)
	gate := f.gate(1)

	done := make(chan feed.Snapshot)
	go func() { done <- c.Refresh(context.Background(), me) }()
	require.Eventually(t, func() bool { return f.FeedCalls() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, feed.PhaseLoading, c.Snapshot().Phase)

	fresh := []post.Post{{Id: 21, AuthorId: 3, Content: "newer"}}
	f.setPosts(1, fresh)
	second := c.Refresh(context.Background(), me)
	require.Equal(t, fresh, second.Posts)

	close(gate)
	first := <-done

	assert.Equal(t, fresh, first.Posts, "the stale refresh returns the current snapshot")
	assert.Equal(t, fresh, c.Snapshot().Posts)
	assert.Equal(t, feed.PhaseReady, c.Snapshot().Phase)
}

func TestRefresh_OlderResultShownWhileNewerLoads(t *testing.T) {
	c, f, _ := setup(t, 1)
	gate1, gate2 := f.gate(1), f.gate(2)

	done1 := make(chan feed.Snapshot)
	go func() { done1 <- c.Refresh(context.Background(), me) }()
	require.Eventually(t, func() bool { return f.FeedCalls() == 1 }, time.Second, time.Millisecond)

	done2 := make(chan feed.Snapshot)
	go func() { done2 <- c.Refresh(context.Background(), me) }()
	require.Eventually(t, func() bool { return f.FeedCalls() == 2 }, time.Second, time.Millisecond)

	close(gate1)
	first := <-done1
	assert.Equal(t, feed.PhaseLoading, first.Phase, "a newer refresh is still running")
	assert.Len(t, first.Posts, 1)

	close(gate2)
	second := <-done2
	assert.Equal(t, feed.PhaseReady, second.Phase)
}

func TestRefresh_OlderFailureWhileNewerLoadsIsDropped(t *testing.T) {
	c, f, rec := setup(t, 1)
	c.Refresh(context.Background(), me)
	gate1, gate2 := f.gate(2), f.gate(3)

	f.setFeedErr(errors.New("first fails"))
	done1 := make(chan feed.Snapshot)
	go func() { done1 <- c.Refresh(context.Background(), me) }()
	require.Eventually(t, func() bool { return f.FeedCalls() == 2 }, time.Second, time.Millisecond)

	f.setFeedErr(nil)
	done2 := make(chan feed.Snapshot)
	go func() { done2 <- c.Refresh(context.Background(), me) }()
	require.Eventually(t, func() bool { return f.FeedCalls() == 3 }, time.Second, time.Millisecond)

	close(gate1)
	first := <-done1
	assert.Equal(t, feed.PhaseLoading, first.Phase)
	assert.Empty(t, first.Error)
	assert.Empty(t, rec.Notifications())

	close(gate2)
	assert.Equal(t, feed.PhaseReady, (<-done2).Phase)
}

func TestSnapshot_ReflectsStoreBetweenRefreshes(t *testing.T) {
	c, _, _ := setup(t, 1)
	c.Refresh(context.Background(), me)

	c.Store().Flip(3)

	assert.Equal(t, map[int64]bool{2: true, 3: true}, c.Snapshot().FollowState)
}

func TestSnapshot_IsCopy(t *testing.T) {
	c, _, _ := setup(t, 1)
	snap := c.Refresh(context.Background(), me)

	snap.Posts[0].Content = "mutated"
	snap.FollowState[2] = false

	again := c.Snapshot()
	assert.Equal(t, "hello", again.Posts[0].Content)
	assert.True(t, again.FollowState[2])
}
