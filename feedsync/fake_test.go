package feedsync

import (
	"context"
	"sync"

	"minifeed/domain/post"
	"minifeed/domain/user"
)

// fakeRemote serves canned data. FetchFeed calls are numbered from 1; a call
// with a gate reads its answer on entry and only returns once the gate is
// closed.
type fakeRemote struct {
	mu       sync.Mutex
	posts    map[int64][]post.Post
	users    []user.User
	follows  map[int64]map[int64]bool
	feedErr  error
	usersErr error
	checkErr map[int64]error

	feedGates map[int]chan struct{}
	feedCalls int
	checks    int

	inflight    int
	maxInflight int
}

func newFake() *fakeRemote {
	return &fakeRemote{
		posts:     map[int64][]post.Post{},
		follows:   map[int64]map[int64]bool{},
		checkErr:  map[int64]error{},
		feedGates: map[int]chan struct{}{},
	}
}

func (f *fakeRemote) setFollow(userId, targetId int64, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.follows[userId] == nil {
		f.follows[userId] = map[int64]bool{}
	}
	f.follows[userId][targetId] = v
}

func (f *fakeRemote) setPosts(userId int64, posts []post.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[userId] = posts
}

func (f *fakeRemote) setFeedErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedErr = err
}

func (f *fakeRemote) gate(call int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.feedGates[call] = ch
	return ch
}

func (f *fakeRemote) FeedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedCalls
}

func (f *fakeRemote) FetchFeed(ctx context.Context, userId int64) ([]post.Post, error) {
	f.mu.Lock()
	f.feedCalls++
	gate := f.feedGates[f.feedCalls]
	posts := append([]post.Post{}, f.posts[userId]...)
	err := f.feedErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (f *fakeRemote) ListUsers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]user.User{}, f.users...), nil
}

func (f *fakeRemote) CheckFollowing(_ context.Context, userId, targetId int64) (bool, error) {
	f.mu.Lock()
	f.checks++
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	err := f.checkErr[targetId]
	v := f.follows[userId][targetId]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()
	if err != nil {
		return false, err
	}
	return v, nil
}
