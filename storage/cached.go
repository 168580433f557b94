package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"minifeed/domain/post"
	"minifeed/domain/user"
)

const cacheTTL = time.Hour

// CachedStorage is a read-through redis cache in front of another Storage.
// Writes go to the internal storage first and then drop the keys they make
// stale.
type CachedStorage struct {
	Client          *redis.Client
	InternalStorage Storage
}

func (cs *CachedStorage) usersKey() string {
	return "users:all"
}

func (cs *CachedStorage) userIdKey(userId int64) string {
	return "uid:" + strconv.FormatInt(userId, 10)
}

func (cs *CachedStorage) followKey(userId int64, followingId int64) string {
	return "follows:" + strconv.FormatInt(userId, 10) + ":" + strconv.FormatInt(followingId, 10)
}

func (cs *CachedStorage) feedKey(userId int64) string {
	return "feed:" + strconv.FormatInt(userId, 10)
}

func (cs *CachedStorage) followersKey(userId int64) string {
	return "followers:" + strconv.FormatInt(userId, 10)
}

func (cs *CachedStorage) followingKey(userId int64) string {
	return "following:" + strconv.FormatInt(userId, 10)
}

func (cs *CachedStorage) load(ctx context.Context, key string, v any) error {
	r, err := cs.Client.Get(ctx, key).Result()
	if err != nil {
		return ErrCacheMiss
	}
	if err := json.Unmarshal([]byte(r), v); err != nil {
		return ErrCacheMiss
	}
	return nil
}

func (cs *CachedStorage) store(ctx context.Context, key string, v any) {
	res, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = cs.Client.Set(ctx, key, string(res), cacheTTL)
}

func (cs *CachedStorage) drop(ctx context.Context, keys ...string) {
	cs.Client.Del(ctx, keys...)
}

func (cs *CachedStorage) AddUser(ctx context.Context, u *user.User) error {
	if err := cs.InternalStorage.AddUser(ctx, u); err != nil {
		return err
	}
	cs.drop(ctx, cs.usersKey(), cs.userIdKey(u.Id))
	return nil
}

func (cs *CachedStorage) GetUser(ctx context.Context, userId int64) (*user.User, error) {
	var u user.User
	if cs.load(ctx, cs.userIdKey(userId), &u) == nil {
		return &u, nil
	}
	p, err := cs.InternalStorage.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	cs.store(ctx, cs.userIdKey(userId), p)
	return p, nil
}

func (cs *CachedStorage) ListUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if cs.load(ctx, cs.usersKey(), &users) == nil {
		return users, nil
	}
	users, err := cs.InternalStorage.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	cs.store(ctx, cs.usersKey(), users)
	return users, nil
}

func (cs *CachedStorage) Follow(ctx context.Context, userId int64, followingId int64) error {
	if err := cs.InternalStorage.Follow(ctx, userId, followingId); err != nil {
		return err
	}
	cs.dropEdge(ctx, userId, followingId)
	return nil
}

func (cs *CachedStorage) Unfollow(ctx context.Context, userId int64, followingId int64) error {
	if err := cs.InternalStorage.Unfollow(ctx, userId, followingId); err != nil {
		return err
	}
	cs.dropEdge(ctx, userId, followingId)
	return nil
}

func (cs *CachedStorage) dropEdge(ctx context.Context, userId int64, followingId int64) {
	cs.drop(ctx,
		cs.followKey(userId, followingId),
		cs.feedKey(userId),
		cs.followingKey(userId),
		cs.followersKey(followingId),
	)
}

func (cs *CachedStorage) IsFollowing(ctx context.Context, userId int64, followingId int64) (bool, error) {
	var following bool
	if cs.load(ctx, cs.followKey(userId, followingId), &following) == nil {
		return following, nil
	}
	following, err := cs.InternalStorage.IsFollowing(ctx, userId, followingId)
	if err != nil {
		return false, err
	}
	cs.store(ctx, cs.followKey(userId, followingId), following)
	return following, nil
}

func (cs *CachedStorage) GetFollowers(ctx context.Context, userId int64) ([]user.User, error) {
	var users []user.User
	if cs.load(ctx, cs.followersKey(userId), &users) == nil {
		return users, nil
	}
	users, err := cs.InternalStorage.GetFollowers(ctx, userId)
	if err != nil {
		return nil, err
	}
	cs.store(ctx, cs.followersKey(userId), users)
	return users, nil
}

func (cs *CachedStorage) GetFollowing(ctx context.Context, userId int64) ([]user.User, error) {
	var users []user.User
	if cs.load(ctx, cs.followingKey(userId), &users) == nil {
		return users, nil
	}
	users, err := cs.InternalStorage.GetFollowing(ctx, userId)
	if err != nil {
		return nil, err
	}
	cs.store(ctx, cs.followingKey(userId), users)
	return users, nil
}

// AddPost drops the cached feed of every follower of the author.
func (cs *CachedStorage) AddPost(ctx context.Context, userId int64, p *post.Post) error {
	if err := cs.InternalStorage.AddPost(ctx, userId, p); err != nil {
		return err
	}
	followers, err := cs.InternalStorage.GetFollowers(ctx, userId)
	if err != nil {
		return err
	}
	if len(followers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(followers))
	for _, f := range followers {
		keys = append(keys, cs.feedKey(f.Id))
	}
	cs.drop(ctx, keys...)
	return nil
}

func (cs *CachedStorage) GetFeed(ctx context.Context, userId int64) ([]post.Post, error) {
	var posts []post.Post
	if cs.load(ctx, cs.feedKey(userId), &posts) == nil {
		return posts, nil
	}
	posts, err := cs.InternalStorage.GetFeed(ctx, userId)
	if err != nil {
		return nil, err
	}
	cs.store(ctx, cs.feedKey(userId), posts)
	return posts, nil
}
