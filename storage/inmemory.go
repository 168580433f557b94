package storage

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"minifeed/domain/post"
	"minifeed/domain/user"
	"minifeed/utils"
)

type InMemoryStorage struct {
	mu           sync.RWMutex
	Posts        *list.List
	PostIdToPost map[int64]*list.Element
	Users        []*user.User
	UserIdToIdx  map[int64]int
	Following    map[int64]map[int64]struct{}
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		Posts:        list.New(),
		PostIdToPost: make(map[int64]*list.Element),
		UserIdToIdx:  make(map[int64]int),
		Following:    make(map[int64]map[int64]struct{}),
	}
}

func (im *InMemoryStorage) AddUser(_ context.Context, u *user.User) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if u.Id == 0 {
		for {
			u.Id = utils.GenerateId()
			if _, ok := im.UserIdToIdx[u.Id]; !ok {
				break
			}
		}
	}
	stored := *u
	if idx, ok := im.UserIdToIdx[u.Id]; ok {
		im.Users[idx] = &stored
		return nil
	}
	im.UserIdToIdx[u.Id] = len(im.Users)
	im.Users = append(im.Users, &stored)
	return nil
}

func (im *InMemoryStorage) GetUser(_ context.Context, userId int64) (*user.User, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	idx, ok := im.UserIdToIdx[userId]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *im.Users[idx]
	return &u, nil
}

func (im *InMemoryStorage) ListUsers(_ context.Context) ([]user.User, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	arr := make([]user.User, 0, len(im.Users))
	for _, u := range im.Users {
		arr = append(arr, *u)
	}
	return arr, nil
}

func (im *InMemoryStorage) Follow(_ context.Context, userId int64, followingId int64) error {
	if userId == followingId {
		return ErrInvalidFollow
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.checkUsers(userId, followingId); err != nil {
		return err
	}
	set, ok := im.Following[userId]
	if !ok {
		set = make(map[int64]struct{})
		im.Following[userId] = set
	}
	if _, ok := set[followingId]; ok {
		return ErrAlreadyFollowing
	}
	set[followingId] = struct{}{}
	return nil
}

func (im *InMemoryStorage) Unfollow(_ context.Context, userId int64, followingId int64) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.checkUsers(userId, followingId); err != nil {
		return err
	}
	if _, ok := im.Following[userId][followingId]; !ok {
		return ErrNotFollowing
	}
	delete(im.Following[userId], followingId)
	return nil
}

func (im *InMemoryStorage) IsFollowing(_ context.Context, userId int64, followingId int64) (bool, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if err := im.checkUsers(userId, followingId); err != nil {
		return false, err
	}
	_, ok := im.Following[userId][followingId]
	return ok, nil
}

func (im *InMemoryStorage) GetFollowers(_ context.Context, userId int64) ([]user.User, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if err := im.checkUsers(userId); err != nil {
		return nil, err
	}
	arr := make([]user.User, 0)
	for _, u := range im.Users {
		if _, ok := im.Following[u.Id][userId]; ok {
			arr = append(arr, *u)
		}
	}
	return arr, nil
}

func (im *InMemoryStorage) GetFollowing(_ context.Context, userId int64) ([]user.User, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if err := im.checkUsers(userId); err != nil {
		return nil, err
	}
	arr := make([]user.User, 0)
	for _, u := range im.Users {
		if _, ok := im.Following[userId][u.Id]; ok {
			arr = append(arr, *u)
		}
	}
	return arr, nil
}

func (im *InMemoryStorage) AddPost(_ context.Context, userId int64, p *post.Post) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.checkUsers(userId); err != nil {
		return err
	}
	p.AuthorId = userId
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	for {
		p.Id = utils.GenerateId()
		if _, ok := im.PostIdToPost[p.Id]; !ok {
			break
		}
	}
	stored := *p
	im.Posts.PushBack(&stored)
	im.PostIdToPost[p.Id] = im.Posts.Back()
	return nil
}

// GetFeed returns posts by followed authors, newest first.
func (im *InMemoryStorage) GetFeed(_ context.Context, userId int64) ([]post.Post, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if err := im.checkUsers(userId); err != nil {
		return nil, err
	}
	arr := make([]post.Post, 0)
	following := im.Following[userId]
	for e := im.Posts.Back(); e != nil; e = e.Prev() {
		p := e.Value.(*post.Post)
		if _, ok := following[p.AuthorId]; ok {
			arr = append(arr, *p)
		}
	}
	sort.SliceStable(arr, func(i, j int) bool {
		return arr[i].CreatedAt.After(arr[j].CreatedAt)
	})
	return arr, nil
}

func (im *InMemoryStorage) checkUsers(ids ...int64) error {
	for _, id := range ids {
		if _, ok := im.UserIdToIdx[id]; !ok {
			return ErrUserNotFound
		}
	}
	return nil
}
