package storage

import (
	"context"

	"minifeed/domain/post"
	"minifeed/domain/user"
)

type Storage interface {
	AddUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, userId int64) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	Follow(ctx context.Context, userId int64, followingId int64) error
	Unfollow(ctx context.Context, userId int64, followingId int64) error
	IsFollowing(ctx context.Context, userId int64, followingId int64) (bool, error)
	GetFollowers(ctx context.Context, userId int64) ([]user.User, error)
	GetFollowing(ctx context.Context, userId int64) ([]user.User, error)
	AddPost(ctx context.Context, userId int64, p *post.Post) error
	GetFeed(ctx context.Context, userId int64) ([]post.Post, error)
}
