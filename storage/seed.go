package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"minifeed/domain/post"
	"minifeed/domain/user"
)

type Seed struct {
	Users []struct {
		Id       int64  `yaml:"id"`
		FullName string `yaml:"fullName"`
		Avatar   string `yaml:"avatar"`
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
	} `yaml:"users"`
	Follows []struct {
		UserId      int64 `yaml:"userId"`
		FollowingId int64 `yaml:"followingId"`
	} `yaml:"follows"`
	Posts []struct {
		AuthorId  int64     `yaml:"authorId"`
		Content   string    `yaml:"content"`
		CreatedAt time.Time `yaml:"createdAt"`
	} `yaml:"posts"`
}

func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

// Apply writes the seed into st. Follows that already exist are skipped, so
// a seed can be applied to a non-empty store.
func (s *Seed) Apply(ctx context.Context, st Storage) error {
	for _, u := range s.Users {
		if err := st.AddUser(ctx, &user.User{
			Id:          u.Id,
			DisplayName: u.FullName,
			AvatarRef:   u.Avatar,
			Username:    u.Username,
			Email:       u.Email,
		}); err != nil {
			return fmt.Errorf("seed user %d: %w", u.Id, err)
		}
	}
	for _, f := range s.Follows {
		err := st.Follow(ctx, f.UserId, f.FollowingId)
		if err != nil && !errors.Is(err, ErrAlreadyFollowing) {
			return fmt.Errorf("seed follow %d->%d: %w", f.UserId, f.FollowingId, err)
		}
	}
	for _, p := range s.Posts {
		if err := st.AddPost(ctx, p.AuthorId, &post.Post{Content: p.Content, CreatedAt: p.CreatedAt}); err != nil {
			return fmt.Errorf("seed post by %d: %w", p.AuthorId, err)
		}
	}
	return nil
}
