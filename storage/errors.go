package storage

import "errors"

var ErrUserNotFound = errors.New("user not found")
var ErrAlreadyFollowing = errors.New("already following")
var ErrNotFollowing = errors.New("not following")
var ErrInvalidFollow = errors.New("cannot follow this user")
var ErrCacheMiss = errors.New("cache miss")
