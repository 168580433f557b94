package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"minifeed/auth"
	"minifeed/domain/post"
	"minifeed/domain/user"
)

const (
	DefaultFeedPath = "posts/getallbyuserfollowing/{id}"

	maxErrorBody = 4 << 10
)

// Client maps each social API operation onto one HTTP request. It keeps no
// state between calls and never retries.
type Client struct {
	baseURL  *url.URL
	tokens   auth.TokenProvider
	feedPath string
	http     *http.Client
	log      *zap.Logger
}

type Option func(*Client)

// WithFeedPath sets the feed endpoint template; "{id}" is replaced by the
// session user id.
func WithFeedPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.feedPath = path
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func NewClient(baseURL string, tokens auth.TokenProvider, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}
	c := &Client{
		baseURL:  u,
		tokens:   tokens,
		feedPath: DefaultFeedPath,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type followRequest struct {
	UserId      int64 `json:"userId"`
	FollowingId int64 `json:"followingId"`
}

func (c *Client) FetchFeed(ctx context.Context, userId int64) ([]post.Post, error) {
	path := strings.ReplaceAll(c.feedPath, "{id}", formatId(userId))
	posts := make([]post.Post, 0)
	if err := c.get(ctx, "fetch feed", path, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := c.get(ctx, "list users", "users/getall", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CheckFollowing(ctx context.Context, userId, targetId int64) (bool, error) {
	q := url.Values{}
	q.Set("userId", formatId(userId))
	q.Set("followingId", formatId(targetId))
	var following bool
	if err := c.get(ctx, "check following", "users/isfollowing?"+q.Encode(), &following); err != nil {
		return false, err
	}
	return following, nil
}

// Follow treats 409 (already following) as success.
func (c *Client) Follow(ctx context.Context, userId, targetId int64) error {
	return c.post(ctx, "follow", "follows/add", followRequest{UserId: userId, FollowingId: targetId})
}

// Unfollow treats 409 (not following) as success.
func (c *Client) Unfollow(ctx context.Context, userId, targetId int64) error {
	return c.post(ctx, "unfollow", "follows/delete", followRequest{UserId: userId, FollowingId: targetId})
}

func (c *Client) GetUser(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	if err := c.get(ctx, "get user", "users/getbyid/"+formatId(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetFollowers(ctx context.Context, userId int64) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := c.get(ctx, "get followers", "users/getfollowers/"+formatId(userId), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetFollowing(ctx context.Context, userId int64) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := c.get(ctx, "get following", "users/getfollowing/"+formatId(userId), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}
	resp, err := c.do(ctx, op, http.MethodPost, path, raw)
	var re *RemoteError
	if errors.As(err, &re) && re.Status == http.StatusConflict {
		c.log.Debug("treating conflict as success", zap.String("op", op))
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// do sends one request. On a non-2xx answer the body is consumed and closed
// and the matching error returned; otherwise the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &AuthError{Op: op, Err: err}
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%s: bad path %q: %w", op, path, err)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", op), zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &NetworkError{Op: op, Err: err}
	}
	c.log.Debug("request done",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Op: op, Status: resp.StatusCode}
	}
	return nil, &RemoteError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

func formatId(id int64) string {
	return strconv.FormatInt(id, 10)
}
