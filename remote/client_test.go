package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minifeed/auth"
	"minifeed/domain/user"
)

type recorded struct {
	method      string
	path        string
	query       string
	auth        string
	contentType string
	body        followRequest
}

func newServer(t *testing.T, register func(r *mux.Router)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rec := recorded{
				method:      req.Method,
				path:        req.URL.Path,
				query:       req.URL.RawQuery,
				auth:        req.Header.Get("Authorization"),
				contentType: req.Header.Get("Content-Type"),
			}
			if req.Method == http.MethodPost {
				_ = json.NewDecoder(req.Body).Decode(&rec.body)
			}
			calls = append(calls, rec)
			next.ServeHTTP(rw, req)
		})
	})
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api", auth.StaticToken("tok"))
	require.NoError(t, err)
	return c, &calls
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func TestClient_FetchFeed(t *testing.T) {
	c, calls := newServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/posts/getallbyuserfollowing/{id}", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, []map[string]any{
				{"id": 10, "authorId": 2, "content": "b"},
				{"id": 9, "authorId": 3, "content": "a"},
			})
		}).Methods(http.MethodGet)
	})

	posts, err := c.FetchFeed(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(10), posts[0].Id, "server order is kept")
	assert.Equal(t, int64(2), posts[0].AuthorId)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/posts/getallbyuserfollowing/1", (*calls)[0].path)
	assert.Equal(t, "Bearer tok", (*calls)[0].auth)
}

func TestClient_FeedPathIsConfigurable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/users/getbyid/5", req.URL.Path)
		writeJSON(rw, []any{})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/", auth.StaticToken("tok"), WithFeedPath("users/getbyid/{id}"))
	require.NoError(t, err)

	posts, err := c.FetchFeed(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestClient_ListUsers(t *testing.T) {
	c, _ := newServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/users/getall", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, []user.User{
				{Id: 1, DisplayName: "Me"},
				{Id: 2, DisplayName: "Two", Email: "two@example.com"},
			})
		}).Methods(http.MethodGet)
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2, "the client does not filter the session user")
	assert.Equal(t, "two", users[1].Handle())
}

func TestClient_CheckFollowing(t *testing.T) {
	c, calls := newServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/users/isfollowing", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, req.URL.Query().Get("followingId") == "2")
		}).Methods(http.MethodGet)
	})

	ok, err := c.CheckFollowing(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CheckFollowing(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "followingId=2&userId=1", (*calls)[0].query)
}

func TestClient_FollowAndUnfollow(t *testing.T) {
	c, calls := newServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/follows/add", func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusCreated)
		}).Methods(http.MethodPost)
		r.HandleFunc("/api/follows/delete", func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusNoContent)
		}).Methods(http.MethodPost)
	})

	require.NoError(t, c.Follow(context.Background(), 1, 3))
	require.NoError(t, c.Unfollow(context.Background(), 1, 3))

	require.Len(t, *calls, 2)
	for i, path := range []string{"/api/follows/add", "/api/follows/delete"} {
		call := (*calls)[i]
		assert.Equal(t, http.MethodPost, call.method)
		assert.Equal(t, path, call.path)
		assert.Equal(t, "application/json", call.contentType)
		assert.Equal(t, "Bearer tok", call.auth)
		assert.Equal(t, followRequest{UserId: 1, FollowingId: 3}, call.body)
	}
}

func TestClient_ConflictIsSuccess(t *testing.T) {
	c, _ := newServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/follows/{op}", func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusConflict)
			_, _ = rw.Write([]byte(`{"message":"already following"}`))
		}).Methods(http.MethodPost)
	})

	assert.NoError(t, c.Follow(context.Background(), 1, 2))
	assert.NoError(t, c.Unfollow(context.Background(), 1, 2))
}

func TestClient_SupplementaryEndpoints(t *testing.T) {
	c, calls := newServer(t, func(r *mux.Router) {
		r.HandleFunc("/api/users/getbyid/{id}", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, user.User{Id: 4, DisplayName: "Four"})
		}).Methods(http.MethodGet)
		r.HandleFunc("/api/users/getfollowers/{id}", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, []user.User{{Id: 5}})
		}).Methods(http.MethodGet)
		r.HandleFunc("/api/users/getfollowing/{id}", func(rw http.ResponseWriter, req *http.Request) {
			writeJSON(rw, []user.User{{Id: 6}, {Id: 7}})
		}).Methods(http.MethodGet)
	})

	u, err := c.GetUser(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Four", u.DisplayName)

	followers, err := c.GetFollowers(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, followers, 1)

	following, err := c.GetFollowing(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, following, 2)

	assert.Equal(t, "/api/users/getbyid/4", (*calls)[0].path)
	assert.Equal(t, "/api/users/getfollowers/4", (*calls)[1].path)
	assert.Equal(t, "/api/users/getfollowing/4", (*calls)[2].path)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(status)
		_, _ = rw.Write([]byte("boom"))
	}))

	c, err := NewClient(srv.URL, auth.StaticToken("tok"))
	require.NoError(t, err)

	for _, s := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		status = s
		_, err = c.ListUsers(context.Background())
		var ae *AuthError
		require.True(t, errors.As(err, &ae), "status %d", s)
		assert.Equal(t, s, ae.Status)
	}

	status = http.StatusInternalServerError
	_, err = c.FetchFeed(context.Background(), 1)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Equal(t, "boom", re.Body)

	status = http.StatusConflict
	_, err = c.CheckFollowing(context.Background(), 1, 2)
	require.True(t, errors.As(err, &re), "409 is only forgiven for follow/unfollow")

	srv.Close()
	err = c.Follow(context.Background(), 1, 2)
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))
}

func TestClient_TokenFailureIsAuthError(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		hit = true
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, auth.StaticToken(""))
	require.NoError(t, err)

	_, err = c.ListUsers(context.Background())
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.ErrorIs(t, err, auth.ErrNoToken)
	assert.False(t, hit, "no request without a token")
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		_, _ = rw.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, auth.StaticToken("tok"))
	require.NoError(t, err)

	_, err = c.ListUsers(context.Background())
	var re *RemoteError
	assert.True(t, errors.As(err, &re))
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("api/", auth.StaticToken("tok"))
	assert.Error(t, err)
}
