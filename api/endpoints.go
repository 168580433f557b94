package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"minifeed/domain/post"
	"minifeed/storage"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type FollowRequest struct {
	UserId      int64 `json:"userId"`
	FollowingId int64 `json:"followingId"`
}

type PostRequest struct {
	Content string `json:"content"`
}

type HTTPHandler struct {
	storage storage.Storage
	log     *zap.Logger
}

func NewHTTPHandler(st storage.Storage, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{storage: st, log: log}
}

func (h *HTTPHandler) GetFeed(rw http.ResponseWriter, r *http.Request) {
	userId, ok := pathId(rw, r)
	if !ok {
		return
	}
	posts, err := h.storage.GetFeed(r.Context(), userId)
	if err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, posts)
}

func (h *HTTPHandler) AddPost(rw http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "Invalid body")
		return
	}
	p := post.Post{Content: req.Content}
	if err := h.storage.AddPost(r.Context(), callerId(r), &p); err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, p)
}

func (h *HTTPHandler) GetUser(rw http.ResponseWriter, r *http.Request) {
	userId, ok := pathId(rw, r)
	if !ok {
		return
	}
	u, err := h.storage.GetUser(r.Context(), userId)
	if err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, u)
}

func (h *HTTPHandler) ListUsers(rw http.ResponseWriter, r *http.Request) {
	users, err := h.storage.ListUsers(r.Context())
	if err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, users)
}

func (h *HTTPHandler) IsFollowing(rw http.ResponseWriter, r *http.Request) {
	userId, err1 := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	followingId, err2 := strconv.ParseInt(r.URL.Query().Get("followingId"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(rw, http.StatusBadRequest, "Invalid user id")
		return
	}
	following, err := h.storage.IsFollowing(r.Context(), userId, followingId)
	if err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, following)
}

func (h *HTTPHandler) GetFollowers(rw http.ResponseWriter, r *http.Request) {
	userId, ok := pathId(rw, r)
	if !ok {
		return
	}
	users, err := h.storage.GetFollowers(r.Context(), userId)
	if err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, users)
}

func (h *HTTPHandler) GetFollowing(rw http.ResponseWriter, r *http.Request) {
	userId, ok := pathId(rw, r)
	if !ok {
		return
	}
	users, err := h.storage.GetFollowing(r.Context(), userId)
	if err != nil {
		h.writeStorageError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, users)
}

func (h *HTTPHandler) Follow(rw http.ResponseWriter, r *http.Request) {
	req, ok := h.followRequest(rw, r)
	if !ok {
		return
	}
	if err := h.storage.Follow(r.Context(), req.UserId, req.FollowingId); err != nil {
		h.writeStorageError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusCreated)
}

func (h *HTTPHandler) Unfollow(rw http.ResponseWriter, r *http.Request) {
	req, ok := h.followRequest(rw, r)
	if !ok {
		return
	}
	if err := h.storage.Unfollow(r.Context(), req.UserId, req.FollowingId); err != nil {
		h.writeStorageError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

// followRequest decodes the body and checks that callers only change their
// own follows.
func (h *HTTPHandler) followRequest(rw http.ResponseWriter, r *http.Request) (FollowRequest, bool) {
	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "Invalid body")
		return req, false
	}
	if req.UserId != callerId(r) {
		writeError(rw, http.StatusForbidden, "Forbidden access")
		return req, false
	}
	return req, true
}

func (h *HTTPHandler) writeStorageError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		writeError(rw, http.StatusNotFound, "User not found")
	case errors.Is(err, storage.ErrAlreadyFollowing):
		writeError(rw, http.StatusConflict, "Already following")
	case errors.Is(err, storage.ErrNotFollowing):
		writeError(rw, http.StatusConflict, "Not following")
	case errors.Is(err, storage.ErrInvalidFollow):
		writeError(rw, http.StatusBadRequest, "Cannot follow this user")
	default:
		h.log.Error("storage failure", zap.Error(err))
		writeError(rw, http.StatusInternalServerError, "Internal error")
	}
}

func pathId(rw http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(rw, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, message string) {
	writeJSON(rw, status, ErrorResponse{Message: message})
}
