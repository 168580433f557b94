package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"minifeed/storage"
)

//go:embed openapi.yaml
var openapiDoc []byte

type ctxKey struct{}

func callerId(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

func MakeServer(addr string, st storage.Storage, secret []byte, log *zap.Logger) (*http.Server, error) {
	handler, err := NewRouter(st, secret, log)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Handler:      handler,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}, nil
}

func NewRouter(st storage.Storage, secret []byte, log *zap.Logger) (http.Handler, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	validator, err := newValidator()
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	handler := NewHTTPHandler(st, log)

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/posts/getallbyuserfollowing/{id}", handler.GetFeed).Methods(http.MethodGet)
	s.HandleFunc("/posts/add", handler.AddPost).Methods(http.MethodPost)
	s.HandleFunc("/users/getbyid/{id}", handler.GetUser).Methods(http.MethodGet)
	s.HandleFunc("/users/getall", handler.ListUsers).Methods(http.MethodGet)
	s.HandleFunc("/users/isfollowing", handler.IsFollowing).Methods(http.MethodGet)
	s.HandleFunc("/users/getfollowers/{id}", handler.GetFollowers).Methods(http.MethodGet)
	s.HandleFunc("/users/getfollowing/{id}", handler.GetFollowing).Methods(http.MethodGet)
	s.HandleFunc("/follows/add", handler.Follow).Methods(http.MethodPost)
	s.HandleFunc("/follows/delete", handler.Unfollow).Methods(http.MethodPost)

	s.Use(logging(log), authenticate(secret), validator.middleware)
	return r, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func logging(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sr.status),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}

func authenticate(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeError(rw, http.StatusUnauthorized, "Missing bearer token")
				return
			}
			claims, err := ParseToken(secret, token)
			if err != nil {
				writeError(rw, http.StatusUnauthorized, "Invalid bearer token")
				return
			}
			userId, err := claims.UserId()
			if err != nil {
				writeError(rw, http.StatusUnauthorized, "Invalid bearer token")
				return
			}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userId)))
		})
	}
}

// validator checks requests against the embedded OpenAPI document.
type validator struct {
	router routers.Router
}

func newValidator() (*validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiDoc)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi router: %w", err)
	}
	return &validator{router: router}, nil
}

func (v *validator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			writeError(rw, http.StatusNotFound, "Unknown operation")
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeError(rw, http.StatusBadRequest, validationMessage(err))
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func validationMessage(err error) string {
	var re *openapi3filter.RequestError
	if errors.As(err, &re) {
		return re.Error()
	}
	return "Invalid request"
}
