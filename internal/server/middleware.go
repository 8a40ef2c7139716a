package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/ArCaneSec/apidock/internal/apidoc"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const actorKey ctxKey = iota

var errUnauthenticated = errors.New("unauthenticated")

// authenticator resolves the acting user of a request, from an HS256 bearer
// token when a secret is configured, from the X-User-Id header otherwise.
type authenticator struct {
	secret []byte
}

func (a authenticator) actor(r *http.Request) (uint, bool, error) {
	if len(a.secret) == 0 {
		v := r.Header.Get("X-User-Id")
		if v == "" {
			return 0, false, nil
		}
		id, err := apidoc.ParseID(v)
		if err != nil || id == 0 {
			return 0, false, fmt.Errorf("%w: bad X-User-Id", errUnauthenticated)
		}
		return id, true, nil
	}

	h := r.Header.Get("Authorization")
	if h == "" {
		return 0, false, nil
	}
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return 0, false, fmt.Errorf("%w: expected bearer token", errUnauthenticated)
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", errUnauthenticated, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, false, fmt.Errorf("%w: token has no subject", errUnauthenticated)
	}
	id, err := apidoc.ParseID(sub)
	if err != nil || id == 0 {
		return 0, false, fmt.Errorf("%w: subject is not a user id", errUnauthenticated)
	}
	return id, true, nil
}

// identify attaches the acting user to the request context. Bad credentials
// are rejected even on routes that do not need an actor.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok, err := s.auth.actor(r)
		if err != nil {
			s.log.DebugContext(r.Context(), "rejected credentials", "error", err)
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
			return
		}
		if ok {
			r = r.WithContext(context.WithValue(r.Context(), actorKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing user identity")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(actorKey).(uint)
	return id, ok
}

func actor(r *http.Request) uint {
	id, _ := actorFrom(r.Context())
	return id
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.ContentLength != 0 {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mt, _, err := mime.ParseMediaType(ct)
				if err != nil || mt != "application/json" {
					writeError(w, http.StatusUnsupportedMediaType, "invalid_parameter", "Content-Type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.ErrorContext(r.Context(), "panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "operation_failed", "operation failed")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
