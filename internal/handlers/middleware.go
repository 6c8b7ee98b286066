package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lingoquest/internal/logger"
	"lingoquest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const ClaimsContextKey ContextKey = "claims"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	issuer *security.TokenIssuer
	log    *logger.Logger
}

// NewMiddleware creates a new middleware instance. With a nil issuer every
// request is let through, which is only meant for local development.
func NewMiddleware(issuer *security.TokenIssuer, log *logger.Logger) *Middleware {
	log = log.With("middleware", "Auth")
	if issuer == nil {
		log.Warn("JWT_SECRET not set: API authentication is disabled")
	}
	return &Middleware{issuer: issuer, log: log}
}

// RequireLearner lets through tokens for the learner named by the {id} path
// value, and admin tokens.
func (m *Middleware) RequireLearner(next http.HandlerFunc) http.HandlerFunc {
	return m.require(next, func(claims *security.Claims, r *http.Request) bool {
		return claims.Role == security.RoleAdmin ||
			(claims.Role == security.RoleLearner && claims.Subject == r.PathValue("id"))
	})
}

// RequireAdmin lets through admin tokens only
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.require(next, func(claims *security.Claims, r *http.Request) bool {
		return claims.Role == security.RoleAdmin
	})
}

// RequireAuth lets through any valid token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return m.require(next, func(*security.Claims, *http.Request) bool { return true })
}

func (m *Middleware) require(next http.HandlerFunc, allowed func(*security.Claims, *http.Request) bool) http.HandlerFunc {
	if m.issuer == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondWithError(w, m.log, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		claims, err := m.issuer.Parse(token)
		if err != nil {
			respondWithError(w, m.log, http.StatusUnauthorized, ErrUnauthorized, "Rejected token", err)
			return
		}
		if !allowed(claims, r) {
			respondWithError(w, m.log, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}

		// Add claims to context
		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// GetClaimsFromContext retrieves the token claims from the request context
func GetClaimsFromContext(ctx context.Context) *security.Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	if !ok {
		return nil
	}
	return claims
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Logging middleware logs HTTP requests
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.With("middleware", "Logging")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			// Call next handler
			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			log.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
			)
		})
	}
}

// Recover turns a handler panic into a 500
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.Error("Handler panic", "method", r.Method, "path", r.URL.Path, "panic", p)
					respondJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrInternalServerError})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
