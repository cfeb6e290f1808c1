package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Authentication errors. Both map to 401.
var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// AuthError is an authentication failure with a client-safe message.
type AuthError struct {
	Type    error
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Type.Error(), e.Message)
	}

	return "authentication failed: " + e.Type.Error()
}

// Unwrap returns the error type so callers can use errors.Is.
func (e *AuthError) Unwrap() error {
	return e.Type
}

// PublicEndpoints is the set of paths that bypass authentication.
type PublicEndpoints struct {
	mu    sync.RWMutex
	paths map[string]bool
}

// NewPublicEndpoints creates a set holding paths.
func NewPublicEndpoints(paths ...string) *PublicEndpoints {
	p := &PublicEndpoints{paths: make(map[string]bool, len(paths))}
	for _, path := range paths {
		p.Register(path)
	}

	return p
}

// Register adds path. Only health endpoints belong here.
func (p *PublicEndpoints) Register(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paths[path] = true
}

// Contains reports whether path bypasses authentication.
func (p *PublicEndpoints) Contains(path string) bool {
	if p == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.paths[path]
}

// extractAPIKey reads X-Api-Key, falling back to "Authorization: Bearer <key>".
// Keys containing CR or LF are rejected.
func extractAPIKey(r *http.Request) (string, bool) {
	if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
		return cleanAPIKey(apiKey)
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return cleanAPIKey(token)
	}

	return "", false
}

func cleanAPIKey(key string) (string, bool) {
	if strings.ContainsAny(key, "\r\n") {
		return "", false
	}

	key = strings.TrimSpace(key)

	return key, key != ""
}

// Authenticate creates a middleware that requires a valid API key on every path
// not in public, and stores the caller's ClientContext in the request context.
// A nil public set protects every path.
func Authenticate(store KeyStore, public *PublicEndpoints, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.Contains(r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			authStart := time.Now()

			apiKey, found := extractAPIKey(r)
			if !found {
				writeAuthError(w, r, logger, &AuthError{Type: ErrMissingAPIKey, Message: "Missing API key"})

				return
			}

			key, ok := store.FindByKey(r.Context(), apiKey)
			if !ok {
				writeAuthError(w, r, logger, &AuthError{Type: ErrInvalidAPIKey, Message: "Invalid or missing API key"})

				return
			}

			client := ClientContext{ClientID: key.ClientID, KeyID: key.ID, AuthTime: time.Now()}

			logger.Debug("API key authenticated",
				slog.String("client_id", client.ClientID),
				slog.String("key_id", client.KeyID),
				slog.String("key", MaskKey(apiKey)),
				slog.Duration("auth_latency", time.Since(authStart)),
				slog.String("correlation_id", GetCorrelationID(r.Context())),
			)

			next.ServeHTTP(w, r.WithContext(SetClientContext(r.Context(), client)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err *AuthError) {
	logger.Warn("Authentication failed",
		slog.String("reason", err.Error()),
		slog.String("correlation_id", GetCorrelationID(r.Context())),
		slog.String("endpoint", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	writeProblem(w, r, logger, http.StatusUnauthorized, err.Error())
}
