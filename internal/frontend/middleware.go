package frontend

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"mcprouter/internal/auth"
	"mcprouter/internal/config"
	"mcprouter/internal/ratelimit"
	"mcprouter/internal/store"
	"mcprouter/pkg/logging"

	"github.com/google/uuid"
)

// middleware wraps an http.Handler with another layer of behavior.
type middleware func(http.Handler) http.Handler

// chain applies middlewares in the order given, so the first one listed runs
// first on the request path (outermost).
func chain(h http.Handler, mw ...middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// securityHeaders sets the conservative baseline headers appropriate for a
// loopback-only JSON API: no framing, no sniffing, no referrer leakage.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// corsPolicy enforces an exact-origin allowlist. Same-origin requests (no
// Origin header) are always permitted; cross-origin requests are rejected
// unless the Origin matches an allowed entry exactly, or the allowlist
// contains the wildcard "*".
func corsPolicy(allowedOrigins []string) middleware {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !wildcard && !allowed[origin] {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-MCPR-Project")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// globalRateLimit enforces a coarse-grained rate limit keyed by bearer token
// when present, falling back to the request's remote address. This runs
// ahead of the pipeline's own per-tool, per-client rate limiting (§4.7) and
// exists purely to bound abusive request volume at the transport edge.
func globalRateLimit(limiter *ratelimit.Limiter, rule config.RateLimitRule) middleware {
	limiter.Configure("__global__", ratelimit.Config{Capacity: float64(rule.Burst), RefillRate: rule.RequestsPerSecond})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerKey(r)
			if key == "" {
				key = r.RemoteAddr
			}
			limiter.Configure(key, ratelimit.Config{Capacity: float64(rule.Burst), RefillRate: rule.RequestsPerSecond})

			result := limiter.Consume(key, 1)
			if !result.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerKey(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(authz, "Bearer "); ok {
		return tok
	}
	return ""
}

// bodySizeCap rejects request bodies larger than maxBytes before they reach
// JSON decoding.
func bodySizeCap(maxBytes int64) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDInjection assigns a request id (from X-Request-Id if supplied, a
// fresh uuid otherwise), stashes it in context and echoes it back on the
// response.
func requestIDInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := withRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog logs one structured line per request. It never logs the bearer
// token or request/response bodies, per spec.md §4.10.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Info("Frontend", "%s %s request=%s status=%d duration=%s",
			r.Method, r.URL.Path, requestIDFrom(r.Context()), rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// bearerAuth extracts and validates the bearer token. Missing or invalid
// tokens short-circuit the request with 401, per spec.md §6. Server-scoped
// validation happens later, per tool call, inside the pipeline itself.
func bearerAuth(validator *auth.Validator) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenID := bearerKey(r)
			if tokenID == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			if _, err := validator.Validate(r.Context(), tokenID); err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withTokenID(r.Context(), tokenID)))
		})
	}
}

// projectResolve resolves the optional X-MCPR-Project header (an id or
// slug) to a project id, 404s on an unknown project, 403s on an inactive
// one, and echoes the resolved id back on X-MCPR-Resolved-Project. A
// missing header leaves the request at global scope.
func projectResolve(s *store.Store) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ref := r.Header.Get("X-MCPR-Project")
			if ref == "" {
				next.ServeHTTP(w, r)
				return
			}

			proj, err := s.GetProject(r.Context(), ref)
			if err != nil {
				proj, err = s.GetProjectBySlug(r.Context(), ref)
			}
			if err != nil {
				writeJSONError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found")
				return
			}
			if !proj.Active {
				writeJSONError(w, http.StatusForbidden, "PROJECT_INACTIVE", "project is inactive")
				return
			}

			w.Header().Set("X-MCPR-Resolved-Project", proj.ID)
			next.ServeHTTP(w, r.WithContext(withProjectID(r.Context(), proj.ID)))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
}

// unauthenticatedChain is the lighter stack for /health, /status, /metrics:
// no bearer or project gating, no rate limit and no body-size cap, but still
// observable (security headers, CORS, request id, access log).
func unauthenticatedChain(h http.Handler, cfg config.HTTPConfig) http.Handler {
	return chain(h, securityHeaders, corsPolicy(cfg.AllowedOrigins), requestIDInjection, accessLog)
}

// authenticatedChain is the full stack applied to /mcp, /mcp/sse and
// /mcp/messages, per spec.md §4.10's strict ordering.
func authenticatedChain(h http.Handler, cfg config.HTTPConfig, limiter *ratelimit.Limiter, validator *auth.Validator, st *store.Store) http.Handler {
	return chain(h,
		securityHeaders,
		corsPolicy(cfg.AllowedOrigins),
		globalRateLimit(limiter, cfg.RateLimit.Global),
		bodySizeCap(cfg.MaxBodyBytes),
		requestIDInjection,
		accessLog,
		bearerAuth(validator),
		projectResolve(st),
	)
}
