// Package httpd is the embedded HTTP/WS server: route registration with
// role-based auth, chunked streaming responses, and websocket upgrades,
// built on gorilla/mux so route registration gets declarative :name
// placeholders and per-route verb/role lists.
package httpd

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/kismetwireless/kismet-core/internal/auth"
)

// Role is the RBAC hierarchy (Admin > User) plus a wildcard that
// matches either.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	AnyRole   Role = "*"
)

// HandlerFunc is a route handler; it receives the resolved session (nil
// for unauthenticated routes).
type HandlerFunc func(w http.ResponseWriter, r *http.Request, sess *Session)

// Session is the resolved identity for an authenticated request.
type Session struct {
	Name string
	Role Role
}

func (s *Session) hasRole(required []Role) bool {
	if s == nil {
		return false
	}
	for _, r := range required {
		if r == AnyRole || r == s.Role {
			return true
		}
		if s.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// Router is the embedded server's route table, built incrementally via
// RegisterRoute instead of one monolithic setup function.
type Router struct {
	mux        *mux.Router
	authStore  *auth.Store
	log        *slog.Logger
	basicUser  string
	basicHash  []byte
}

// New builds a Router backed by authStore for credential resolution.
func New(authStore *auth.Store, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{mux: mux.NewRouter(), authStore: authStore, log: log}
}

// SetBasicAuth configures the fallback username/password accepted by
// the auth-resolution chain's basic-auth and query-login steps. The
// password is hashed with bcrypt rather than compared in plaintext.
func (r *Router) SetBasicAuth(user, pass string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	r.basicUser, r.basicHash = user, hash
	return nil
}

// RegisterRoute adds an authenticated route, matched against verbs and
// roles; an empty roles list never matches any session (defensive
// default, not an explicit rejection at registration).
func (r *Router) RegisterRoute(path string, verbs []string, roles []Role, h HandlerFunc) {
	r.mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		sess := r.resolveSession(w, req)
		if sess == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !sess.hasRole(roles) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		h(w, req, sess)
	}).Methods(verbs...)
}

// RegisterUnauthRoute adds a route that bypasses auth entirely.
func (r *Router) RegisterUnauthRoute(path string, verbs []string, h HandlerFunc) {
	r.mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		h(w, req, nil)
	}).Methods(verbs...)
}

// ServeHTTP satisfies http.Handler, applying a 30-second per-request
// deadline and a CORS preflight shortcut.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 30*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	if req.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req.URL.Path = normalizeSlashes(req.URL.Path)
	r.mux.ServeHTTP(w, req)
}

func normalizeSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// resolveSession walks the auth-resolution chain: cookie token -> JWT
// issuer/signature -> basic-auth -> query user=&password=. A successful
// basic-auth or query login synthesizes a JWT cookie valid for 24h with
// role admin.
func (r *Router) resolveSession(w http.ResponseWriter, req *http.Request) *Session {
	if cookie, err := req.Cookie("KISMET"); err == nil && cookie.Value != "" {
		if sess := r.checkToken(cookie.Value); sess != nil {
			return sess
		}
	}
	if tok := req.URL.Query().Get("KISMET"); tok != "" {
		if sess := r.checkToken(tok); sess != nil {
			return sess
		}
	}

	if user, pass, ok := req.BasicAuth(); ok {
		if r.verifyBasicCreds(user, pass) {
			return r.synthesizeAdminSession(w, user)
		}
	}

	if user := req.URL.Query().Get("user"); user != "" {
		pass := req.URL.Query().Get("password")
		if r.verifyBasicCreds(user, pass) {
			return r.synthesizeAdminSession(w, user)
		}
	}

	return nil
}

func (r *Router) checkToken(token string) *Session {
	if r.authStore == nil {
		return nil
	}
	rec, ok := r.authStore.CheckAuthToken(token)
	if !ok {
		return nil
	}
	return &Session{Name: rec.Name, Role: Role(rec.Role)}
}

func (r *Router) verifyBasicCreds(user, pass string) bool {
	if r.basicUser == "" || user != r.basicUser {
		return false
	}
	return bcrypt.CompareHashAndPassword(r.basicHash, []byte(pass)) == nil
}

// synthesizeAdminSession mints a 24h admin JWT and sets it as the
// KISMET cookie on w (when non-nil).
func (r *Router) synthesizeAdminSession(w http.ResponseWriter, name string) *Session {
	if r.authStore != nil && w != nil {
		if tok, err := r.authStore.CreateJWTAuth(name, auth.RoleAdmin, time.Now().Add(24*time.Hour)); err == nil {
			http.SetCookie(w, &http.Cookie{Name: "KISMET", Value: tok, Path: "/", MaxAge: 24 * 3600})
		}
	}
	return &Session{Name: name, Role: RoleAdmin}
}
