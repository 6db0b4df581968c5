package httpd

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kismetwireless/kismet-core/internal/auth"
)

func newTestRouter(t *testing.T) (*Router, *auth.Store) {
	t.Helper()
	store, err := auth.New(t.TempDir()+"/session.db", nil)
	require.NoError(t, err)
	r := New(store, nil)
	return r, store
}

func TestRegisterRouteRejectsUnauthenticatedRequest(t *testing.T) {
	r, _ := newTestRouter(t)
	r.RegisterRoute("/secure", []string{"GET"}, []Role{RoleAdmin}, func(w http.ResponseWriter, req *http.Request, sess *Session) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/secure", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRouteAcceptsValidCookieToken(t *testing.T) {
	r, store := newTestRouter(t)
	tok, err := store.CreateAuth("alice", auth.RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)

	r.RegisterRoute("/secure", []string{"GET"}, []Role{RoleAdmin}, func(w http.ResponseWriter, req *http.Request, sess *Session) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sess.Name))
	})

	req := httptest.NewRequest("GET", "/secure", nil)
	req.AddCookie(&http.Cookie{Name: "KISMET", Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestRegisterRouteRejectsInsufficientRole(t *testing.T) {
	r, store := newTestRouter(t)
	tok, err := store.CreateAuth("bob", auth.RoleReadonly, time.Now().Add(time.Hour))
	require.NoError(t, err)

	r.RegisterRoute("/admin-only", []string{"GET"}, []Role{RoleAdmin}, func(w http.ResponseWriter, req *http.Request, sess *Session) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.AddCookie(&http.Cookie{Name: "KISMET", Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQueryLoginSynthesizesJWTCookie(t *testing.T) {
	r, _ := newTestRouter(t)
	require.NoError(t, r.SetBasicAuth("admin", "hunter2"))
	r.RegisterRoute("/secure", []string{"GET"}, []Role{AnyRole}, func(w http.ResponseWriter, req *http.Request, sess *Session) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/secure?user=admin&password=hunter2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "KISMET" {
			found = true
		}
	}
	assert.True(t, found, "a successful query login must synthesize a KISMET cookie")
}

func TestUnauthRouteBypassesAuth(t *testing.T) {
	r, _ := newTestRouter(t)
	r.RegisterUnauthRoute("/public", []string{"GET"}, func(w http.ResponseWriter, req *http.Request, sess *Session) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/public", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
