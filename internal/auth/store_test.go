package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := New(path, []byte("test-signing-key-not-persisted"))
	require.NoError(t, err)
	return s
}

func TestCreateAuthRejectsDuplicateName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateAuth("alice", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = s.CreateAuth("alice", RoleAdmin, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateOrFindAuthUpgradesRoleAndExpiry(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	tok1, err := s.CreateOrFindAuth("bob", RoleReadonly, now.Add(time.Hour))
	require.NoError(t, err)

	tok2, err := s.CreateOrFindAuth("bob", RoleAdmin, now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2, "same name must return the same token")

	recs := s.List()
	require.Len(t, recs, 1)
	assert.Equal(t, RoleAdmin, recs[0].Role)
	assert.True(t, recs[0].Expires.After(now.Add(24*time.Hour)))
}

func TestCheckAuthTokenFindsOpaqueToken(t *testing.T) {
	s := newTestStore(t)
	tok, err := s.CreateAuth("carol", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec, ok := s.CheckAuthToken(tok)
	assert.True(t, ok)
	assert.Equal(t, "carol", rec.Name)
}

func TestCheckAuthTokenRejectsExpiredOpaqueToken(t *testing.T) {
	s := newTestStore(t)
	tok, err := s.CreateAuth("dave", RoleAdmin, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, ok := s.CheckAuthToken(tok)
	assert.False(t, ok)
}

func TestCreateJWTAuthRoundTrips(t *testing.T) {
	s := newTestStore(t)
	tok, err := s.CreateJWTAuth("erin", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec, ok := s.CheckAuthToken(tok)
	assert.True(t, ok)
	assert.Equal(t, "erin", rec.Name)
	assert.Equal(t, RoleAdmin, rec.Role)
}

func TestCreateJWTAuthRejectsAfterExpiry(t *testing.T) {
	s := newTestStore(t)
	tok, err := s.CreateJWTAuth("frank", RoleAdmin, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, ok := s.CheckAuthToken(tok)
	assert.False(t, ok)
}

func TestRemoveAuthReportsExistence(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateAuth("gina", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, s.RemoveAuth("gina"))
	assert.False(t, s.RemoveAuth("gina"))
}

func TestSaveAndLoadRoundTripsNonExpiredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	s1, err := New(path, nil)
	require.NoError(t, err)

	_, err = s1.CreateAuth("henry", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = s1.CreateAuth("ivy", RoleReadonly, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, s1.Save())

	s2, err := New(path, nil)
	require.NoError(t, err)
	skipped, err := s2.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)

	recs := s2.List()
	require.Len(t, recs, 1)
	assert.Equal(t, "henry", recs[0].Name)
}

func TestLoadToleratesCorruptRecordsAndSkipsThem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	require.NoError(t, os.WriteFile(path, []byte(`[{"token":"abc","name":"ok","role":"admin","expires":"2099-01-01T00:00:00Z"}, {"not":"a record"}]`), 0o600))

	s, err := New(path, nil)
	require.NoError(t, err)
	skipped, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Len(t, s.List(), 1)
}
