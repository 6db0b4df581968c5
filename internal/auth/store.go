// Package auth implements the bearer-token session store: opaque hex
// tokens persisted as a JSON array under a single mutex, plus HS256 JWT
// issuance via github.com/golang-jwt/jwt/v5
// for the HTTP layer's cookie-based login.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrDuplicateName = errors.New("auth: name already registered")
	ErrNotFound      = errors.New("auth: token not found")
)

// Role is a coarse authorization level: an admin/readonly split plus a
// wildcard that matches either.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleReadonly Role = "readonly"
	AnyRole      Role = "any"
)

// Record is one persisted bearer-token entry.
type Record struct {
	Token    string    `json:"token"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Created  time.Time `json:"created"`
	Accessed time.Time `json:"accessed"`
	Expires  time.Time `json:"expires"`
}

func (r Record) expired(now time.Time) bool {
	return !r.Expires.IsZero() && now.After(r.Expires)
}

// jwtClaims carries {name, role, created, expires} in the signed JWT.
type jwtClaims struct {
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Created int64  `json:"created"`
	jwt.RegisteredClaims
}

const jwtIssuer = "kismetd"

// Store is the single process-wide auth record store. Persistence
// writes happen under the same mutex that guards the in-memory map.
type Store struct {
	mu      sync.Mutex
	byName  map[string]*Record
	byToken map[string]*Record
	path    string
	jwtKey  []byte
}

// New creates a Store persisting to path (typically
// ~/.kismet/session.db). The JWT signing key is generated fresh and
// never persisted, so every issued JWT stops validating across a
// restart; pass a non-nil key to pin it (e.g. from kismet.conf's
// jwt_key, if configured).
func New(path string, jwtKey []byte) (*Store, error) {
	if jwtKey == nil {
		jwtKey = make([]byte, 32)
		if _, err := rand.Read(jwtKey); err != nil {
			return nil, fmt.Errorf("auth: generate jwt key: %w", err)
		}
	}
	s := &Store{
		byName:  make(map[string]*Record),
		byToken: make(map[string]*Record),
		path:    path,
		jwtKey:  jwtKey,
	}
	return s, nil
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateAuth mints a new opaque token for name, rejecting duplicates.
func (s *Store) CreateAuth(name string, role Role, expires time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return "", ErrDuplicateName
	}
	return s.insertLocked(name, role, expires)
}

func (s *Store) insertLocked(name string, role Role, expires time.Time) (string, error) {
	token, err := newOpaqueToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	rec := &Record{
		Token:    token,
		Name:     name,
		Role:     role,
		Created:  now,
		Accessed: now,
		Expires:  expires,
	}
	s.byName[name] = rec
	s.byToken[token] = rec
	return token, nil
}

// CreateOrFindAuth returns the existing token for name if present,
// upgrading its role/expiry when the caller asks for more than what's
// stored; otherwise it mints a new one.
func (s *Store) CreateOrFindAuth(name string, role Role, expires time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byName[name]; ok {
		if roleRank(role) > roleRank(rec.Role) {
			rec.Role = role
		}
		if expires.After(rec.Expires) {
			rec.Expires = expires
		}
		return rec.Token, nil
	}
	return s.insertLocked(name, role, expires)
}

func roleRank(r Role) int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleReadonly:
		return 1
	default:
		return 0
	}
}

// CreateJWTAuth issues an HS256-signed JWT carrying {name, role,
// created, expires}, not persisted to disk.
func (s *Store) CreateJWTAuth(name string, role Role, expires time.Time) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Name:    name,
		Role:    role,
		Created: now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.jwtKey)
}

// CheckAuthToken resolves a bearer token: JWT parse+verify first, then
// a constant-time scan of the opaque token table.
func (s *Store) CheckAuthToken(token string) (Record, bool) {
	if rec, ok := s.checkJWT(token); ok {
		return rec, true
	}
	return s.checkOpaque(token)
}

func (s *Store) checkJWT(token string) (Record, bool) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	}, jwt.WithIssuer(jwtIssuer))
	if err != nil || !parsed.Valid {
		return Record{}, false
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok {
		return Record{}, false
	}
	rec := Record{Name: claims.Name, Role: claims.Role}
	if claims.ExpiresAt != nil {
		rec.Expires = claims.ExpiresAt.Time
	}
	if claims.Created != 0 {
		rec.Created = time.Unix(claims.Created, 0)
	}
	return rec, true
}

func (s *Store) checkOpaque(token string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokenBytes := []byte(token)
	now := time.Now()
	for _, rec := range s.byToken {
		if subtle.ConstantTimeCompare([]byte(rec.Token), tokenBytes) == 1 {
			if rec.expired(now) {
				return Record{}, false
			}
			rec.Accessed = now
			return *rec, true
		}
	}
	return Record{}, false
}

// RemoveAuth deletes the record for name, reporting whether it existed.
func (s *Store) RemoveAuth(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byName[name]
	if !ok {
		return false
	}
	delete(s.byName, name)
	delete(s.byToken, rec.Token)
	return true
}

// List returns a snapshot of all non-expired records.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]Record, 0, len(s.byName))
	for _, rec := range s.byName {
		if !rec.expired(now) {
			out = append(out, *rec)
		}
	}
	return out
}

// Save persists every non-expired record as a JSON array to s.path.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	records := make([]Record, 0, len(s.byName))
	for _, rec := range s.byName {
		if !rec.expired(now) {
			records = append(records, *rec)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: marshal session store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: create session dir: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the JSON-array session store, tolerating per-record parse
// failure by skipping the bad record (the caller is expected to log the
// returned skipped count via its own logger).
func (s *Store) Load() (skipped int, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("auth: read session store: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("auth: parse session store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rm := range raw {
		var rec Record
		if err := json.Unmarshal(rm, &rec); err != nil {
			skipped++
			continue
		}
		if rec.Token == "" || rec.Name == "" {
			skipped++
			continue
		}
		r := rec
		s.byName[r.Name] = &r
		s.byToken[r.Token] = &r
	}
	return skipped, nil
}
