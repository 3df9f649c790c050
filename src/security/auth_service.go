// Package security implements the unlock flow: allow-list credential
// checks, exponential lockout after repeated failures, and the session
// tokens carried by subsequent requests.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProfileKey identifies one isolated ledger. It is derived from the unlock
// credential but is not the credential itself, so it can be logged and used
// as a storage index.
type ProfileKey string

// DeriveProfileKey maps a credential to its profile key. The mapping is
// deterministic: the same credential always reaches the same ledger, and
// distinct credentials never collide.
func DeriveProfileKey(credential string) ProfileKey {
	sum := sha256.Sum256([]byte(credential))
	return ProfileKey(hex.EncodeToString(sum[:]))
}

// ErrInvalidCredential is returned for a rejected unlock attempt below the
// lockout threshold.
var ErrInvalidCredential = errors.New("invalid access key")

// LockedOutError is returned while a lockout window is active, or at the
// attempt that activates one.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("locked out for %s", e.Remaining.Round(time.Second))
}

// AuthService gates access to the application behind the configured
// allow-list, tracking consecutive failures and lockout windows. The
// lockout state is process-local and evaluated lazily against the wall
// clock; nothing but elapsed time clears it.
type AuthService struct {
	jwtSecret   []byte
	tokenExpiry time.Duration
	accessKeys  []string
	maxAttempts int
	lockoutBase time.Duration

	mu             sync.Mutex
	failedAttempts int
	lockoutUntil   time.Time
	activeProfile  ProfileKey

	now func() time.Time
}

// NewAuthService builds the access-control service.
func NewAuthService(jwtSecret string, accessKeys []string, maxAttempts int, lockoutBase, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
		accessKeys:  accessKeys,
		maxAttempts: maxAttempts,
		lockoutBase: lockoutBase,
		now:         time.Now,
	}
}

func credentialAllowed(credential string, accessKeys []string) bool {
	allowed := false
	for _, key := range accessKeys {
		// Scan the whole list regardless of where a match occurs, so
		// timing does not leak which entry matched.
		if subtle.ConstantTimeCompare([]byte(credential), []byte(key)) == 1 {
			allowed = true
		}
	}
	return allowed
}

// Unlock validates a credential. While a lockout window is active it fails
// without consuming an attempt. A match resets the failure counter, records
// the active profile, and returns the profile key with a signed session
// token. A mismatch increments the counter; at the threshold a lockout of
// base × 2^(failures − threshold) is activated.
func (s *AuthService) Unlock(credential string) (ProfileKey, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if remaining := s.lockoutUntil.Sub(s.now()); remaining > 0 {
		return "", "", &LockedOutError{Remaining: remaining}
	}

	if !credentialAllowed(credential, s.accessKeys) {
		s.failedAttempts++
		if s.failedAttempts >= s.maxAttempts {
			duration := s.lockoutBase << (s.failedAttempts - s.maxAttempts)
			s.lockoutUntil = s.now().Add(duration)
			return "", "", &LockedOutError{Remaining: duration}
		}
		return "", "", ErrInvalidCredential
	}

	s.failedAttempts = 0
	profileKey := DeriveProfileKey(credential)
	s.activeProfile = profileKey

	token, err := s.GenerateToken(profileKey)
	if err != nil {
		return "", "", err
	}
	return profileKey, token, nil
}

// Logout clears the active profile. Idempotent; it does not touch the
// failure counter or any running lockout.
func (s *AuthService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeProfile = ""
}

// ActiveProfile returns the profile unlocked in this process, if any.
func (s *AuthService) ActiveProfile() (ProfileKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeProfile, s.activeProfile != ""
}

// LockoutRemaining reports how long the current lockout window still has
// to run; zero when unlocking is permitted.
func (s *AuthService) LockoutRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if remaining := s.lockoutUntil.Sub(s.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// GenerateToken signs a session token whose subject is the profile key.
func (s *AuthService) GenerateToken(profileKey ProfileKey) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   string(profileKey),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken parses and verifies a session token, returning the profile
// key it was issued for.
func (s *AuthService) ValidateToken(tokenString string) (ProfileKey, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}
	return ProfileKey(claims.Subject), nil
}
