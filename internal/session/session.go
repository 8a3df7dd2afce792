// Package session provides Valkey-backed session tokens.
// A session is an opaque random token mapped to a JSON payload in Valkey
// with automatic TTL expiry. The same store keeps short-lived OAuth state.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "inkwell_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// StateTTL bounds how long an OAuth round trip may take.
	StateTTL = 10 * time.Minute

	keyPrefix   = "session:"
	statePrefix = "oauth_state:"

	// idLength is the byte length of the random token (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload stored in Valkey.
type Data struct {
	Token     string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client. A
// zero ttl selects DefaultTTL. secure controls the cookie Secure flag.
func NewStore(client *redis.Client, ttl time.Duration, secure bool) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, secure: secure}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create issues a new token for the user and stores it in Valkey.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, email string) (*Data, error) {
	token, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("session create: %w", err)
	}

	now := time.Now().UTC()
	data := &Data{
		Token:     token,
		UserID:    userID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return data, nil
}

// Get retrieves session data for token. Returns nil if no valid session
// exists.
func (s *Store) Get(ctx context.Context, token string) (*Data, error) {
	if token == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	data.Token = token
	return &data, nil
}

// Refresh replaces token with a freshly issued one for the same user.
// Returns nil if the old session no longer exists.
func (s *Store) Refresh(ctx context.Context, token string) (*Data, error) {
	old, err := s.Get(ctx, token)
	if err != nil || old == nil {
		return nil, err
	}

	fresh, err := s.Create(ctx, old.UserID, old.Email)
	if err != nil {
		return nil, fmt.Errorf("session refresh: %w", err)
	}
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return nil, fmt.Errorf("session refresh: %w", err)
	}
	return fresh, nil
}

// Destroy removes the session from Valkey. Unknown tokens are ignored.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

// SaveState records an OAuth state value for provider.
func (s *Store) SaveState(ctx context.Context, state, provider string) error {
	if err := s.client.Set(ctx, statePrefix+state, provider, StateTTL).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// ConsumeState deletes state and reports whether it was issued for
// provider. Each state is accepted at most once.
func (s *Store) ConsumeState(ctx context.Context, state, provider string) (bool, error) {
	if state == "" {
		return false, nil
	}
	got, err := s.client.GetDel(ctx, statePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return got == provider, nil
}

// SetCookie writes the session cookie for data.
func (s *Store) SetCookie(w http.ResponseWriter, data *Data) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    data.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
}

// ClearCookie expires the session cookie immediately.
func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// TokenFromRequest returns the session token carried by r, or "".
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// NewState returns a random OAuth state value.
func NewState() (string, error) {
	return generateID()
}

// generateID creates a cryptographically random identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
