package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager orchestrates token based sessions backed by Redis. Tokens
// travel either in the session cookie or in an Authorization bearer header.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data. The principal and tenant are fixed
// at login and never rewritten for the life of the session.
type Session struct {
	ID          string
	principalID string
	tenantID    string
	email       string
	isNew       bool
	dirty       bool
	destroyed   bool
}

type sessionPayload struct {
	PrincipalID string `json:"principal_id"`
	TenantID    string `json:"tenant_id"`
	Email       string `json:"email"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// TokenFromRequest extracts the session token from the bearer header or the
// session cookie. Returns empty string when neither is present.
func (sm *SessionManager) TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sm.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Load fetches the session for a token. A missing or expired token yields
// ErrAuthentication; transport failures yield ErrStoreUnavailable so callers
// fail closed instead of treating an outage as a logged-out user.
func (sm *SessionManager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrAuthentication
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAuthentication
		}
		return nil, ErrStoreUnavailable
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, ErrAuthentication
	}
	return &Session{
		ID:          token,
		principalID: stored.PrincipalID,
		tenantID:    stored.TenantID,
		email:       stored.Email,
	}, nil
}

// Create issues a fresh session for the principal and persists it.
func (sm *SessionManager) Create(ctx context.Context, principalID, tenantID, email string) (*Session, error) {
	sess := &Session{
		ID:          sm.generateSessionID(),
		principalID: principalID,
		tenantID:    tenantID,
		email:       email,
		isNew:       true,
		dirty:       true,
	}
	if err := sm.persist(ctx, sess); err != nil {
		return nil, ErrStoreUnavailable
	}
	return sess, nil
}

// Commit persists pending session state and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty {
		if err := sm.persist(ctx, sess); err != nil {
			return err
		}
		sess.dirty = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Revoke deletes every live session belonging to a principal. Used when
// access is suspended or removed so stale tokens stop resolving immediately.
func (sm *SessionManager) Revoke(ctx context.Context, principalID string) error {
	iter := sm.client.Scan(ctx, 0, "session:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := sm.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var stored sessionPayload
		if err := json.Unmarshal(payload, &stored); err != nil {
			continue
		}
		if stored.PrincipalID == principalID {
			if err := sm.client.Del(ctx, key).Err(); err != nil {
				return err
			}
		}
	}
	return iter.Err()
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// PrincipalID returns the authenticated principal identifier.
func (s *Session) PrincipalID() string {
	return s.principalID
}

// TenantID returns the tenant the session was bound to at login.
func (s *Session) TenantID() string {
	return s.tenantID
}

// Email returns the principal's email address.
func (s *Session) Email() string {
	return s.email
}

func (sm *SessionManager) persist(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sessionPayload{
		PrincipalID: sess.principalID,
		TenantID:    sess.tenantID,
		Email:       sess.email,
	})
	if err != nil {
		return err
	}
	return sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err()
}

func (sm *SessionManager) redisKey(token string) string {
	return "session:" + token
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
