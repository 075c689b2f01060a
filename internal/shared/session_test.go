package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false), mr
}

func TestCreateAndLoadSession(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Create(ctx, "principal-1", "tenant-a", "maria@bar.example")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	loaded, err := sm.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", loaded.PrincipalID())
	assert.Equal(t, "tenant-a", loaded.TenantID())
	assert.Equal(t, "maria@bar.example", loaded.Email())
}

func TestLoadUnknownTokenFailsAuthentication(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	_, err := sm.Load(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = sm.Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestLoadExpiredTokenFailsAuthentication(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Create(ctx, "principal-1", "tenant-a", "maria@bar.example")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = sm.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestTokenFromRequestPrefersBearerHeader(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.AddCookie(&http.Cookie{Name: "test_session", Value: "cookie-token"})
	assert.Equal(t, "header-token", sm.TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "test_session", Value: "cookie-token"})
	assert.Equal(t, "cookie-token", sm.TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", sm.TokenFromRequest(r))
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Create(ctx, "principal-1", "tenant-a", "maria@bar.example")
	require.NoError(t, err)

	sm.Destroy(sess)
	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, sess))

	_, err = sm.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrAuthentication)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRevokeDropsOnlyThatPrincipal(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	mine1, err := sm.Create(ctx, "principal-1", "tenant-a", "maria@bar.example")
	require.NoError(t, err)
	mine2, err := sm.Create(ctx, "principal-1", "tenant-a", "maria@bar.example")
	require.NoError(t, err)
	other, err := sm.Create(ctx, "principal-2", "tenant-a", "joao@bar.example")
	require.NoError(t, err)

	require.NoError(t, sm.Revoke(ctx, "principal-1"))

	_, err = sm.Load(ctx, mine1.ID)
	assert.ErrorIs(t, err, ErrAuthentication)
	_, err = sm.Load(ctx, mine2.ID)
	assert.ErrorIs(t, err, ErrAuthentication)

	loaded, err := sm.Load(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "principal-2", loaded.PrincipalID())
}
