package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://idp.example.com"
	testAudience = "messageboard"
)

func newSigningKey(t *testing.T, kid string) jwk.Key {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
	return key
}

func publicSet(t *testing.T, keys ...jwk.Key) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		pub, err := k.PublicKey()
		require.NoError(t, err)
		require.NoError(t, set.AddKey(pub))
	}
	return set
}

func sign(t *testing.T, key jwk.Key, build func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(testIssuer).
		Audience([]string{testAudience}).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Claim("email", "a@x.com")
	if build != nil {
		b = build(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	require.NoError(t, err)
	return string(signed)
}

// staticKeys serves a fixed set and counts how often a refresh was asked for.
type staticKeys struct {
	set       jwk.Set
	refreshed atomic.Int32
}

func (s *staticKeys) Keys(_ context.Context, refresh bool) (jwk.Set, error) {
	if refresh {
		s.refreshed.Add(1)
	}
	return s.set, nil
}

func newVerifier(t *testing.T, keys ...jwk.Key) (*JWTVerifier, *staticKeys) {
	source := &staticKeys{set: publicSet(t, keys...)}
	return NewJWTVerifier(source, JWTConfig{
		Issuer:    testIssuer,
		Audience:  testAudience,
		ClockSkew: 30 * time.Second,
	}), source
}

func TestJWTVerifierAcceptsValidToken(t *testing.T) {
	key := newSigningKey(t, "k1")
	v, source := newVerifier(t, key)

	id, err := v.Verify(context.Background(), sign(t, key, nil))
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "a@x.com"}, id)
	assert.Zero(t, source.refreshed.Load())
}

func TestJWTVerifierRejects(t *testing.T) {
	key := newSigningKey(t, "k1")
	other := newSigningKey(t, "k1")
	v, _ := newVerifier(t, key)

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong key", sign(t, other, nil)},
		{"expired", sign(t, key, func(b *jwt.Builder) *jwt.Builder {
			return b.Expiration(time.Now().Add(-time.Hour))
		})},
		{"wrong issuer", sign(t, key, func(b *jwt.Builder) *jwt.Builder {
			return b.Issuer("https://evil.example.com")
		})},
		{"wrong audience", sign(t, key, func(b *jwt.Builder) *jwt.Builder {
			return b.Audience([]string{"someone-else"})
		})},
		{"no email", sign(t, key, func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("email", "")
		})},
		{"unverified email", sign(t, key, func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("email_verified", false)
		})},
		{"unverified email as string", sign(t, key, func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("email_verified", "false")
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRejected)
		})
	}
}

func TestJWTVerifierToleratesSkew(t *testing.T) {
	key := newSigningKey(t, "k1")
	v, _ := newVerifier(t, key)

	token := sign(t, key, func(b *jwt.Builder) *jwt.Builder {
		return b.Expiration(time.Now().Add(-10 * time.Second))
	})
	_, err := v.Verify(context.Background(), token)
	assert.NoError(t, err)
}

func TestJWTVerifierRefreshesOnUnknownKey(t *testing.T) {
	known := newSigningKey(t, "k1")
	rotated := newSigningKey(t, "k2")
	v, source := newVerifier(t, known)

	_, err := v.Verify(context.Background(), sign(t, rotated, nil))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, int32(1), source.refreshed.Load())
}

func TestJWTVerifierLimitsForcedRefreshes(t *testing.T) {
	known := newSigningKey(t, "k1")
	unknown := newSigningKey(t, "k2")
	v, source := newVerifier(t, known)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_, err := v.Verify(context.Background(), sign(t, unknown, nil))
		assert.ErrorIs(t, err, ErrRejected)
	}
	assert.Equal(t, int32(1), source.refreshed.Load())

	now = now.Add(defaultRefreshInterval)
	_, err := v.Verify(context.Background(), sign(t, unknown, nil))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, int32(2), source.refreshed.Load())

	_, err = v.Verify(context.Background(), sign(t, known, nil))
	assert.NoError(t, err)
}

func TestFileKeySource(t *testing.T) {
	key := newSigningKey(t, "k1")
	data, err := json.Marshal(publicSet(t, key))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	source, err := NewFileKeySource(path)
	require.NoError(t, err)
	v := NewJWTVerifier(source, JWTConfig{})

	id, err := v.Verify(context.Background(), sign(t, key, nil))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", id.Email)
}

func TestFileKeySourceMissingFile(t *testing.T) {
	_, err := NewFileKeySource(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestRemoteKeySourceCachesUntilRefresh(t *testing.T) {
	key := newSigningKey(t, "k1")
	data, err := json.Marshal(publicSet(t, key))
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	source := NewRemoteKeySource(srv.URL, time.Hour)
	v := NewJWTVerifier(source, JWTConfig{Issuer: testIssuer})
	for i := 0; i < 3; i++ {
		_, err := v.Verify(context.Background(), sign(t, key, nil))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err = source.Keys(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRemoteKeySourceFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewRemoteKeySource(srv.URL, time.Hour).Keys(context.Background(), false)
	assert.Error(t, err)
}
