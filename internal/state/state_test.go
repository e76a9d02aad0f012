package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthlink/internal/cache"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
)

func newSession() *cache.Session {
	return cache.Scoped(cache.NewMemory(""), "sess-1", time.Minute)
}

func TestGenerate_UniqueAndStored(t *testing.T) {
	ctx := context.Background()
	m := New()
	sess := newSession()

	a, err := m.Generate(ctx, sess)
	require.NoError(t, err)
	b, err := m.Generate(ctx, sess)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)

	stored, ok, err := sess.Get(ctx, SessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, stored)
}

func TestVerify_SingleUse(t *testing.T) {
	ctx := context.Background()
	m := New()
	sess := newSession()

	st, err := m.Generate(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, m.Verify(ctx, sess, st))
	assert.ErrorIs(t, m.Verify(ctx, sess, st), types.ErrInvalidAuthorizationCode)
}

func TestVerify_MismatchConsumes(t *testing.T) {
	ctx := context.Background()
	m := New()
	sess := newSession()

	st, err := m.Generate(ctx, sess)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Verify(ctx, sess, "forged"), types.ErrInvalidAuthorizationCode)
	// el correcto ya no sirve: el intento fallido lo consumió
	assert.ErrorIs(t, m.Verify(ctx, sess, st), types.ErrInvalidAuthorizationCode)
}

func TestVerify_MissingOrEmpty(t *testing.T) {
	ctx := context.Background()
	m := New()

	assert.ErrorIs(t, m.Verify(ctx, newSession(), "anything"), types.ErrInvalidAuthorizationCode)

	sess := newSession()
	_, err := m.Generate(ctx, sess)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Verify(ctx, sess, ""), types.ErrInvalidAuthorizationCode)
}

func TestGenerate_RandomFailure(t *testing.T) {
	m := &Manager{random: func([]byte) (int, error) { return 0, errors.New("entropy") }}
	_, err := m.Generate(context.Background(), newSession())
	assert.Error(t, err)
}
