package codes

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRegistry(NewRedisStore(client, "gallery:code:")), mr
}

func TestIssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistry(t)

	code, err := reg.Issue(ctx, 4242)
	require.NoError(t, err)
	val, err := mr.Get("gallery:code:" + code.String())
	require.NoError(t, err)
	require.Equal(t, "4242", val)

	id, err := reg.Resolve(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 4242, id)

	require.NoError(t, reg.Revoke(ctx, code))
	_, err = reg.Resolve(ctx, code)
	require.ErrorIs(t, err, ErrNotFound)

	// Revoking twice is fine.
	require.NoError(t, reg.Revoke(ctx, code))
}

func TestSequentialIssuesDiffer(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRedisRegistry(t)
	a, err := reg.Issue(ctx, 1)
	require.NoError(t, err)
	b, err := reg.Issue(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestResolveUnknownCode(t *testing.T) {
	reg, _ := newRedisRegistry(t)
	_, err := reg.Resolve(context.Background(), Code("12345"))
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, errors.Is(err, ErrUnavailable))
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistry(t)
	code, err := reg.Issue(ctx, 10)
	require.NoError(t, err)

	mr.SetError("ERR store offline")
	_, err = reg.Resolve(ctx, code)
	require.ErrorIs(t, err, ErrUnavailable)
	require.False(t, errors.Is(err, ErrNotFound))

	_, err = reg.Issue(ctx, 11)
	require.ErrorIs(t, err, ErrUnavailable)

	require.ErrorIs(t, reg.Revoke(ctx, code), ErrUnavailable)

	mr.SetError("")
	id, err := reg.Resolve(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 10, id)
}

func TestIssueRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistry(t)
	require.NoError(t, mr.Set("gallery:code:taken", "1"))

	seq := []Code{"taken", "taken", "fresh"}
	reg.newCode = func() (Code, error) {
		c := seq[0]
		seq = seq[1:]
		return c, nil
	}
	code, err := reg.Issue(ctx, 77)
	require.NoError(t, err)
	require.Equal(t, Code("fresh"), code)

	// The existing record is untouched.
	val, err := mr.Get("gallery:code:taken")
	require.NoError(t, err)
	require.Equal(t, "1", val)
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	reg, mr := newRedisRegistry(t)
	require.NoError(t, mr.Set("gallery:code:taken", "1"))
	reg.newCode = func() (Code, error) { return "taken", nil }

	_, err := reg.Issue(ctx, 77)
	require.ErrorIs(t, err, ErrCollision)
}

func TestResolveCorruptValue(t *testing.T) {
	reg, mr := newRedisRegistry(t)
	require.NoError(t, mr.Set("gallery:code:bad", "not-a-number"))
	_, err := reg.Resolve(context.Background(), Code("bad"))
	require.ErrorIs(t, err, ErrUnavailable)
}
