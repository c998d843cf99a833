package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/ardentid"
	"github.com/stretchr/testify/require"
)

func TestInsertAndFind(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Insert(ctx, ardentid.UserRecord{ID: "u1", Email: "a@x.io", Roles: []string{"member"}})
	require.NoError(t, err)
	require.Equal(t, "u1", id)

	got, err := s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)
	require.Equal(t, []string{"member"}, got.Roles)

	got.Roles[0] = "admin"
	again, err := s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	require.Equal(t, "member", again.Roles[0])
}

func TestFindIsCaseSensitive(t *testing.T) {
	s := New()
	_, err := s.Insert(context.Background(), ardentid.UserRecord{ID: "u1", Email: "a@x.io"})
	require.NoError(t, err)

	_, err = s.FindByEmail(context.Background(), "A@X.io")
	require.ErrorIs(t, err, ardentid.ErrUserNotFound)
}

func TestInsertDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Insert(ctx, ardentid.UserRecord{ID: "u1", Email: "a@x.io"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, ardentid.UserRecord{ID: "u2", Email: "a@x.io"})
	require.ErrorIs(t, err, ardentid.ErrDuplicateIdentity)
	_, err = s.Insert(ctx, ardentid.UserRecord{ID: "u1", Email: "b@x.io"})
	require.ErrorIs(t, err, ardentid.ErrDuplicateIdentity)
	require.Equal(t, 1, s.Len())
}

func TestInsertAssignsID(t *testing.T) {
	s := New()
	id, err := s.Insert(context.Background(), ardentid.UserRecord{Email: "a@x.io"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestMarkEmailConfirmed(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, ardentid.UserRecord{ID: "u1", Email: "a@x.io", Status: ardentid.StatusPendingVerification})
	require.NoError(t, err)

	require.NoError(t, s.MarkEmailConfirmed(ctx, "u1"))
	got, err := s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	require.True(t, got.EmailConfirmed)
	require.Equal(t, ardentid.StatusActive, got.Status)
	require.False(t, got.UpdatedAt.IsZero())

	require.ErrorIs(t, s.MarkEmailConfirmed(ctx, "missing"), ardentid.ErrUserNotFound)
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindByEmail(ctx, "a@x.io")
	require.True(t, errors.Is(err, context.Canceled))
}
