package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/apperr"
	"github.com/okrish/wavelink/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newChannelService(store *memStore) *service.ChannelService {
	return service.NewChannelService(store, store, userRepo{store}, zap.NewNop())
}

func TestChannelCreate_OwnerBecomesMember(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	owner := store.addUser("alice")

	ch, err := svc.Create(context.Background(), owner, "general", "talk", false)
	require.NoError(t, err)
	assert.Equal(t, owner, ch.OwnerID)

	member, err := store.IsMember(context.Background(), ch.ID, owner)
	require.NoError(t, err)
	assert.True(t, member, "owner must be a member from creation")
}

func TestChannelCreate_EmptyNameRejected(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	owner := store.addUser("alice")

	_, err := svc.Create(context.Background(), owner, "   ", "", false)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestChannelList_PrivateHiddenFromNonMembers(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	public, err := svc.Create(context.Background(), alice, "general", "", false)
	require.NoError(t, err)
	secret, err := svc.Create(context.Background(), alice, "secret", "", true)
	require.NoError(t, err)

	visible, err := svc.List(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, public.ID, visible[0].ID)

	// The owner sees both.
	visible, err = svc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	_, err = svc.Get(context.Background(), bob, secret.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChannelGet_NotFound(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")

	_, err := svc.Get(context.Background(), alice, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChannelUpdate_PartialAndOwnerOnly(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	ch, err := svc.Create(context.Background(), alice, "general", "old description", false)
	require.NoError(t, err)

	name := "renamed"
	updated, err := svc.Update(context.Background(), alice, ch.ID, &name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "old description", updated.Description, "omitted fields keep their value")
	assert.False(t, updated.IsPrivate)

	_, err = svc.Update(context.Background(), bob, ch.ID, &name, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChannelDelete_OwnerOnly(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	ch, err := svc.Create(context.Background(), alice, "general", "", false)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), bob, ch.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), alice, ch.ID))

	err = svc.Delete(context.Background(), alice, ch.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChannelJoin(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	public, err := svc.Create(context.Background(), alice, "general", "", false)
	require.NoError(t, err)
	private, err := svc.Create(context.Background(), alice, "secret", "", true)
	require.NoError(t, err)

	require.NoError(t, svc.Join(context.Background(), bob, public.ID))

	// Second join by the same user observes a conflict, not a duplicate.
	err = svc.Join(context.Background(), bob, public.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Private channels are never self-joinable.
	err = svc.Join(context.Background(), bob, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = svc.Join(context.Background(), bob, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChannelLeave(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	carol := store.addUser("carol")

	ch, err := svc.Create(context.Background(), alice, "general", "", false)
	require.NoError(t, err)
	require.NoError(t, svc.Join(context.Background(), bob, ch.ID))

	// The owner can never leave.
	err = svc.Leave(context.Background(), alice, ch.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	member, err := store.IsMember(context.Background(), ch.ID, alice)
	require.NoError(t, err)
	assert.True(t, member, "owner remains a member after a rejected leave")

	// Leaving without being a member is a conflict.
	err = svc.Leave(context.Background(), carol, ch.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, svc.Leave(context.Background(), bob, ch.ID))
	err = svc.Leave(context.Background(), bob, ch.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestChannelCheckAccess(t *testing.T) {
	store := newMemStore()
	svc := newChannelService(store)
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	public, err := svc.Create(context.Background(), alice, "general", "", false)
	require.NoError(t, err)
	private, err := svc.Create(context.Background(), alice, "secret", "", true)
	require.NoError(t, err)

	assert.NoError(t, svc.CheckAccess(context.Background(), bob, public.ID))
	assert.ErrorIs(t, svc.CheckAccess(context.Background(), bob, private.ID), apperr.ErrForbidden)
	assert.NoError(t, svc.CheckAccess(context.Background(), alice, private.ID))
	assert.ErrorIs(t, svc.CheckAccess(context.Background(), bob, uuid.New()), apperr.ErrNotFound)
}
