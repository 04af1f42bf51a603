package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t)
	a := f.reader("alice", "standard")
	b := f.reader("bob", "standard")

	f.svc.Env.notify(f.ctx, a.UserID, "first")
	f.svc.Env.notifyOnce(f.ctx, a.UserID, "k1", "second")
	f.svc.Env.notifyOnce(f.ctx, a.UserID, "k1", "second")
	f.svc.Env.notify(f.ctx, b.UserID, "for bob")

	list, err := f.svc.Notifications.List(f.ctx, a.UserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "first", list[1].Message)
	assert.Len(t, f.push.For(a.UserID), 2)

	require.NoError(t, f.svc.Notifications.MarkRead(f.ctx, a.UserID, list[1].ID))
	list, err = f.svc.Notifications.List(f.ctx, a.UserID)
	require.NoError(t, err)
	assert.True(t, list[1].IsRead)
	assert.False(t, list[0].IsRead)

	bobs, err := f.svc.Notifications.List(f.ctx, b.UserID)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	err = f.svc.Notifications.MarkRead(f.ctx, a.UserID, bobs[0].ID)
	requireStatus(t, err, http.StatusNotFound)
	err = f.svc.Notifications.Delete(f.ctx, a.UserID, bobs[0].ID)
	requireStatus(t, err, http.StatusNotFound)

	require.NoError(t, f.svc.Notifications.Delete(f.ctx, a.UserID, list[0].ID))
	list, err = f.svc.Notifications.List(f.ctx, a.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	empty, err := f.svc.Notifications.List(f.ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestNotificationKeys(t *testing.T) {
	f := newFixture(t)
	a := f.reader("alice", "standard")
	b := f.reader("bob", "standard")

	// unkeyed messages are events and always delivered
	f.svc.Env.notify(f.ctx, a.UserID, "Book returned")
	f.svc.Env.notify(f.ctx, a.UserID, "Book returned")
	f.svc.Env.notifyOnce(f.ctx, a.UserID, "due:D1", "due tomorrow")
	f.svc.Env.notifyOnce(f.ctx, a.UserID, "due:D1", "due tomorrow, again")
	f.svc.Env.notifyOnce(f.ctx, b.UserID, "due:D1", "due tomorrow")

	list, err := f.svc.Notifications.List(f.ctx, a.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, []string{"Book returned", "Book returned", "due tomorrow"}, f.push.For(a.UserID))
	assert.Len(t, f.push.For(b.UserID), 1)

	// deleting a keyed message frees its key
	require.NoError(t, f.svc.Notifications.Delete(f.ctx, a.UserID, list[0].ID))
	f.svc.Env.notifyOnce(f.ctx, a.UserID, "due:D1", "due tomorrow")
	list, err = f.svc.Notifications.List(f.ctx, a.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
