package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_NotifyDedupsRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.profile(t, "a@example.com", models.RoleUser)
	b := f.profile(t, "b@example.com", models.RoleUser)

	rows, err := f.notifications.Notify(ctx, []uint{a.ID, 0, b.ID, a.ID}, NotifyInput{
		Type:     models.NotificationComment,
		Content:  "hello",
		Metadata: map[string]any{"comment_id": 9},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, f.publisher.count(a.ID))

	var meta map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Metadata, &meta))
	assert.Equal(t, float64(9), meta["comment_id"])

	rows, err = f.notifications.Notify(ctx, nil, NotifyInput{Type: models.NotificationComment, Content: "x"})
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNotificationService_PushFailureIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.profile(t, "a@example.com", models.RoleUser)
	f.publisher.err = errors.New("redis unavailable")

	rows, err := f.notifications.NotifyAll(ctx, NotifyInput{Type: models.NotificationAdminPost, Content: "x"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(1), f.notificationCount(t, a.ID))
}

func TestNotificationService_ReadAndDeleteAreScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.profile(t, "a@example.com", models.RoleUser)
	b := f.profile(t, "b@example.com", models.RoleUser)

	rows, err := f.notifications.NotifyAll(ctx, NotifyInput{Type: models.NotificationAdminPost, Content: "one"})
	require.NoError(t, err)
	_, err = f.notifications.NotifyAll(ctx, NotifyInput{Type: models.NotificationAdminPost, Content: "two"})
	require.NoError(t, err)

	var ofA, ofB uint
	for _, n := range rows {
		if n.UserID == a.ID {
			ofA = n.ID
		} else {
			ofB = n.ID
		}
	}

	assert.True(t, models.IsNotFound(f.notifications.MarkRead(ctx, a.ID, ofB)))
	require.NoError(t, f.notifications.MarkRead(ctx, a.ID, ofA))

	unread, err := f.notifications.UnreadCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	marked, err := f.notifications.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	assert.True(t, models.IsNotFound(f.notifications.Delete(ctx, b.ID, ofA)))
	require.NoError(t, f.notifications.Delete(ctx, a.ID, ofA))

	removed, err := f.notifications.DeleteAll(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	left, err := f.notifications.List(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "two", left[0].Content)
	assert.True(t, left[0].IsRead)
}
