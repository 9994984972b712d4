package profiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freetime-planner/freetime/internal/app/domain"
	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/internal/app/storage/memory"
)

func TestCreateAndLookup(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	bio := "  likes hiking "
	created, err := svc.Create(ctx, profile.Input{Username: " alice ", Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	require.NotNil(t, created.Bio)
	assert.Equal(t, "likes hiking", *created.Bio)
	assert.Empty(t, created.IdeaIDs)

	byName, err := svc.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = svc.Create(ctx, profile.Input{Username: "alice"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = svc.Create(ctx, profile.Input{Username: "  "})
	assert.True(t, domain.IsValidation(err))
}

func TestIdeaIDsFollowAuthoredIdeas(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	alice, err := svc.Create(ctx, profile.Input{Username: "alice"})
	require.NoError(t, err)

	first, err := store.CreateIdea(ctx, alice.ID, idea.Input{Title: "Hike", Category: "outdoor"})
	require.NoError(t, err)
	second, err := store.CreateIdea(ctx, alice.ID, idea.Input{Title: "Swim", Category: "outdoor"})
	require.NoError(t, err)

	got, err := svc.IdeaIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, got)

	require.NoError(t, store.DeleteIdea(ctx, first.ID))
	fetched, err := svc.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID}, fetched.IdeaIDs)

	_, err = svc.IdeaIDs(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFollowGraph(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	alice, err := svc.Create(ctx, profile.Input{Username: "alice"})
	require.NoError(t, err)
	bob, err := svc.Create(ctx, profile.Input{Username: "bob"})
	require.NoError(t, err)

	changed, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = svc.Follow(ctx, alice.ID, alice.ID)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Follow(ctx, alice.ID, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	followers, err := svc.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID}, followers)

	following, err := svc.Following(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{bob.ID}, following)

	changed, err = svc.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDeleteRemovesEdges(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	alice, _ := svc.Create(ctx, profile.Input{Username: "alice"})
	bob, _ := svc.Create(ctx, profile.Input{Username: "bob"})
	_, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	followers, err := svc.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)

	removed, err = svc.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUpdate(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	alice, _ := svc.Create(ctx, profile.Input{Username: "alice"})
	_, _ = svc.Create(ctx, profile.Input{Username: "bob"})

	updated, err := svc.Update(ctx, alice.ID, profile.Input{Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Nil(t, updated.Bio)

	_, err = svc.Update(ctx, alice.ID, profile.Input{Username: "bob"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = svc.Update(ctx, 999, profile.Input{Username: "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
