package ideas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freetime-planner/freetime/internal/app/domain"
	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/internal/app/storage/memory"
)

func seed(t *testing.T, svc *Service) (idea.Idea, idea.Idea, idea.Idea) {
	t.Helper()
	ctx := context.Background()
	hike, err := svc.Create(ctx, 1, idea.Input{Title: "Hike", Category: "outdoor", Tags: []string{"nature", "weekend"}})
	require.NoError(t, err)
	picnic, err := svc.Create(ctx, 1, idea.Input{Title: "Picnic", Category: "outdoor", Tags: []string{"food", "nature"}})
	require.NoError(t, err)
	chess, err := svc.Create(ctx, 2, idea.Input{Title: "Chess", Category: "indoor", Tags: []string{"games"}})
	require.NoError(t, err)
	return hike, picnic, chess
}

func TestCreateNormalizesInput(t *testing.T) {
	svc := New(memory.New(), nil)

	created, err := svc.Create(context.Background(), 3, idea.Input{
		Title:    "  Museum visit ",
		Category: " culture",
		Tags:     []string{" art ", "", "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Museum visit", created.Title)
	assert.Equal(t, "culture", created.Category)
	assert.Equal(t, []string{"art"}, created.Tags)
	assert.Equal(t, int64(3), created.UserID)
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, idea.Input{Title: " ", Category: "outdoor"})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Create(ctx, 1, idea.Input{Title: "Hike"})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Create(ctx, 0, idea.Input{Title: "Hike", Category: "outdoor"})
	assert.True(t, domain.IsValidation(err))
}

func TestRandomFiltersByCategoryAndTags(t *testing.T) {
	svc := New(memory.New(), nil)
	hike, picnic, chess := seed(t, svc)
	ctx := context.Background()

	svc.pick = func(n int) int { return n - 1 }

	got, err := svc.Random(ctx, "outdoor", nil)
	require.NoError(t, err)
	assert.Equal(t, picnic.ID, got.ID)

	got, err = svc.Random(ctx, "", []string{"weekend"})
	require.NoError(t, err)
	assert.Equal(t, hike.ID, got.ID)

	got, err = svc.Random(ctx, "indoor", []string{"games"})
	require.NoError(t, err)
	assert.Equal(t, chess.ID, got.ID)

	_, err = svc.Random(ctx, "outdoor", []string{"games"})
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRandomOnEmptyStore(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Random(context.Background(), "", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRandomCoversEveryCandidate(t *testing.T) {
	svc := New(memory.New(), nil)
	seed(t, svc)

	seen := map[int64]bool{}
	for i := 0; i < 200; i++ {
		got, err := svc.Random(context.Background(), "outdoor", nil)
		require.NoError(t, err)
		assert.Equal(t, "outdoor", got.Category)
		seen[got.ID] = true
	}
	assert.Len(t, seen, 2)
}

func TestListFilters(t *testing.T) {
	svc := New(memory.New(), nil)
	hike, picnic, chess := seed(t, svc)
	ctx := context.Background()

	outdoor, err := svc.ListByCategory(ctx, "outdoor")
	require.NoError(t, err)
	assert.Equal(t, []int64{hike.ID, picnic.ID}, ids(outdoor))

	tagged, err := svc.ListByTags(ctx, []string{"nature", " food "})
	require.NoError(t, err)
	assert.Equal(t, []int64{picnic.ID}, ids(tagged))

	mine, err := svc.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{chess.ID}, ids(mine))

	none, err := svc.ListByCategory(ctx, "Outdoor")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := New(memory.New(), nil)
	hike, _, _ := seed(t, svc)
	ctx := context.Background()

	updated, err := svc.Update(ctx, hike.ID, idea.Input{Title: "Mountain hike", Category: "outdoor"})
	require.NoError(t, err)
	assert.Equal(t, "Mountain hike", updated.Title)
	assert.Equal(t, hike.UserID, updated.UserID)
	assert.Empty(t, updated.Tags)

	_, err = svc.Update(ctx, 999, idea.Input{Title: "Ghost", Category: "none"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	removed, err := svc.Delete(ctx, hike.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Delete(ctx, hike.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.Get(ctx, hike.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func ids(list []idea.Idea) []int64 {
	out := make([]int64, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.ID)
	}
	return out
}
