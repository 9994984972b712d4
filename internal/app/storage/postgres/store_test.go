package postgres

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/internal/platform/database"
	"github.com/freetime-planner/freetime/internal/platform/migrations"
)

var (
	ideaCols       = []string{"id", "user_id", "title", "category", "tags", "created_at", "updated_at"}
	profileCols    = []string{"id", "username", "bio", "created_at", "updated_at", "idea_ids"}
	planCols       = []string{"id", "user_id", "week_start_date", "week_end_date", "idea_ids", "created_at", "updated_at"}
	invitationCols = []string{"id", "inviter_id", "invitee_email", "message", "event_id", "status", "created_at", "updated_at"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateIdea(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO ideas").
		WithArgs(int64(7), "Hike", "outdoor", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(ideaCols).AddRow(int64(1), int64(7), "Hike", "outdoor", "{nature,weekend}", now, now))

	created, err := store.CreateIdea(context.Background(), 7, idea.Input{Title: "Hike", Category: "outdoor", Tags: []string{"nature", "weekend"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(7), created.UserID)
	assert.Equal(t, []string{"nature", "weekend"}, created.Tags)
}

func TestGetIdeaNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM ideas WHERE id = ").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(ideaCols))

	_, err := store.GetIdea(context.Background(), 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListIdeasByTagsUsesContainment(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tags @> $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(ideaCols).
			AddRow(int64(2), int64(1), "Picnic", "outdoor", "{food,nature}", now, now))

	ideas, err := store.ListIdeasByTags(context.Background(), []string{"nature"})
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "Picnic", ideas[0].Title)
}

func TestDeleteIdeaMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM ideas").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.DeleteIdea(context.Background(), 4), storage.ErrNotFound)
}

func TestCreateProfileConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs("alice", nil, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := store.CreateProfile(context.Background(), profile.Input{Username: "alice"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestGetProfileDerivesIdeaIDs(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM profiles p WHERE p.id = ").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(int64(1), "alice", "outdoors", now, now, "{3,5}"))

	got, err := store.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, got.IdeaIDs)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "outdoors", *got.Bio)
}

func TestFollowReportsNewEdge(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO profile_follows").
		WithArgs(int64(1), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO profile_follows").
		WithArgs(int64(1), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := store.Follow(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.Follow(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFollowUnknownProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO profile_follows").
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	_, err := store.Follow(context.Background(), 1, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnfollowUnknownProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ARRAY(SELECT id FROM profiles")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"array"}).AddRow("{1}"))

	_, err := store.Unfollow(context.Background(), 1, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListFollowers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ARRAY(SELECT id FROM profiles")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"array"}).AddRow("{2}"))
	mock.ExpectQuery("SELECT follower_id FROM profile_follows").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"follower_id"}).AddRow(int64(1)).AddRow(int64(3)))

	ids, err := store.ListFollowers(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestCreatePlanConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO weekly_plans").
		WithArgs(int64(1), "2024-06-03", "2024-06-09", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := store.CreatePlan(context.Background(), 1, plan.Input{WeekStartDate: "2024-06-03", WeekEndDate: "2024-06-09"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestLatestPlanForUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY week_start_date DESC").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(planCols).AddRow(int64(4), int64(1), "2024-06-10", "2024-06-16", "{2}", now, now))

	got, err := store.GetLatestPlanForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-10", got.WeekStartDate)
	assert.Equal(t, []int64{2}, got.IdeaIDs)
}

func TestDeletePlanMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM weekly_plans").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.DeletePlan(context.Background(), 3), storage.ErrNotFound)
}

func TestListInvitationsByEvent(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("WHERE event_id = ").
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows(invitationCols).
			AddRow(int64(1), int64(2), "bob@example.com", nil, int64(12), "pending", now, now))

	invites, err := store.ListInvitationsByEvent(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Nil(t, invites[0].Message)
	require.NotNil(t, invites[0].EventID)
	assert.Equal(t, int64(12), *invites[0].EventID)
}

func TestUpdateInvitationStatusMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE invitations").
		WithArgs(int64(5), "accepted", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(invitationCols))

	_, err := store.UpdateInvitationStatus(context.Background(), 5, "accepted")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, dsn, database.Options{})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Apply(ctx, db.DB))

	store := New(db)

	owner, err := store.CreateProfile(ctx, profile.Input{Username: "it-" + time.Now().Format("150405.000000")})
	require.NoError(t, err)
	defer store.DeleteProfile(ctx, owner.ID)

	created, err := store.CreateIdea(ctx, owner.ID, idea.Input{Title: "Hike", Category: "outdoor", Tags: []string{"nature"}})
	require.NoError(t, err)
	defer store.DeleteIdea(ctx, created.ID)

	tagged, err := store.ListIdeasByTags(ctx, []string{"nature"})
	require.NoError(t, err)
	assert.NotEmpty(t, tagged)

	ids, err := store.ListProfileIdeaIDs(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, ids)

	weekly, err := store.CreatePlan(ctx, owner.ID, plan.Input{WeekStartDate: "2024-06-03", WeekEndDate: "2024-06-09", IdeaIDs: []int64{created.ID}})
	require.NoError(t, err)
	defer store.DeletePlan(ctx, weekly.ID)
	assert.Equal(t, "2024-06-03", weekly.WeekStartDate)

	_, err = store.CreatePlan(ctx, owner.ID, plan.Input{WeekStartDate: "2024-06-03", WeekEndDate: "2024-06-09"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	invite, err := store.CreateInvitation(ctx, invitation.Input{InviterID: owner.ID, InviteeEmail: "bob@example.com"}, invitation.StatusPending)
	require.NoError(t, err)
	defer store.DeleteInvitation(ctx, invite.ID)
	assert.Equal(t, invitation.StatusPending, invite.Status)
}
