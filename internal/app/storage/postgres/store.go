package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/storage"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.IdeaStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.PlanStore = (*Store)(nil)
var _ storage.InvitationStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// translate maps driver errors onto the storage sentinels.
func translate(err error, subject string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", subject, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", subject, storage.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", subject, storage.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", subject, err)
}

func expectAffected(result sql.Result, subject string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", subject, storage.ErrNotFound)
	}
	return nil
}

// --- IdeaStore --------------------------------------------------------------

const ideaColumns = `id, user_id, title, category, tags, created_at, updated_at`

type ideaRow struct {
	ID        int64          `db:"id"`
	UserID    int64          `db:"user_id"`
	Title     string         `db:"title"`
	Category  string         `db:"category"`
	Tags      pq.StringArray `db:"tags"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r ideaRow) toDomain() idea.Idea {
	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)
	return idea.Idea{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Category:  r.Category,
		Tags:      tags,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func ideasFromRows(rows []ideaRow) []idea.Idea {
	result := make([]idea.Idea, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result
}

func (s *Store) CreateIdea(ctx context.Context, userID int64, in idea.Input) (idea.Idea, error) {
	var row ideaRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO ideas (user_id, title, category, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+ideaColumns,
		userID, in.Title, in.Category, pq.StringArray(nonNilStrings(in.Tags)), time.Now().UTC())
	if err != nil {
		return idea.Idea{}, translate(err, "create idea")
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateIdea(ctx context.Context, id int64, in idea.Input) (idea.Idea, error) {
	var row ideaRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE ideas
		SET title = $2, category = $3, tags = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+ideaColumns,
		id, in.Title, in.Category, pq.StringArray(nonNilStrings(in.Tags)), time.Now().UTC())
	if err != nil {
		return idea.Idea{}, translate(err, fmt.Sprintf("idea %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) GetIdea(ctx context.Context, id int64) (idea.Idea, error) {
	var row ideaRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1`, id); err != nil {
		return idea.Idea{}, translate(err, fmt.Sprintf("idea %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) ListIdeas(ctx context.Context) ([]idea.Idea, error) {
	return s.selectIdeas(ctx, `SELECT `+ideaColumns+` FROM ideas ORDER BY id`)
}

func (s *Store) ListIdeasByCategory(ctx context.Context, category string) ([]idea.Idea, error) {
	return s.selectIdeas(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE category = $1 ORDER BY id`, category)
}

func (s *Store) ListIdeasByTags(ctx context.Context, tags []string) ([]idea.Idea, error) {
	return s.selectIdeas(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE tags @> $1 ORDER BY id`, pq.StringArray(nonNilStrings(tags)))
}

func (s *Store) ListIdeasByUser(ctx context.Context, userID int64) ([]idea.Idea, error) {
	return s.selectIdeas(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE user_id = $1 ORDER BY id`, userID)
}

func (s *Store) DeleteIdea(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("idea %d", id))
	}
	return expectAffected(result, fmt.Sprintf("idea %d", id))
}

func (s *Store) selectIdeas(ctx context.Context, query string, args ...interface{}) ([]idea.Idea, error) {
	var rows []ideaRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list ideas")
	}
	return ideasFromRows(rows), nil
}

// --- ProfileStore -----------------------------------------------------------

const profileProjection = `
	SELECT p.id, p.username, p.bio, p.created_at, p.updated_at,
		ARRAY(SELECT i.id FROM ideas i WHERE i.user_id = p.id ORDER BY i.id) AS idea_ids`

type profileRow struct {
	ID        int64          `db:"id"`
	Username  string         `db:"username"`
	Bio       sql.NullString `db:"bio"`
	IdeaIDs   pq.Int64Array  `db:"idea_ids"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r profileRow) toDomain() profile.Profile {
	rec := profile.Profile{
		ID:        r.ID,
		Username:  r.Username,
		IdeaIDs:   nonNilInt64s(r.IdeaIDs),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Bio.Valid {
		bio := r.Bio.String
		rec.Bio = &bio
	}
	return rec
}

func (s *Store) CreateProfile(ctx context.Context, in profile.Input) (profile.Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `
		WITH p AS (
			INSERT INTO profiles (username, bio, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING *
		)`+profileProjection+` FROM p`,
		in.Username, nullString(in.Bio), time.Now().UTC())
	if err != nil {
		return profile.Profile{}, translate(err, fmt.Sprintf("profile %q", in.Username))
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id int64, in profile.Input) (profile.Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `
		WITH p AS (
			UPDATE profiles
			SET username = $2, bio = $3, updated_at = $4
			WHERE id = $1
			RETURNING *
		)`+profileProjection+` FROM p`,
		id, in.Username, nullString(in.Bio), time.Now().UTC())
	if err != nil {
		return profile.Profile{}, translate(err, fmt.Sprintf("profile %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) GetProfile(ctx context.Context, id int64) (profile.Profile, error) {
	var row profileRow
	if err := s.db.GetContext(ctx, &row, profileProjection+` FROM profiles p WHERE p.id = $1`, id); err != nil {
		return profile.Profile{}, translate(err, fmt.Sprintf("profile %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (profile.Profile, error) {
	var row profileRow
	if err := s.db.GetContext(ctx, &row, profileProjection+` FROM profiles p WHERE p.username = $1`, username); err != nil {
		return profile.Profile{}, translate(err, fmt.Sprintf("profile %q", username))
	}
	return row.toDomain(), nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, profileProjection+` FROM profiles p ORDER BY p.id`); err != nil {
		return nil, translate(err, "list profiles")
	}
	result := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListProfileIdeaIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids pq.Int64Array
	err := s.db.GetContext(ctx, &ids, `
		SELECT ARRAY(SELECT i.id FROM ideas i WHERE i.user_id = p.id ORDER BY i.id)
		FROM profiles p
		WHERE p.id = $1`, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("profile %d", id))
	}
	return nonNilInt64s(ids), nil
}

func (s *Store) DeleteProfile(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("profile %d", id))
	}
	return expectAffected(result, fmt.Sprintf("profile %d", id))
}

func (s *Store) Follow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_follows (follower_id, followee_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		followerID, followeeID, time.Now().UTC())
	if err != nil {
		return false, translate(err, fmt.Sprintf("follow %d -> %d", followerID, followeeID))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if err := s.requireProfiles(ctx, followerID, followeeID); err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM profile_follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	if err != nil {
		return false, translate(err, fmt.Sprintf("unfollow %d -> %d", followerID, followeeID))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) ListFollowers(ctx context.Context, id int64) ([]int64, error) {
	return s.selectEdges(ctx, id, `SELECT follower_id FROM profile_follows WHERE followee_id = $1 ORDER BY follower_id`)
}

func (s *Store) ListFollowing(ctx context.Context, id int64) ([]int64, error) {
	return s.selectEdges(ctx, id, `SELECT followee_id FROM profile_follows WHERE follower_id = $1 ORDER BY followee_id`)
}

func (s *Store) selectEdges(ctx context.Context, id int64, query string) ([]int64, error) {
	if err := s.requireProfiles(ctx, id); err != nil {
		return nil, err
	}
	ids := make([]int64, 0)
	if err := s.db.SelectContext(ctx, &ids, query, id); err != nil {
		return nil, translate(err, fmt.Sprintf("profile %d edges", id))
	}
	return ids, nil
}

func (s *Store) requireProfiles(ctx context.Context, ids ...int64) error {
	var found pq.Int64Array
	if err := s.db.GetContext(ctx, &found, `SELECT ARRAY(SELECT id FROM profiles WHERE id = ANY($1))`, pq.Int64Array(ids)); err != nil {
		return translate(err, "lookup profiles")
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return fmt.Errorf("profile %d: %w", id, storage.ErrNotFound)
		}
	}
	return nil
}

// --- PlanStore --------------------------------------------------------------

const planColumns = `id, user_id,
	to_char(week_start_date, 'YYYY-MM-DD') AS week_start_date,
	to_char(week_end_date, 'YYYY-MM-DD') AS week_end_date,
	idea_ids, created_at, updated_at`

type planRow struct {
	ID            int64         `db:"id"`
	UserID        int64         `db:"user_id"`
	WeekStartDate string        `db:"week_start_date"`
	WeekEndDate   string        `db:"week_end_date"`
	IdeaIDs       pq.Int64Array `db:"idea_ids"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r planRow) toDomain() plan.WeeklyPlan {
	return plan.WeeklyPlan{
		ID:            r.ID,
		UserID:        r.UserID,
		WeekStartDate: r.WeekStartDate,
		WeekEndDate:   r.WeekEndDate,
		IdeaIDs:       nonNilInt64s(r.IdeaIDs),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (s *Store) CreatePlan(ctx context.Context, userID int64, in plan.Input) (plan.WeeklyPlan, error) {
	var row planRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO weekly_plans (user_id, week_start_date, week_end_date, idea_ids, created_at, updated_at)
		VALUES ($1, $2::date, $3::date, $4, $5, $5)
		RETURNING `+planColumns,
		userID, in.WeekStartDate, in.WeekEndDate, pq.Int64Array(nonNilInt64s(in.IdeaIDs)), time.Now().UTC())
	if err != nil {
		return plan.WeeklyPlan{}, translate(err, fmt.Sprintf("plan for user %d week %s", userID, in.WeekStartDate))
	}
	return row.toDomain(), nil
}

func (s *Store) UpdatePlan(ctx context.Context, id int64, in plan.Input) (plan.WeeklyPlan, error) {
	var row planRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE weekly_plans
		SET week_start_date = $2::date, week_end_date = $3::date, idea_ids = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+planColumns,
		id, in.WeekStartDate, in.WeekEndDate, pq.Int64Array(nonNilInt64s(in.IdeaIDs)), time.Now().UTC())
	if err != nil {
		return plan.WeeklyPlan{}, translate(err, fmt.Sprintf("plan %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) GetPlan(ctx context.Context, id int64) (plan.WeeklyPlan, error) {
	var row planRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+planColumns+` FROM weekly_plans WHERE id = $1`, id); err != nil {
		return plan.WeeklyPlan{}, translate(err, fmt.Sprintf("plan %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) GetLatestPlanForUser(ctx context.Context, userID int64) (plan.WeeklyPlan, error) {
	var row planRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+planColumns+`
		FROM weekly_plans
		WHERE user_id = $1
		ORDER BY week_start_date DESC, id DESC
		LIMIT 1`, userID)
	if err != nil {
		return plan.WeeklyPlan{}, translate(err, fmt.Sprintf("plan for user %d", userID))
	}
	return row.toDomain(), nil
}

func (s *Store) ListPlansForUser(ctx context.Context, userID int64) ([]plan.WeeklyPlan, error) {
	var rows []planRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+planColumns+`
		FROM weekly_plans
		WHERE user_id = $1
		ORDER BY week_start_date, id`, userID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("plans for user %d", userID))
	}
	result := make([]plan.WeeklyPlan, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM weekly_plans WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("plan %d", id))
	}
	return expectAffected(result, fmt.Sprintf("plan %d", id))
}

// --- InvitationStore --------------------------------------------------------

const invitationColumns = `id, inviter_id, invitee_email, message, event_id, status, created_at, updated_at`

type invitationRow struct {
	ID           int64          `db:"id"`
	InviterID    int64          `db:"inviter_id"`
	InviteeEmail string         `db:"invitee_email"`
	Message      sql.NullString `db:"message"`
	EventID      sql.NullInt64  `db:"event_id"`
	Status       string         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r invitationRow) toDomain() invitation.Invitation {
	rec := invitation.Invitation{
		ID:           r.ID,
		InviterID:    r.InviterID,
		InviteeEmail: r.InviteeEmail,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Message.Valid {
		msg := r.Message.String
		rec.Message = &msg
	}
	if r.EventID.Valid {
		eventID := r.EventID.Int64
		rec.EventID = &eventID
	}
	return rec
}

func (s *Store) CreateInvitation(ctx context.Context, in invitation.Input, status string) (invitation.Invitation, error) {
	var row invitationRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO invitations (inviter_id, invitee_email, message, event_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+invitationColumns,
		in.InviterID, in.InviteeEmail, nullString(in.Message), nullInt64(in.EventID), status, time.Now().UTC())
	if err != nil {
		return invitation.Invitation{}, translate(err, "create invitation")
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateInvitationStatus(ctx context.Context, id int64, status string) (invitation.Invitation, error) {
	var row invitationRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE invitations
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+invitationColumns,
		id, status, time.Now().UTC())
	if err != nil {
		return invitation.Invitation{}, translate(err, fmt.Sprintf("invitation %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) GetInvitation(ctx context.Context, id int64) (invitation.Invitation, error) {
	var row invitationRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id); err != nil {
		return invitation.Invitation{}, translate(err, fmt.Sprintf("invitation %d", id))
	}
	return row.toDomain(), nil
}

func (s *Store) ListInvitations(ctx context.Context) ([]invitation.Invitation, error) {
	return s.selectInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations ORDER BY id`)
}

func (s *Store) ListInvitationsByInviter(ctx context.Context, inviterID int64) ([]invitation.Invitation, error) {
	return s.selectInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE inviter_id = $1 ORDER BY id`, inviterID)
}

func (s *Store) ListInvitationsByEvent(ctx context.Context, eventID int64) ([]invitation.Invitation, error) {
	return s.selectInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE event_id = $1 ORDER BY id`, eventID)
}

func (s *Store) ListInvitationsByStatus(ctx context.Context, status string) ([]invitation.Invitation, error) {
	return s.selectInvitations(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE status = $1 ORDER BY id`, status)
}

func (s *Store) DeleteInvitation(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("invitation %d", id))
	}
	return expectAffected(result, fmt.Sprintf("invitation %d", id))
}

func (s *Store) selectInvitations(ctx context.Context, query string, args ...interface{}) ([]invitation.Invitation, error) {
	var rows []invitationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list invitations")
	}
	result := make([]invitation.Invitation, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- helpers ----------------------------------------------------------------

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilInt64s(in []int64) []int64 {
	out := make([]int64, len(in))
	copy(out, in)
	return out
}
