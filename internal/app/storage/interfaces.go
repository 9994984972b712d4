package storage

import (
	"context"
	"errors"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness rule.
	ErrConflict = errors.New("conflict")
)

// IdeaStore persists ideas. List methods return records ordered by id.
type IdeaStore interface {
	CreateIdea(ctx context.Context, userID int64, in idea.Input) (idea.Idea, error)
	UpdateIdea(ctx context.Context, id int64, in idea.Input) (idea.Idea, error)
	GetIdea(ctx context.Context, id int64) (idea.Idea, error)
	ListIdeas(ctx context.Context) ([]idea.Idea, error)
	ListIdeasByCategory(ctx context.Context, category string) ([]idea.Idea, error)
	// ListIdeasByTags returns ideas carrying every given tag.
	ListIdeasByTags(ctx context.Context, tags []string) ([]idea.Idea, error)
	ListIdeasByUser(ctx context.Context, userID int64) ([]idea.Idea, error)
	DeleteIdea(ctx context.Context, id int64) error
}

// ProfileStore persists user profiles and the follow graph between them.
// Returned profiles always carry their derived IdeaIDs.
type ProfileStore interface {
	CreateProfile(ctx context.Context, in profile.Input) (profile.Profile, error)
	UpdateProfile(ctx context.Context, id int64, in profile.Input) (profile.Profile, error)
	GetProfile(ctx context.Context, id int64) (profile.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (profile.Profile, error)
	ListProfiles(ctx context.Context) ([]profile.Profile, error)
	ListProfileIdeaIDs(ctx context.Context, id int64) ([]int64, error)
	DeleteProfile(ctx context.Context, id int64) error

	// Follow records a directed edge and reports whether it was new.
	Follow(ctx context.Context, followerID, followeeID int64) (bool, error)
	// Unfollow removes a directed edge and reports whether one existed.
	Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListFollowers(ctx context.Context, id int64) ([]int64, error)
	ListFollowing(ctx context.Context, id int64) ([]int64, error)
}

// PlanStore persists weekly plans. A user has at most one plan per
// week start date.
type PlanStore interface {
	CreatePlan(ctx context.Context, userID int64, in plan.Input) (plan.WeeklyPlan, error)
	UpdatePlan(ctx context.Context, id int64, in plan.Input) (plan.WeeklyPlan, error)
	GetPlan(ctx context.Context, id int64) (plan.WeeklyPlan, error)
	// GetLatestPlanForUser returns the plan with the latest week start date.
	GetLatestPlanForUser(ctx context.Context, userID int64) (plan.WeeklyPlan, error)
	// ListPlansForUser returns plans ordered by week start date.
	ListPlansForUser(ctx context.Context, userID int64) ([]plan.WeeklyPlan, error)
	DeletePlan(ctx context.Context, id int64) error
}

// InvitationStore persists invitations.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, in invitation.Input, status string) (invitation.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, id int64, status string) (invitation.Invitation, error)
	GetInvitation(ctx context.Context, id int64) (invitation.Invitation, error)
	ListInvitations(ctx context.Context) ([]invitation.Invitation, error)
	ListInvitationsByInviter(ctx context.Context, inviterID int64) ([]invitation.Invitation, error)
	ListInvitationsByEvent(ctx context.Context, eventID int64) ([]invitation.Invitation, error)
	ListInvitationsByStatus(ctx context.Context, status string) ([]invitation.Invitation, error)
	DeleteInvitation(ctx context.Context, id int64) error
}
