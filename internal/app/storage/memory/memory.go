package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/storage"
)

type edge struct {
	follower int64
	followee int64
}

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	nextIDs     map[string]int64
	ideas       map[int64]idea.Idea
	profiles    map[int64]profile.Profile
	follows     map[edge]struct{}
	plans       map[int64]plan.WeeklyPlan
	invitations map[int64]invitation.Invitation
}

var _ storage.IdeaStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.PlanStore = (*Store)(nil)
var _ storage.InvitationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextIDs:     make(map[string]int64),
		ideas:       make(map[int64]idea.Idea),
		profiles:    make(map[int64]profile.Profile),
		follows:     make(map[edge]struct{}),
		plans:       make(map[int64]plan.WeeklyPlan),
		invitations: make(map[int64]invitation.Invitation),
	}
}

func (s *Store) nextIDLocked(kind string) int64 {
	s.nextIDs[kind]++
	return s.nextIDs[kind]
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
}

// IdeaStore implementation ----------------------------------------------------

func (s *Store) CreateIdea(_ context.Context, userID int64, in idea.Input) (idea.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := idea.Idea{
		ID:        s.nextIDLocked("idea"),
		UserID:    userID,
		Title:     in.Title,
		Category:  in.Category,
		Tags:      cloneStrings(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.ideas[rec.ID] = rec
	return cloneIdea(rec), nil
}

func (s *Store) UpdateIdea(_ context.Context, id int64, in idea.Input) (idea.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ideas[id]
	if !ok {
		return idea.Idea{}, notFound("idea", id)
	}
	rec.Title = in.Title
	rec.Category = in.Category
	rec.Tags = cloneStrings(in.Tags)
	rec.UpdatedAt = time.Now().UTC()
	s.ideas[id] = rec
	return cloneIdea(rec), nil
}

func (s *Store) GetIdea(_ context.Context, id int64) (idea.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.ideas[id]
	if !ok {
		return idea.Idea{}, notFound("idea", id)
	}
	return cloneIdea(rec), nil
}

func (s *Store) ListIdeas(_ context.Context) ([]idea.Idea, error) {
	return s.filterIdeas(func(idea.Idea) bool { return true }), nil
}

func (s *Store) ListIdeasByCategory(_ context.Context, category string) ([]idea.Idea, error) {
	return s.filterIdeas(func(rec idea.Idea) bool { return rec.Category == category }), nil
}

func (s *Store) ListIdeasByTags(_ context.Context, tags []string) ([]idea.Idea, error) {
	return s.filterIdeas(func(rec idea.Idea) bool { return rec.HasTags(tags) }), nil
}

func (s *Store) ListIdeasByUser(_ context.Context, userID int64) ([]idea.Idea, error) {
	return s.filterIdeas(func(rec idea.Idea) bool { return rec.UserID == userID }), nil
}

func (s *Store) DeleteIdea(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ideas[id]; !ok {
		return notFound("idea", id)
	}
	delete(s.ideas, id)
	return nil
}

func (s *Store) filterIdeas(keep func(idea.Idea) bool) []idea.Idea {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]idea.Idea, 0, len(s.ideas))
	for _, rec := range s.ideas {
		if keep(rec) {
			result = append(result, cloneIdea(rec))
		}
	}
	slices.SortFunc(result, func(a, b idea.Idea) int { return compareIDs(a.ID, b.ID) })
	return result
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) CreateProfile(_ context.Context, in profile.Input) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTakenLocked(in.Username, 0) {
		return profile.Profile{}, fmt.Errorf("username %q: %w", in.Username, storage.ErrConflict)
	}

	now := time.Now().UTC()
	rec := profile.Profile{
		ID:        s.nextIDLocked("profile"),
		Username:  in.Username,
		Bio:       cloneString(in.Bio),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.profiles[rec.ID] = rec
	return s.withIdeaIDsLocked(rec), nil
}

func (s *Store) UpdateProfile(_ context.Context, id int64, in profile.Input) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, notFound("profile", id)
	}
	if s.usernameTakenLocked(in.Username, id) {
		return profile.Profile{}, fmt.Errorf("username %q: %w", in.Username, storage.ErrConflict)
	}
	rec.Username = in.Username
	rec.Bio = cloneString(in.Bio)
	rec.UpdatedAt = time.Now().UTC()
	s.profiles[id] = rec
	return s.withIdeaIDsLocked(rec), nil
}

func (s *Store) GetProfile(_ context.Context, id int64) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, notFound("profile", id)
	}
	return s.withIdeaIDsLocked(rec), nil
}

func (s *Store) GetProfileByUsername(_ context.Context, username string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.profiles {
		if rec.Username == username {
			return s.withIdeaIDsLocked(rec), nil
		}
	}
	return profile.Profile{}, fmt.Errorf("profile %q: %w", username, storage.ErrNotFound)
}

func (s *Store) ListProfiles(_ context.Context) ([]profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]profile.Profile, 0, len(s.profiles))
	for _, rec := range s.profiles {
		result = append(result, s.withIdeaIDsLocked(rec))
	}
	slices.SortFunc(result, func(a, b profile.Profile) int { return compareIDs(a.ID, b.ID) })
	return result, nil
}

func (s *Store) ListProfileIdeaIDs(_ context.Context, id int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.profiles[id]; !ok {
		return nil, notFound("profile", id)
	}
	return s.ideaIDsForUserLocked(id), nil
}

func (s *Store) DeleteProfile(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return notFound("profile", id)
	}
	delete(s.profiles, id)
	for e := range s.follows {
		if e.follower == id || e.followee == id {
			delete(s.follows, e)
		}
	}
	return nil
}

func (s *Store) Follow(_ context.Context, followerID, followeeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProfilesLocked(followerID, followeeID); err != nil {
		return false, err
	}
	e := edge{follower: followerID, followee: followeeID}
	if _, exists := s.follows[e]; exists {
		return false, nil
	}
	s.follows[e] = struct{}{}
	return true, nil
}

func (s *Store) Unfollow(_ context.Context, followerID, followeeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProfilesLocked(followerID, followeeID); err != nil {
		return false, err
	}
	e := edge{follower: followerID, followee: followeeID}
	if _, exists := s.follows[e]; !exists {
		return false, nil
	}
	delete(s.follows, e)
	return true, nil
}

func (s *Store) ListFollowers(_ context.Context, id int64) ([]int64, error) {
	return s.neighbours(id, func(e edge) (int64, bool) { return e.follower, e.followee == id })
}

func (s *Store) ListFollowing(_ context.Context, id int64) ([]int64, error) {
	return s.neighbours(id, func(e edge) (int64, bool) { return e.followee, e.follower == id })
}

func (s *Store) neighbours(id int64, pick func(edge) (int64, bool)) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.profiles[id]; !ok {
		return nil, notFound("profile", id)
	}
	result := make([]int64, 0)
	for e := range s.follows {
		if other, ok := pick(e); ok {
			result = append(result, other)
		}
	}
	slices.Sort(result)
	return result, nil
}

func (s *Store) requireProfilesLocked(ids ...int64) error {
	for _, id := range ids {
		if _, ok := s.profiles[id]; !ok {
			return notFound("profile", id)
		}
	}
	return nil
}

func (s *Store) usernameTakenLocked(username string, except int64) bool {
	for id, rec := range s.profiles {
		if id != except && rec.Username == username {
			return true
		}
	}
	return false
}

func (s *Store) withIdeaIDsLocked(rec profile.Profile) profile.Profile {
	rec.Bio = cloneString(rec.Bio)
	rec.IdeaIDs = s.ideaIDsForUserLocked(rec.ID)
	return rec
}

func (s *Store) ideaIDsForUserLocked(userID int64) []int64 {
	ids := make([]int64, 0)
	for id, rec := range s.ideas {
		if rec.UserID == userID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// PlanStore implementation ----------------------------------------------------

func (s *Store) CreatePlan(_ context.Context, userID int64, in plan.Input) (plan.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.weekTakenLocked(userID, in.WeekStartDate, 0) {
		return plan.WeeklyPlan{}, weekConflict(userID, in.WeekStartDate)
	}

	now := time.Now().UTC()
	rec := plan.WeeklyPlan{
		ID:            s.nextIDLocked("plan"),
		UserID:        userID,
		WeekStartDate: in.WeekStartDate,
		WeekEndDate:   in.WeekEndDate,
		IdeaIDs:       cloneInt64s(in.IdeaIDs),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.plans[rec.ID] = rec
	return clonePlan(rec), nil
}

func (s *Store) UpdatePlan(_ context.Context, id int64, in plan.Input) (plan.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.plans[id]
	if !ok {
		return plan.WeeklyPlan{}, notFound("plan", id)
	}
	if s.weekTakenLocked(rec.UserID, in.WeekStartDate, id) {
		return plan.WeeklyPlan{}, weekConflict(rec.UserID, in.WeekStartDate)
	}
	rec.WeekStartDate = in.WeekStartDate
	rec.WeekEndDate = in.WeekEndDate
	rec.IdeaIDs = cloneInt64s(in.IdeaIDs)
	rec.UpdatedAt = time.Now().UTC()
	s.plans[id] = rec
	return clonePlan(rec), nil
}

func (s *Store) GetPlan(_ context.Context, id int64) (plan.WeeklyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.plans[id]
	if !ok {
		return plan.WeeklyPlan{}, notFound("plan", id)
	}
	return clonePlan(rec), nil
}

func (s *Store) GetLatestPlanForUser(ctx context.Context, userID int64) (plan.WeeklyPlan, error) {
	plans, err := s.ListPlansForUser(ctx, userID)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	if len(plans) == 0 {
		return plan.WeeklyPlan{}, fmt.Errorf("plan for user %d: %w", userID, storage.ErrNotFound)
	}
	return plans[len(plans)-1], nil
}

func (s *Store) ListPlansForUser(_ context.Context, userID int64) ([]plan.WeeklyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]plan.WeeklyPlan, 0)
	for _, rec := range s.plans {
		if rec.UserID == userID {
			result = append(result, clonePlan(rec))
		}
	}
	// Dates are YYYY-MM-DD so lexical order is chronological.
	slices.SortFunc(result, func(a, b plan.WeeklyPlan) int {
		switch {
		case a.WeekStartDate < b.WeekStartDate:
			return -1
		case a.WeekStartDate > b.WeekStartDate:
			return 1
		}
		return compareIDs(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) DeletePlan(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[id]; !ok {
		return notFound("plan", id)
	}
	delete(s.plans, id)
	return nil
}

func (s *Store) weekTakenLocked(userID int64, weekStart string, except int64) bool {
	for id, rec := range s.plans {
		if id != except && rec.UserID == userID && rec.WeekStartDate == weekStart {
			return true
		}
	}
	return false
}

func weekConflict(userID int64, weekStart string) error {
	return fmt.Errorf("plan for user %d week %s: %w", userID, weekStart, storage.ErrConflict)
}

// InvitationStore implementation ----------------------------------------------

func (s *Store) CreateInvitation(_ context.Context, in invitation.Input, status string) (invitation.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := invitation.Invitation{
		ID:           s.nextIDLocked("invitation"),
		InviterID:    in.InviterID,
		InviteeEmail: in.InviteeEmail,
		Message:      cloneString(in.Message),
		EventID:      cloneInt64(in.EventID),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.invitations[rec.ID] = rec
	return cloneInvitation(rec), nil
}

func (s *Store) UpdateInvitationStatus(_ context.Context, id int64, status string) (invitation.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invitations[id]
	if !ok {
		return invitation.Invitation{}, notFound("invitation", id)
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	s.invitations[id] = rec
	return cloneInvitation(rec), nil
}

func (s *Store) GetInvitation(_ context.Context, id int64) (invitation.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.invitations[id]
	if !ok {
		return invitation.Invitation{}, notFound("invitation", id)
	}
	return cloneInvitation(rec), nil
}

func (s *Store) ListInvitations(_ context.Context) ([]invitation.Invitation, error) {
	return s.filterInvitations(func(invitation.Invitation) bool { return true }), nil
}

func (s *Store) ListInvitationsByInviter(_ context.Context, inviterID int64) ([]invitation.Invitation, error) {
	return s.filterInvitations(func(rec invitation.Invitation) bool { return rec.InviterID == inviterID }), nil
}

func (s *Store) ListInvitationsByEvent(_ context.Context, eventID int64) ([]invitation.Invitation, error) {
	return s.filterInvitations(func(rec invitation.Invitation) bool {
		return rec.EventID != nil && *rec.EventID == eventID
	}), nil
}

func (s *Store) ListInvitationsByStatus(_ context.Context, status string) ([]invitation.Invitation, error) {
	return s.filterInvitations(func(rec invitation.Invitation) bool { return rec.Status == status }), nil
}

func (s *Store) DeleteInvitation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invitations[id]; !ok {
		return notFound("invitation", id)
	}
	delete(s.invitations, id)
	return nil
}

func (s *Store) filterInvitations(keep func(invitation.Invitation) bool) []invitation.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]invitation.Invitation, 0, len(s.invitations))
	for _, rec := range s.invitations {
		if keep(rec) {
			result = append(result, cloneInvitation(rec))
		}
	}
	slices.SortFunc(result, func(a, b invitation.Invitation) int { return compareIDs(a.ID, b.ID) })
	return result
}

// helpers ---------------------------------------------------------------------

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneIdea(rec idea.Idea) idea.Idea {
	rec.Tags = cloneStrings(rec.Tags)
	return rec
}

func clonePlan(rec plan.WeeklyPlan) plan.WeeklyPlan {
	rec.IdeaIDs = cloneInt64s(rec.IdeaIDs)
	return rec
}

func cloneInvitation(rec invitation.Invitation) invitation.Invitation {
	rec.Message = cloneString(rec.Message)
	rec.EventID = cloneInt64(rec.EventID)
	return rec
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneInt64s(in []int64) []int64 {
	out := make([]int64, len(in))
	copy(out, in)
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
