package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/freetime-planner/freetime/internal/app/domain"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/metrics"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/pkg/logger"
)

// Service manages user profiles and the follow graph.
type Service struct {
	store storage.ProfileStore
	log   *logger.Logger
}

// New constructs a profile service.
func New(store storage.ProfileStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profiles")
	}
	return &Service{store: store, log: log}
}

// Get fetches a profile by id.
func (s *Service) Get(ctx context.Context, id int64) (profile.Profile, error) {
	return s.store.GetProfile(ctx, id)
}

// GetByUsername fetches a profile by its unique username.
func (s *Service) GetByUsername(ctx context.Context, username string) (profile.Profile, error) {
	return s.store.GetProfileByUsername(ctx, strings.TrimSpace(username))
}

// List returns every profile.
func (s *Service) List(ctx context.Context) ([]profile.Profile, error) {
	return s.store.ListProfiles(ctx)
}

// IdeaIDs returns the ids of ideas authored by the profile's user.
func (s *Service) IdeaIDs(ctx context.Context, id int64) ([]int64, error) {
	return s.store.ListProfileIdeaIDs(ctx, id)
}

// Create registers a profile. The username must not be taken.
func (s *Service) Create(ctx context.Context, in profile.Input) (profile.Profile, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return profile.Profile{}, err
	}
	created, err := s.store.CreateProfile(ctx, in)
	if err != nil {
		return profile.Profile{}, err
	}
	metrics.RecordMutation("profile", "create")
	s.log.WithField("profile_id", created.ID).
		WithField("username", created.Username).
		Info("profile created")
	return created, nil
}

// Update replaces username and bio of an existing profile.
func (s *Service) Update(ctx context.Context, id int64, in profile.Input) (profile.Profile, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return profile.Profile{}, err
	}
	updated, err := s.store.UpdateProfile(ctx, id, in)
	if err != nil {
		return profile.Profile{}, err
	}
	metrics.RecordMutation("profile", "update")
	s.log.WithField("profile_id", id).Info("profile updated")
	return updated, nil
}

// Delete removes a profile together with its follow edges and reports
// whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.store.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	metrics.RecordMutation("profile", "delete")
	s.log.WithField("profile_id", id).Info("profile deleted")
	return true, nil
}

// Follow makes follower follow followee. It reports false when the edge
// already existed.
func (s *Service) Follow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if followerID == followeeID {
		return false, domain.Invalid("followee_id", "must differ from follower")
	}
	changed, err := s.store.Follow(ctx, followerID, followeeID)
	if err != nil {
		return false, err
	}
	if changed {
		metrics.RecordMutation("follow", "create")
		s.log.WithField("follower_id", followerID).
			WithField("followee_id", followeeID).
			Info("profile followed")
	}
	return changed, nil
}

// Unfollow removes the edge and reports whether one existed.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	changed, err := s.store.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return false, err
	}
	if changed {
		metrics.RecordMutation("follow", "delete")
		s.log.WithField("follower_id", followerID).
			WithField("followee_id", followeeID).
			Info("profile unfollowed")
	}
	return changed, nil
}

// Followers lists the ids of profiles following id.
func (s *Service) Followers(ctx context.Context, id int64) ([]int64, error) {
	return s.store.ListFollowers(ctx, id)
}

// Following lists the ids of profiles id follows.
func (s *Service) Following(ctx context.Context, id int64) ([]int64, error) {
	return s.store.ListFollowing(ctx, id)
}

func normalizeInput(in profile.Input) (profile.Input, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return profile.Input{}, domain.Invalid("username", "is required")
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		in.Bio = &bio
	}
	return in, nil
}
