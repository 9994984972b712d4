package ideas

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/freetime-planner/freetime/internal/app/domain"
	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/metrics"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/pkg/logger"
)

// ErrNoMatch is returned by Random when no idea satisfies the filter.
var ErrNoMatch = fmt.Errorf("no idea matches the filter: %w", storage.ErrNotFound)

// Service manages ideas and random suggestions.
type Service struct {
	store storage.IdeaStore
	log   *logger.Logger
	pick  func(n int) int
}

// New constructs an idea service.
func New(store storage.IdeaStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ideas")
	}
	return &Service{store: store, log: log, pick: rand.IntN}
}

// List returns every idea.
func (s *Service) List(ctx context.Context) ([]idea.Idea, error) {
	return s.store.ListIdeas(ctx)
}

// Random returns one idea chosen uniformly among those in category (when
// non-empty) that carry every tag in tags.
func (s *Service) Random(ctx context.Context, category string, tags []string) (idea.Idea, error) {
	category = strings.TrimSpace(category)
	tags = normalizeTags(tags)

	var (
		candidates []idea.Idea
		err        error
	)
	if category != "" {
		candidates, err = s.store.ListIdeasByCategory(ctx, category)
	} else {
		candidates, err = s.store.ListIdeas(ctx)
	}
	if err != nil {
		return idea.Idea{}, err
	}

	matching := candidates[:0]
	for _, rec := range candidates {
		if rec.HasTags(tags) {
			matching = append(matching, rec)
		}
	}
	if len(matching) == 0 {
		metrics.RecordRandomPick(false)
		return idea.Idea{}, ErrNoMatch
	}
	metrics.RecordRandomPick(true)
	return matching[s.pick(len(matching))], nil
}

// Get fetches a single idea.
func (s *Service) Get(ctx context.Context, id int64) (idea.Idea, error) {
	return s.store.GetIdea(ctx, id)
}

// ListByUser returns ideas authored by userID.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]idea.Idea, error) {
	return s.store.ListIdeasByUser(ctx, userID)
}

// ListByCategory returns ideas whose category equals category exactly.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]idea.Idea, error) {
	return s.store.ListIdeasByCategory(ctx, strings.TrimSpace(category))
}

// ListByTags returns ideas carrying every given tag.
func (s *Service) ListByTags(ctx context.Context, tags []string) ([]idea.Idea, error) {
	return s.store.ListIdeasByTags(ctx, normalizeTags(tags))
}

// Create stores a new idea owned by userID.
func (s *Service) Create(ctx context.Context, userID int64, in idea.Input) (idea.Idea, error) {
	if userID <= 0 {
		return idea.Idea{}, domain.Invalid("user_id", "must be positive")
	}
	in, err := normalizeInput(in)
	if err != nil {
		return idea.Idea{}, err
	}
	created, err := s.store.CreateIdea(ctx, userID, in)
	if err != nil {
		return idea.Idea{}, err
	}
	metrics.RecordMutation("idea", "create")
	s.log.WithField("idea_id", created.ID).
		WithField("user_id", created.UserID).
		WithField("category", created.Category).
		Info("idea created")
	return created, nil
}

// Update replaces the editable fields of an existing idea.
func (s *Service) Update(ctx context.Context, id int64, in idea.Input) (idea.Idea, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return idea.Idea{}, err
	}
	updated, err := s.store.UpdateIdea(ctx, id, in)
	if err != nil {
		return idea.Idea{}, err
	}
	metrics.RecordMutation("idea", "update")
	s.log.WithField("idea_id", id).Info("idea updated")
	return updated, nil
}

// Delete removes an idea and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.store.DeleteIdea(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	metrics.RecordMutation("idea", "delete")
	s.log.WithField("idea_id", id).Info("idea deleted")
	return true, nil
}

func normalizeInput(in idea.Input) (idea.Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" {
		return idea.Input{}, domain.Invalid("title", "is required")
	}
	if in.Category == "" {
		return idea.Input{}, domain.Invalid("category", "is required")
	}
	in.Tags = normalizeTags(in.Tags)
	return in, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
