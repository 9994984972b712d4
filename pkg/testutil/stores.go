// Package testutil provides store doubles for exercising failure paths.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/storage"
)

// ErrInjected is the default failure returned once a store is failing.
var ErrInjected = errors.New("injected storage failure")

// FailingIdeaStore delegates to an inner store until Fail is called, after
// which every method returns the injected error.
type FailingIdeaStore struct {
	inner storage.IdeaStore

	mu  sync.RWMutex
	err error
}

var _ storage.IdeaStore = (*FailingIdeaStore)(nil)

// NewFailingIdeaStore wraps inner.
func NewFailingIdeaStore(inner storage.IdeaStore) *FailingIdeaStore {
	return &FailingIdeaStore{inner: inner}
}

// Fail makes subsequent calls return err, or ErrInjected when err is nil.
func (f *FailingIdeaStore) Fail(err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Recover restores delegation to the inner store.
func (f *FailingIdeaStore) Recover() {
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
}

func (f *FailingIdeaStore) failure() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

func (f *FailingIdeaStore) CreateIdea(ctx context.Context, userID int64, in idea.Input) (idea.Idea, error) {
	if err := f.failure(); err != nil {
		return idea.Idea{}, err
	}
	return f.inner.CreateIdea(ctx, userID, in)
}

func (f *FailingIdeaStore) UpdateIdea(ctx context.Context, id int64, in idea.Input) (idea.Idea, error) {
	if err := f.failure(); err != nil {
		return idea.Idea{}, err
	}
	return f.inner.UpdateIdea(ctx, id, in)
}

func (f *FailingIdeaStore) GetIdea(ctx context.Context, id int64) (idea.Idea, error) {
	if err := f.failure(); err != nil {
		return idea.Idea{}, err
	}
	return f.inner.GetIdea(ctx, id)
}

func (f *FailingIdeaStore) ListIdeas(ctx context.Context) ([]idea.Idea, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return f.inner.ListIdeas(ctx)
}

func (f *FailingIdeaStore) ListIdeasByCategory(ctx context.Context, category string) ([]idea.Idea, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return f.inner.ListIdeasByCategory(ctx, category)
}

func (f *FailingIdeaStore) ListIdeasByTags(ctx context.Context, tags []string) ([]idea.Idea, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return f.inner.ListIdeasByTags(ctx, tags)
}

func (f *FailingIdeaStore) ListIdeasByUser(ctx context.Context, userID int64) ([]idea.Idea, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return f.inner.ListIdeasByUser(ctx, userID)
}

func (f *FailingIdeaStore) DeleteIdea(ctx context.Context, id int64) error {
	if err := f.failure(); err != nil {
		return err
	}
	return f.inner.DeleteIdea(ctx, id)
}
