package app

import (
	"context"

	"github.com/freetime-planner/freetime/internal/app/services/ideas"
	"github.com/freetime-planner/freetime/internal/app/services/invitations"
	"github.com/freetime-planner/freetime/internal/app/services/plans"
	"github.com/freetime-planner/freetime/internal/app/services/profiles"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/internal/app/storage/memory"
	"github.com/freetime-planner/freetime/internal/app/system"
	"github.com/freetime-planner/freetime/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Ideas       storage.IdeaStore
	Profiles    storage.ProfileStore
	Plans       storage.PlanStore
	Invitations storage.InvitationStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ideas       *ideas.Service
	Profiles    *profiles.Service
	Plans       *plans.Service
	Invitations *invitations.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	// Profiles derive their idea ids from the idea store, so a single memory
	// store backs every nil slot.
	mem := memory.New()
	if stores.Ideas == nil {
		stores.Ideas = mem
	}
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if stores.Plans == nil {
		stores.Plans = mem
	}
	if stores.Invitations == nil {
		stores.Invitations = mem
	}

	return &Application{
		manager:     system.NewManager(),
		log:         log,
		Ideas:       ideas.New(stores.Ideas, log.Named("ideas")),
		Profiles:    profiles.New(stores.Profiles, log.Named("profiles")),
		Plans:       plans.New(stores.Plans, log.Named("plans")),
		Invitations: invitations.New(stores.Invitations, log.Named("invitations")),
	}
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	a.log.WithField("services", a.manager.Names()).Info("application started")
	return nil
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
