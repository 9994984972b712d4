package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/freetime-planner/freetime/internal/app"
	"github.com/freetime-planner/freetime/internal/app/domain/idea"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/domain/profile"
	"github.com/freetime-planner/freetime/internal/app/metrics"
	"github.com/freetime-planner/freetime/internal/logging"
	"github.com/freetime-planner/freetime/internal/middleware"
	"github.com/freetime-planner/freetime/pkg/logger"
)

// IdeaService is the idea behaviour the API depends on.
type IdeaService interface {
	List(ctx context.Context) ([]idea.Idea, error)
	Random(ctx context.Context, category string, tags []string) (idea.Idea, error)
	Get(ctx context.Context, id int64) (idea.Idea, error)
	ListByUser(ctx context.Context, userID int64) ([]idea.Idea, error)
	ListByCategory(ctx context.Context, category string) ([]idea.Idea, error)
	ListByTags(ctx context.Context, tags []string) ([]idea.Idea, error)
	Create(ctx context.Context, userID int64, in idea.Input) (idea.Idea, error)
	Update(ctx context.Context, id int64, in idea.Input) (idea.Idea, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ProfileService is the profile behaviour the API depends on.
type ProfileService interface {
	Get(ctx context.Context, id int64) (profile.Profile, error)
	GetByUsername(ctx context.Context, username string) (profile.Profile, error)
	List(ctx context.Context) ([]profile.Profile, error)
	IdeaIDs(ctx context.Context, id int64) ([]int64, error)
	Create(ctx context.Context, in profile.Input) (profile.Profile, error)
	Update(ctx context.Context, id int64, in profile.Input) (profile.Profile, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Follow(ctx context.Context, followerID, followeeID int64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	Followers(ctx context.Context, id int64) ([]int64, error)
	Following(ctx context.Context, id int64) ([]int64, error)
}

// PlanService is the weekly plan behaviour the API depends on.
type PlanService interface {
	GetByUser(ctx context.Context, userID int64) (plan.WeeklyPlan, error)
	ListByUser(ctx context.Context, userID int64) ([]plan.WeeklyPlan, error)
	Get(ctx context.Context, id int64) (plan.WeeklyPlan, error)
	Create(ctx context.Context, userID int64, in plan.Input) (plan.WeeklyPlan, error)
	Update(ctx context.Context, id int64, in plan.Input) (plan.WeeklyPlan, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// InvitationService is the invitation behaviour the API depends on.
type InvitationService interface {
	List(ctx context.Context) ([]invitation.Invitation, error)
	ListByInviter(ctx context.Context, inviterID int64) ([]invitation.Invitation, error)
	ListByEvent(ctx context.Context, eventID int64) ([]invitation.Invitation, error)
	ListByStatus(ctx context.Context, status string) ([]invitation.Invitation, error)
	Get(ctx context.Context, id int64) (invitation.Invitation, error)
	Send(ctx context.Context, in invitation.Input) (invitation.Invitation, error)
	UpdateStatus(ctx context.Context, id int64, status string) (invitation.Invitation, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Services groups the dependencies of the API.
type Services struct {
	Ideas       IdeaService
	Profiles    ProfileService
	Plans       PlanService
	Invitations InvitationService
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	svc Services
	log *logging.Logger
}

// NewHandler returns a router exposing the REST API of application.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	return NewRouter(Services{
		Ideas:       application.Ideas,
		Profiles:    application.Profiles,
		Plans:       application.Plans,
		Invitations: application.Invitations,
	}, log)
}

// NewRouter builds the API router over svc.
func NewRouter(svc Services, log *logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{svc: svc, log: logging.New(log)}

	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware())

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/ideas", h.listIdeas).Methods(http.MethodGet)
	r.HandleFunc("/ideas", h.createIdea).Methods(http.MethodPost)
	r.HandleFunc("/ideas/random", h.randomIdea).Methods(http.MethodGet)
	r.HandleFunc("/ideas/tags", h.ideasByTags).Methods(http.MethodGet)
	r.HandleFunc("/ideas/category/{category}", h.ideasByCategory).Methods(http.MethodGet)
	r.HandleFunc("/ideas/{id:[0-9]+}", h.getIdea).Methods(http.MethodGet)
	r.HandleFunc("/ideas/{id:[0-9]+}", h.updateIdea).Methods(http.MethodPut)
	r.HandleFunc("/ideas/{id:[0-9]+}", h.deleteIdea).Methods(http.MethodDelete)
	r.HandleFunc("/users/{userID:[0-9]+}/ideas", h.ideasByUser).Methods(http.MethodGet)

	r.HandleFunc("/profiles", h.listProfiles).Methods(http.MethodGet)
	r.HandleFunc("/profiles", h.createProfile).Methods(http.MethodPost)
	r.HandleFunc("/profiles/by-username/{username}", h.profileByUsername).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id:[0-9]+}", h.getProfile).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id:[0-9]+}", h.updateProfile).Methods(http.MethodPut)
	r.HandleFunc("/profiles/{id:[0-9]+}", h.deleteProfile).Methods(http.MethodDelete)
	r.HandleFunc("/profiles/{id:[0-9]+}/ideas", h.profileIdeaIDs).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id:[0-9]+}/followers", h.followers).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id:[0-9]+}/following", h.following).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id:[0-9]+}/following/{followeeID:[0-9]+}", h.follow).Methods(http.MethodPut)
	r.HandleFunc("/profiles/{id:[0-9]+}/following/{followeeID:[0-9]+}", h.unfollow).Methods(http.MethodDelete)

	r.HandleFunc("/users/{userID:[0-9]+}/plans", h.createPlan).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/plans", h.plansByUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/plan", h.planByUser).Methods(http.MethodGet)
	r.HandleFunc("/plans/{id:[0-9]+}", h.getPlan).Methods(http.MethodGet)
	r.HandleFunc("/plans/{id:[0-9]+}", h.updatePlan).Methods(http.MethodPut)
	r.HandleFunc("/plans/{id:[0-9]+}", h.deletePlan).Methods(http.MethodDelete)

	r.HandleFunc("/invitations", h.listInvitations).Methods(http.MethodGet)
	r.HandleFunc("/invitations", h.sendInvitation).Methods(http.MethodPost)
	r.HandleFunc("/invitations/{id:[0-9]+}", h.getInvitation).Methods(http.MethodGet)
	r.HandleFunc("/invitations/{id:[0-9]+}", h.deleteInvitation).Methods(http.MethodDelete)
	r.HandleFunc("/invitations/{id:[0-9]+}/status", h.updateInvitationStatus).Methods(http.MethodPatch)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNoRoute)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})
	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondDeleted answers a delete: 204 when a record was removed, 404 otherwise.
func (h *handler) respondDeleted(w http.ResponseWriter, r *http.Request, removed bool, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
