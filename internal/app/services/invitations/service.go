package invitations

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/freetime-planner/freetime/internal/app/domain"
	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
	"github.com/freetime-planner/freetime/internal/app/metrics"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/pkg/logger"
)

// Service manages invitations.
type Service struct {
	store storage.InvitationStore
	log   *logger.Logger
}

// New constructs an invitation service.
func New(store storage.InvitationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("invitations")
	}
	return &Service{store: store, log: log}
}

// List returns every invitation.
func (s *Service) List(ctx context.Context) ([]invitation.Invitation, error) {
	return s.store.ListInvitations(ctx)
}

// ListByInviter returns invitations sent by inviterID.
func (s *Service) ListByInviter(ctx context.Context, inviterID int64) ([]invitation.Invitation, error) {
	return s.store.ListInvitationsByInviter(ctx, inviterID)
}

// ListByEvent returns invitations referencing eventID.
func (s *Service) ListByEvent(ctx context.Context, eventID int64) ([]invitation.Invitation, error) {
	return s.store.ListInvitationsByEvent(ctx, eventID)
}

// ListByStatus returns invitations in the given status.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]invitation.Invitation, error) {
	return s.store.ListInvitationsByStatus(ctx, normalizeStatus(status))
}

// Get fetches an invitation by id.
func (s *Service) Get(ctx context.Context, id int64) (invitation.Invitation, error) {
	return s.store.GetInvitation(ctx, id)
}

// Send records a new pending invitation.
func (s *Service) Send(ctx context.Context, in invitation.Input) (invitation.Invitation, error) {
	if in.InviterID <= 0 {
		return invitation.Invitation{}, domain.Invalid("inviter_id", "must be positive")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.InviteeEmail))
	if err != nil {
		return invitation.Invitation{}, domain.Invalid("invitee_email", "must be a valid email address")
	}
	in.InviteeEmail = addr.Address

	created, err := s.store.CreateInvitation(ctx, in, invitation.StatusPending)
	if err != nil {
		return invitation.Invitation{}, err
	}
	metrics.RecordMutation("invitation", "create")
	s.log.WithField("invitation_id", created.ID).
		WithField("inviter_id", created.InviterID).
		Info("invitation sent")
	return created, nil
}

// UpdateStatus sets a new free-form status on an invitation.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (invitation.Invitation, error) {
	status = normalizeStatus(status)
	if status == "" {
		return invitation.Invitation{}, domain.Invalid("status", "is required")
	}
	updated, err := s.store.UpdateInvitationStatus(ctx, id, status)
	if err != nil {
		return invitation.Invitation{}, err
	}
	metrics.RecordMutation("invitation", "update")
	s.log.WithField("invitation_id", id).
		WithField("status", status).
		Info("invitation status changed")
	return updated, nil
}

// Delete removes an invitation and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.store.DeleteInvitation(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	metrics.RecordMutation("invitation", "delete")
	s.log.WithField("invitation_id", id).Info("invitation deleted")
	return true, nil
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
