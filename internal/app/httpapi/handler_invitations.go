package httpapi

import (
	"net/http"
	"strings"

	"github.com/freetime-planner/freetime/internal/app/domain/invitation"
)

// listInvitations queries by the most selective filter given and narrows the
// result by the remaining ones.
func (h *handler) listInvitations(w http.ResponseWriter, r *http.Request) {
	inviterID, byInviter, err := queryID(r, "inviter_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, byEvent, err := queryID(r, "event_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))

	ctx := r.Context()
	var list []invitation.Invitation
	switch {
	case byEvent:
		list, err = h.svc.Invitations.ListByEvent(ctx, eventID)
	case byInviter:
		list, err = h.svc.Invitations.ListByInviter(ctx, inviterID)
	case status != "":
		list, err = h.svc.Invitations.ListByStatus(ctx, status)
	default:
		list, err = h.svc.Invitations.List(ctx)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := make([]invitation.Invitation, 0, len(list))
	for _, rec := range list {
		if byInviter && rec.InviterID != inviterID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		result = append(result, rec)
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) sendInvitation(w http.ResponseWriter, r *http.Request) {
	var payload invitation.Input
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	sent, err := h.svc.Invitations.Send(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sent)
}

func (h *handler) getInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Invitations.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) updateInvitationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.Invitations.UpdateStatus(r.Context(), id, payload.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	removed, err := h.svc.Invitations.Delete(r.Context(), id)
	h.respondDeleted(w, r, removed, err)
}
