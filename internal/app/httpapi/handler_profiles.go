package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/freetime-planner/freetime/internal/app/domain/profile"
)

func (h *handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.Profiles.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *handler) createProfile(w http.ResponseWriter, r *http.Request) {
	var payload profile.Input
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.svc.Profiles.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) profileByUsername(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Profiles.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Profiles.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload profile.Input
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.Profiles.Update(r.Context(), id, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	removed, err := h.svc.Profiles.Delete(r.Context(), id)
	h.respondDeleted(w, r, removed, err)
}

func (h *handler) profileIdeaIDs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := h.svc.Profiles.IdeaIDs(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *handler) followers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := h.svc.Profiles.Followers(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *handler) following(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := h.svc.Profiles.Following(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *handler) follow(w http.ResponseWriter, r *http.Request) {
	h.changeEdge(w, r, h.svc.Profiles.Follow)
}

func (h *handler) unfollow(w http.ResponseWriter, r *http.Request) {
	h.changeEdge(w, r, h.svc.Profiles.Unfollow)
}

type edgeChange func(ctx context.Context, followerID, followeeID int64) (bool, error)

func (h *handler) changeEdge(w http.ResponseWriter, r *http.Request, change edgeChange) {
	followerID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	followeeID, err := pathID(r, "followeeID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	changed, err := change(r.Context(), followerID, followeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}
