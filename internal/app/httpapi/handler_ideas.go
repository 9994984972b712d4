package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/freetime-planner/freetime/internal/app/domain/idea"
)

func (h *handler) listIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.svc.Ideas.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *handler) createIdea(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload idea.Input
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.svc.Ideas.Create(r.Context(), userID, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) randomIdea(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	picked, err := h.svc.Ideas.Random(r.Context(), q.Get("category"), q["tag"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, picked)
}

func (h *handler) ideasByTags(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.svc.Ideas.ListByTags(r.Context(), r.URL.Query()["tag"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *handler) ideasByCategory(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.svc.Ideas.ListByCategory(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *handler) ideasByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ideas, err := h.svc.Ideas.ListByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *handler) getIdea(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Ideas.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) updateIdea(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload idea.Input
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.Ideas.Update(r.Context(), id, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteIdea(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	removed, err := h.svc.Ideas.Delete(r.Context(), id)
	h.respondDeleted(w, r, removed, err)
}
