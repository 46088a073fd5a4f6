package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"deskbridge/internal/batch"
	"deskbridge/internal/reconcile"
)

func (a *API) handleQueueList(w http.ResponseWriter, r *http.Request) {
	items, err := a.queue.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []batch.Item{}
	}
	respondData(w, http.StatusOK, items)
}

func (a *API) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var record reconcile.AssetRecord
	if err := decodeJSON(r, &record); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	item, err := a.queue.Add(r.Context(), record)
	var verr *batch.ValidationError
	var dup *batch.DuplicateTagError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, err)
	case errors.As(err, &dup):
		respondError(w, http.StatusConflict, err)
	case err != nil:
		respondError(w, http.StatusInternalServerError, err)
	default:
		respondData(w, http.StatusCreated, item)
	}
}

func (a *API) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid queue item id"))
		return
	}

	removed, err := a.queue.Remove(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, errors.New("queue item not found"))
		return
	}
	respondData(w, http.StatusOK, map[string]any{"removed": id})
}

func (a *API) handleQueueSubmit(w http.ResponseWriter, r *http.Request) {
	items, err := a.queue.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	byTag := make(map[string]reconcile.AssetRecord, len(items))
	for _, item := range items {
		byTag[item.Tag] = item.AssetRecord
	}

	summary, err := a.queue.SubmitAll(r.Context(), a.rec, func(p batch.Progress) {
		a.log.Info().Int("done", p.Done).Int("total", p.Total).Int("percent", p.Percent).Msg("batch progress")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.recordOutcomes(r.Context(), summary.Results, byTag)
	respondData(w, http.StatusOK, summary)
}

func (a *API) handleQueueDefaults(w http.ResponseWriter, r *http.Request) {
	defaults, err := a.queue.Defaults(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondData(w, http.StatusOK, defaults)
}

func (a *API) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if a.audit == nil || !a.audit.Enabled() {
		respondError(w, http.StatusNotFound, errors.New("audit trail not configured"))
		return
	}

	entries, err := a.audit.Recent(r.Context(), 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondData(w, http.StatusOK, entries)
}
