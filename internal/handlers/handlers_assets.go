package handlers

import (
	"errors"
	"net/http"

	"deskbridge/internal/batch"
	"deskbridge/internal/reconcile"
)

func (a *API) handleAssetSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	templates, err := a.dir.Templates(ctx)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	ids := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		ids = append(ids, tmpl.ID)
	}

	matches, err := a.searcher.SearchAssetsByName(ctx, name, ids)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	respondData(w, http.StatusOK, matches)
}

// handleBulkAssets reconciles a JSON array of records immediately, without
// staging them in the queue. Results are per-item; a request with invalid
// records is rejected before any reconciliation starts.
func (a *API) handleBulkAssets(w http.ResponseWriter, r *http.Request) {
	var records []reconcile.AssetRecord
	if err := decodeJSON(r, &records); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("at least one record is required"))
		return
	}
	for _, record := range records {
		if err := batch.Validate(record); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	summary := batch.Run(r.Context(), a.rec, a.log, records, nil)

	byTag := make(map[string]reconcile.AssetRecord, len(records))
	for _, record := range records {
		byTag[record.Tag] = record
	}
	a.recordOutcomes(r.Context(), summary.Results, byTag)

	status := http.StatusOK
	if summary.Succeeded == 0 && summary.Failed > 0 {
		status = http.StatusBadGateway
	}
	respondData(w, status, summary)
}
