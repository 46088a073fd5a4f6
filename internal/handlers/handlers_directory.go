package handlers

import (
	"context"
	"errors"
	"net/http"

	"deskbridge/internal/directory"
	"deskbridge/internal/topdesk"
)

func (a *API) handleCampuses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	campuses, err := a.dir.Campuses(ctx)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	respondData(w, http.StatusOK, campuses)
}

func (a *API) handleBuildings(w http.ResponseWriter, r *http.Request) {
	campusID := r.URL.Query().Get("campus_id")
	if campusID == "" {
		respondError(w, http.StatusBadRequest, errors.New("campus_id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	buildings, err := a.dir.BuildingsForCampus(ctx, campusID)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	respondData(w, http.StatusOK, buildings)
}

func (a *API) handleLocations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	groups, err := a.dir.LocationsByCampus(ctx)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	respondData(w, http.StatusOK, groups)
}

func (a *API) handleMakes(w http.ResponseWriter, r *http.Request) {
	a.respondDropdown(w, r, a.dir.Makes)
}

func (a *API) handleModels(w http.ResponseWriter, r *http.Request) {
	a.respondDropdown(w, r, a.dir.Models)
}

func (a *API) handleDeviceTypes(w http.ResponseWriter, r *http.Request) {
	a.respondDropdown(w, r, a.dir.DeviceTypes)
}

func (a *API) respondDropdown(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]topdesk.DropdownEntry, error)) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	entries, err := fetch(ctx)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	respondData(w, http.StatusOK, entries)
}

// handleTemplates serves the allow-listed templates by default; ?all=1 skips
// the filter for administrative tooling.
func (a *API) handleTemplates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	templates, err := a.dir.Templates(ctx)
	if err != nil {
		respondUpstream(w, err)
		return
	}

	if r.URL.Query().Get("all") != "1" {
		filtered := make([]topdesk.Template, 0, len(templates))
		for _, tmpl := range templates {
			if a.rec.TemplateAllowed(tmpl.Text) {
				filtered = append(filtered, tmpl)
			}
		}
		templates = filtered
	}
	respondData(w, http.StatusOK, templates)
}

func (a *API) handleStockRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rooms, err := a.dir.StockRooms(ctx)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	respondData(w, http.StatusOK, rooms)
}

func (a *API) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	a.dir.InvalidateAll()
	a.log.Info().Msg("directory cache cleared")
	respondData(w, http.StatusOK, map[string]any{"categories": directory.Categories})
}

// respondUpstream maps TopDesk failures to 502 and everything else to 500.
func respondUpstream(w http.ResponseWriter, err error) {
	if _, ok := topdesk.AsRemoteError(err); ok {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondError(w, http.StatusInternalServerError, err)
}
