// Package handlers exposes the bridge over HTTP: directory dropdown feeds,
// asset search, the bulk endpoint, and the scan queue.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"deskbridge/internal/audit"
	"deskbridge/internal/batch"
	"deskbridge/internal/directory"
	"deskbridge/internal/reconcile"
	"deskbridge/internal/topdesk"
	"deskbridge/pkg/bus"
)

// API wires the directory cache, reconciler, and queue for the HTTP handlers.
type API struct {
	dir      *directory.Cache
	searcher Searcher
	rec      batch.Reconciler
	queue    *batch.Queue
	bus      *bus.Bus
	audit    *audit.Recorder
	log      zerolog.Logger
}

// Searcher is the raw asset search the /api/assets/search endpoint needs,
// separate from the reconciler's allowlist-guarded lookup.
type Searcher interface {
	SearchAssetsByName(ctx context.Context, name string, templateIDs []string) ([]topdesk.AssetMatch, error)
}

// New initialises the API layer. bus and recorder may be nil.
func New(dir *directory.Cache, searcher Searcher, rec batch.Reconciler, queue *batch.Queue, eventBus *bus.Bus, recorder *audit.Recorder, logger zerolog.Logger) (*API, error) {
	if dir == nil {
		return nil, errors.New("directory cache is required")
	}
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if rec == nil {
		return nil, errors.New("reconciler is required")
	}
	if queue == nil {
		return nil, errors.New("queue is required")
	}

	return &API{
		dir:      dir,
		searcher: searcher,
		rec:      rec,
		queue:    queue,
		bus:      eventBus,
		audit:    recorder,
		log:      logger,
	}, nil
}

// recordOutcomes pushes successful results onto the event bus and writes the
// audit trail for every result. Both sinks are best-effort.
func (a *API) recordOutcomes(ctx context.Context, results []batch.ItemResult, records map[string]reconcile.AssetRecord) {
	for _, result := range results {
		if a.audit != nil {
			a.audit.Record(ctx, audit.Entry{
				Tag:       result.Tag,
				AssetID:   result.AssetID,
				Operation: string(result.Operation),
				ModelID:   result.ModelID,
				Error:     result.Error,
			}, records[result.Tag])
		}
		if a.bus == nil || !result.Success {
			continue
		}
		ev := bus.AssetEvent{
			Tag:       result.Tag,
			AssetID:   result.AssetID,
			Operation: string(result.Operation),
			ModelID:   result.ModelID,
			At:        time.Now().UTC(),
		}
		if err := a.bus.PublishAssetEvent(ctx, ev); err != nil {
			a.log.Warn().Err(err).Str("tag", result.Tag).Msg("publish asset event")
		}
	}
}
