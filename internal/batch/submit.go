package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"deskbridge/internal/metrics"
	"deskbridge/internal/reconcile"
	"deskbridge/internal/topdesk"
)

// Reconciler is the submission backend for queued items.
type Reconciler interface {
	Lookup(ctx context.Context, tag string) (*topdesk.AssetMatch, error)
	TemplateAllowed(name string) bool
	Reconcile(ctx context.Context, rec reconcile.AssetRecord) (reconcile.Outcome, error)
}

// Progress reports batch position after each processed item.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// ProgressFunc receives a Progress update after every item, regardless of
// that item's outcome.
type ProgressFunc func(Progress)

// ItemResult records the outcome of one submitted item.
type ItemResult struct {
	Tag       string              `json:"tag"`
	Success   bool                `json:"success"`
	Skipped   bool                `json:"skipped,omitempty"`
	Operation reconcile.Operation `json:"operation,omitempty"`
	AssetID   string              `json:"asset_id,omitempty"`
	ModelID   string              `json:"model_id,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Summary aggregates a batch run.
type Summary struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Errors    []string     `json:"errors"`
	Results   []ItemResult `json:"results"`
}

// Run processes records strictly sequentially: one reconciliation in flight
// at a time, so the progress denominator stays meaningful. The progress
// callback fires after every record regardless of its outcome.
func Run(ctx context.Context, rec Reconciler, logger zerolog.Logger, records []reconcile.AssetRecord, progress ProgressFunc) Summary {
	summary := Summary{Errors: []string{}, Results: make([]ItemResult, 0, len(records))}

	for i, record := range records {
		result := submitRecord(ctx, rec, logger, record)
		summary.Results = append(summary.Results, result)

		switch {
		case result.Success:
			summary.Succeeded++
			metrics.SubmissionsTotal.WithLabelValues(string(result.Operation)).Inc()
		case result.Skipped:
			summary.Skipped++
			summary.Errors = append(summary.Errors, result.Error)
			metrics.SubmissionsTotal.WithLabelValues("skipped").Inc()
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, result.Error)
			metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		}

		if progress != nil {
			done := i + 1
			progress(Progress{
				Done:    done,
				Total:   len(records),
				Percent: done * 100 / len(records),
			})
		}
	}

	return summary
}

// SubmitAll runs every queued item through rec. Items that fail or are
// skipped stay queued for retry; succeeded tags are removed from the
// persisted queue afterwards.
func (q *Queue) SubmitAll(ctx context.Context, rec Reconciler, progress ProgressFunc) (Summary, error) {
	items, err := q.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	records := make([]reconcile.AssetRecord, len(items))
	for i, item := range items {
		records[i] = item.AssetRecord
	}

	summary := Run(ctx, rec, q.log, records, progress)

	succeeded := make(map[string]struct{})
	for _, result := range summary.Results {
		if result.Success {
			succeeded[result.Tag] = struct{}{}
		}
	}

	if len(succeeded) > 0 {
		q.mu.Lock()
		current, err := q.loadItems(ctx)
		if err == nil {
			remaining := current[:0]
			for _, item := range current {
				if _, ok := succeeded[item.Tag]; ok {
					continue
				}
				remaining = append(remaining, item)
			}
			err = q.saveItems(ctx, remaining)
		}
		q.mu.Unlock()
		if err != nil {
			q.log.Error().Err(err).Msg("prune submitted items from queue")
		}
	}

	return summary, nil
}

func submitRecord(ctx context.Context, rec Reconciler, logger zerolog.Logger, record reconcile.AssetRecord) ItemResult {
	result := ItemResult{Tag: record.Tag}

	// Non-mutating pre-check: an existing asset under a template outside the
	// allowlist is skipped without invoking the reconciler. Pre-check
	// transport errors never block submission.
	if match, err := rec.Lookup(ctx, record.Tag); err == nil && match != nil {
		if !rec.TemplateAllowed(match.TemplateName) {
			result.Skipped = true
			result.Error = fmt.Sprintf(
				"cannot update existing asset %s: it has template %s", record.Tag, match.TemplateName)
			return result
		}
	}

	outcome, err := rec.Reconcile(ctx, record)
	if err != nil {
		result.Error = fmt.Sprintf("failed %q: %v", record.Tag, err)
		logger.Error().Err(err).Str("tag", record.Tag).Msg("submit asset")
		return result
	}

	result.Success = true
	result.Operation = outcome.Operation
	result.AssetID = outcome.AssetID
	result.ModelID = outcome.ModelID
	return result
}
