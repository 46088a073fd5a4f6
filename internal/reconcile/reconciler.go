package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"deskbridge/internal/directory"
	"deskbridge/internal/topdesk"
)

const timestampLayout = "2006-01-02 15:04:05"

// Operation names the terminal state of a successful reconciliation.
type Operation string

const (
	OperationCreated    Operation = "created"
	OperationReassigned Operation = "reassigned"
)

// AssetRecord is one scanned asset as captured by the form.
type AssetRecord struct {
	Tag          string `json:"tag"`
	Campus       string `json:"campus"`
	Building     string `json:"building"`
	Room         string `json:"room"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	DeviceType   string `json:"device_type"`
	SerialNumber string `json:"serial_number"`
	Notes        string `json:"notes"`
	Surplus      bool   `json:"surplus"`
	StockRoomID  string `json:"stock_room_id,omitempty"`
}

// Outcome reports the result of one reconciliation.
type Outcome struct {
	AssetID            string    `json:"asset_id"`
	Operation          Operation `json:"operation"`
	ModelID            string    `json:"model_id"`
	ClearedAssignments int       `json:"cleared_assignments"`
}

// API is the subset of the TopDesk client the reconciler drives.
type API interface {
	SearchAssetsByName(ctx context.Context, name string, templateIDs []string) ([]topdesk.AssetMatch, error)
	CreateAsset(ctx context.Context, name string, fields topdesk.AssetFields) (string, error)
	UpdateAsset(ctx context.Context, assetID string, fields topdesk.AssetFields) error
	CreateModel(ctx context.Context, name string) (string, error)
	Assignments(ctx context.Context, assetID string) (topdesk.Assignments, error)
	DeleteAssignment(ctx context.Context, assetID, linkID string) error
	AssignLocation(ctx context.Context, assetID, branchID, locationID string) error
	StockLinkID(ctx context.Context, assetID string) (string, error)
	LinkStockRoom(ctx context.Context, assetID, stockRoomID string) error
	UnlinkStockRoom(ctx context.Context, linkID string) error
}

// Directory supplies cached reference data to the reconciler.
type Directory interface {
	Models(ctx context.Context) ([]topdesk.DropdownEntry, error)
	Templates(ctx context.Context) ([]topdesk.Template, error)
	Invalidate(cat directory.Category)
}

// Reconciler decides create-vs-update for one asset record and re-establishes
// its location and stockroom links. It performs no rollback: a failure after
// the create/update step leaves the asset unlinked, which callers treat as a
// retryable partial success.
type Reconciler struct {
	api     API
	dir     Directory
	allowed map[string]struct{}
	now     func() time.Time
	log     zerolog.Logger
}

// New builds a Reconciler limited to the given allow-listed template names.
func New(api API, dir Directory, allowedTemplates []string, logger zerolog.Logger) (*Reconciler, error) {
	if api == nil {
		return nil, errors.New("api is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	if len(allowedTemplates) == 0 {
		return nil, errors.New("at least one allowed template is required")
	}

	allowed := make(map[string]struct{}, len(allowedTemplates))
	for _, name := range allowedTemplates {
		allowed[name] = struct{}{}
	}

	return &Reconciler{
		api:     api,
		dir:     dir,
		allowed: allowed,
		now:     time.Now,
		log:     logger,
	}, nil
}

// TemplateAllowed reports whether the named template may be touched.
func (r *Reconciler) TemplateAllowed(name string) bool {
	_, ok := r.allowed[name]
	return ok
}

// Lookup searches for the record's tag across all known templates. At most
// one match is tolerated; the search itself never mutates remote state.
func (r *Reconciler) Lookup(ctx context.Context, tag string) (*topdesk.AssetMatch, error) {
	templates, err := r.dir.Templates(ctx)
	if err != nil {
		return nil, err
	}
	templateIDs := make([]string, 0, len(templates))
	for _, t := range templates {
		templateIDs = append(templateIDs, t.ID)
	}

	matches, err := r.api.SearchAssetsByName(ctx, tag, templateIDs)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousMatchError{Tag: tag, Count: len(matches)}
	}
}

// Reconcile drives one record to a terminal state: created, reassigned, or
// an error with no mutation when the template guard trips.
func (r *Reconciler) Reconcile(ctx context.Context, rec AssetRecord) (Outcome, error) {
	match, err := r.Lookup(ctx, rec.Tag)
	if err != nil {
		return Outcome{}, err
	}

	if match != nil && !r.TemplateAllowed(match.TemplateName) {
		err := &TemplateMismatchError{Tag: rec.Tag, Template: match.TemplateName}
		r.log.Info().Str("tag", rec.Tag).Str("template", match.TemplateName).Msg("template guard refused asset")
		return Outcome{}, err
	}

	// Resolve the model before branching so both paths share the id.
	modelID, err := r.resolveModel(ctx, rec.Model)
	if err != nil {
		return Outcome{}, err
	}

	timestamp := r.now().Format(timestampLayout)
	fields := topdesk.AssetFields{
		DeviceType:   rec.DeviceType,
		Room:         rec.Room,
		Make:         rec.Make,
		ModelID:      modelID,
		SerialNumber: rec.SerialNumber,
		Surplus:      rec.Surplus,
	}

	var (
		assetID string
		op      Operation
		cleared int
	)

	if match == nil {
		op = OperationCreated
		fields.Notes = rec.Notes + "Added by deskbridge on " + timestamp

		assetID, err = r.api.CreateAsset(ctx, rec.Tag, fields)
		if err != nil {
			return Outcome{}, err
		}
		if assetID == "" {
			return Outcome{}, fmt.Errorf("asset %q: %w", rec.Tag, ErrMissingAssetID)
		}
	} else {
		op = OperationReassigned
		assetID = match.ID

		cleared, err = r.clearLocationAssignments(ctx, assetID)
		if err != nil {
			return Outcome{}, err
		}

		// Existing notes are preserved, the annotation is appended.
		fields.Notes = match.Notes + "\nUpdated by deskbridge on " + timestamp
		if err := r.api.UpdateAsset(ctx, assetID, fields); err != nil {
			return Outcome{}, err
		}

		r.log.Debug().
			Str("asset_id", assetID).
			Str("tag", rec.Tag).
			Int("cleared_assignments", cleared).
			Msg("existing asset found, reassigning location")
	}

	if err := r.api.AssignLocation(ctx, assetID, rec.Campus, rec.Building); err != nil {
		return Outcome{}, err
	}
	if err := r.assignStockRoom(ctx, assetID, rec.StockRoomID); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		AssetID:            assetID,
		Operation:          op,
		ModelID:            modelID,
		ClearedAssignments: cleared,
	}, nil
}

// resolveModel maps the submitted model (id or name) onto a dropdown entry,
// creating the entry remotely when it does not exist yet.
func (r *Reconciler) resolveModel(ctx context.Context, model string) (string, error) {
	models, err := r.dir.Models(ctx)
	if err != nil {
		return "", err
	}

	for _, m := range models {
		if m.ID == model || strings.EqualFold(m.Name, model) {
			return m.ID, nil
		}
	}

	id, err := r.api.CreateModel(ctx, model)
	if err != nil {
		return "", err
	}
	r.dir.Invalidate(directory.CategoryModels)
	return id, nil
}

func (r *Reconciler) clearLocationAssignments(ctx context.Context, assetID string) (int, error) {
	assignments, err := r.api.Assignments(ctx, assetID)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, link := range assignments.Locations {
		if link.LinkID == "" {
			continue
		}
		if err := r.api.DeleteAssignment(ctx, assetID, link.LinkID); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

// assignStockRoom always unlinks any existing stock link first; an empty
// target leaves the asset unlinked, which is a valid outcome.
func (r *Reconciler) assignStockRoom(ctx context.Context, assetID, stockRoomID string) error {
	linkID, err := r.api.StockLinkID(ctx, assetID)
	if err != nil {
		return err
	}
	if linkID != "" {
		if err := r.api.UnlinkStockRoom(ctx, linkID); err != nil {
			return err
		}
	}

	if stockRoomID == "" {
		return nil
	}
	return r.api.LinkStockRoom(ctx, assetID, stockRoomID)
}
