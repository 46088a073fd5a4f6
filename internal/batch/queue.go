package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"deskbridge/internal/kvstore"
	"deskbridge/internal/reconcile"
)

const (
	queueKey    = "bulk_scan_assets"
	defaultsKey = "bulk_scan_last"
)

// ValidationError lists the required form fields missing from a record.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// DuplicateTagError rejects a second queue entry for the same tag.
type DuplicateTagError struct {
	Tag string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("tag %q is already in the list", e.Tag)
}

// Item is one queued asset record with its locally generated id.
type Item struct {
	ID      uuid.UUID `json:"id"`
	AddedAt time.Time `json:"added_at"`
	reconcile.AssetRecord
}

// Defaults remembers the last submitted field values (tag and serial number
// excluded) for pre-filling the next form entry.
type Defaults struct {
	Campus      string `json:"campus"`
	Building    string `json:"building"`
	Room        string `json:"room"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	DeviceType  string `json:"device_type"`
	Notes       string `json:"notes"`
	Surplus     bool   `json:"surplus"`
	StockRoomID string `json:"stock_room_id,omitempty"`
}

// Queue accumulates scanned assets in a durable store ahead of submission.
// The persisted queue survives reloads; only in-flight progress is lost.
type Queue struct {
	store kvstore.Store
	log   zerolog.Logger
	now   func() time.Time

	mu sync.Mutex
}

// NewQueue builds a Queue over the given store.
func NewQueue(store kvstore.Store, logger zerolog.Logger) (*Queue, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Queue{store: store, log: logger, now: time.Now}, nil
}

// List returns the queued items in insertion order.
func (q *Queue) List(ctx context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadItems(ctx)
}

// Add validates rec, rejects duplicate tags, and persists the grown queue
// along with the last-used defaults.
func (q *Queue) Add(ctx context.Context, rec reconcile.AssetRecord) (Item, error) {
	if err := Validate(rec); err != nil {
		return Item{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.loadItems(ctx)
	if err != nil {
		return Item{}, err
	}
	for _, existing := range items {
		if existing.Tag == rec.Tag {
			return Item{}, &DuplicateTagError{Tag: rec.Tag}
		}
	}

	item := Item{ID: uuid.New(), AddedAt: q.now().UTC(), AssetRecord: rec}
	items = append(items, item)
	if err := q.saveItems(ctx, items); err != nil {
		return Item{}, err
	}

	if err := q.saveDefaults(ctx, rec); err != nil {
		// Defaults are a convenience; a failed save must not undo the add.
		q.log.Warn().Err(err).Msg("save form defaults")
	}

	return item, nil
}

// Remove deletes the item with the given id and reports whether it existed.
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.loadItems(ctx)
	if err != nil {
		return false, err
	}

	remaining := items[:0]
	removed := false
	for _, item := range items {
		if item.ID == id {
			removed = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !removed {
		return false, nil
	}
	return true, q.saveItems(ctx, remaining)
}

// Defaults returns the last-used field values, or zero values when none were
// recorded yet.
func (q *Queue) Defaults(ctx context.Context) (Defaults, error) {
	raw, err := q.store.Get(ctx, defaultsKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Defaults{}, nil
	}
	if err != nil {
		return Defaults{}, err
	}

	var defaults Defaults
	if err := json.Unmarshal(raw, &defaults); err != nil {
		return Defaults{}, err
	}
	return defaults, nil
}

// Validate checks the required form fields shared by the queue and the bulk
// endpoint.
func Validate(rec reconcile.AssetRecord) error {
	required := []struct {
		name  string
		value string
	}{
		{"device_type", rec.DeviceType},
		{"campus", rec.Campus},
		{"building", rec.Building},
		{"room", rec.Room},
		{"make", rec.Make},
		{"model", rec.Model},
		{"tag", rec.Tag},
		{"serial_number", rec.SerialNumber},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func (q *Queue) loadItems(ctx context.Context) ([]Item, error) {
	raw, err := q.store.Get(ctx, queueKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queue) saveItems(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, queueKey, raw)
}

func (q *Queue) saveDefaults(ctx context.Context, rec reconcile.AssetRecord) error {
	raw, err := json.Marshal(Defaults{
		Campus:      rec.Campus,
		Building:    rec.Building,
		Room:        rec.Room,
		Make:        rec.Make,
		Model:       rec.Model,
		DeviceType:  rec.DeviceType,
		Notes:       rec.Notes,
		Surplus:     rec.Surplus,
		StockRoomID: rec.StockRoomID,
	})
	if err != nil {
		return err
	}
	return q.store.Set(ctx, defaultsKey, raw)
}
