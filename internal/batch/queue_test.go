package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"deskbridge/internal/kvstore"
	"deskbridge/internal/reconcile"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := NewQueue(kvstore.NewMemory(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	return q
}

func queuedRecord(tag string) reconcile.AssetRecord {
	return reconcile.AssetRecord{
		Tag:          tag,
		Campus:       "branch-1",
		Building:     "loc-1",
		Room:         "101",
		Make:         "make-1",
		Model:        "Latitude",
		DeviceType:   "dt-1",
		SerialNumber: "SN-" + tag,
		Notes:        "imaging lab",
	}
}

func TestQueueAddAndList(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	item, err := q.Add(ctx, queuedRecord("A100"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if item.ID == uuid.Nil || item.AddedAt.IsZero() {
		t.Errorf("item missing id/timestamp: %+v", item)
	}

	if _, err := q.Add(ctx, queuedRecord("A200")); err != nil {
		t.Fatalf("Add() second error = %v", err)
	}

	items, err := q.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[0].Tag != "A100" || items[1].Tag != "A200" {
		t.Errorf("List() = %+v, want insertion order A100, A200", items)
	}
}

func TestQueueRejectsDuplicateTag(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Add(ctx, queuedRecord("A100")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	_, err := q.Add(ctx, queuedRecord("A100"))
	var dup *DuplicateTagError
	if !errors.As(err, &dup) {
		t.Fatalf("error = %v, want DuplicateTagError", err)
	}
	if dup.Tag != "A100" {
		t.Errorf("Tag = %q, want A100", dup.Tag)
	}

	items, err := q.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("queue length = %d after duplicate add, want 1", len(items))
	}
}

func TestQueueValidatesRequiredFields(t *testing.T) {
	q := newTestQueue(t)

	rec := queuedRecord("A100")
	rec.Room = "  "
	rec.SerialNumber = ""

	_, err := q.Add(context.Background(), rec)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(verr.Missing) != 2 {
		t.Errorf("Missing = %v, want room and serial_number", verr.Missing)
	}
}

func TestQueueRemove(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	item, err := q.Add(ctx, queuedRecord("A100"))
	if err != nil {
		t.Fatal(err)
	}
	keep, err := q.Add(ctx, queuedRecord("A200"))
	if err != nil {
		t.Fatal(err)
	}

	removed, err := q.Remove(ctx, item.ID)
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v, want true, nil", removed, err)
	}

	// Removing again is a no-op.
	removed, err = q.Remove(ctx, item.ID)
	if err != nil || removed {
		t.Fatalf("second Remove() = %v, %v, want false, nil", removed, err)
	}

	items, err := q.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != keep.ID {
		t.Errorf("List() = %+v, want only %s", items, keep.ID)
	}
}

func TestQueueDefaultsExcludeTagAndSerial(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	defaults, err := q.Defaults(ctx)
	if err != nil {
		t.Fatalf("Defaults() before any add: %v", err)
	}
	if defaults != (Defaults{}) {
		t.Errorf("Defaults() = %+v, want zero value", defaults)
	}

	rec := queuedRecord("A100")
	rec.Surplus = true
	rec.StockRoomID = "stock-9"
	if _, err := q.Add(ctx, rec); err != nil {
		t.Fatal(err)
	}

	defaults, err = q.Defaults(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Defaults{
		Campus:      "branch-1",
		Building:    "loc-1",
		Room:        "101",
		Make:        "make-1",
		Model:       "Latitude",
		DeviceType:  "dt-1",
		Notes:       "imaging lab",
		Surplus:     true,
		StockRoomID: "stock-9",
	}
	if defaults != want {
		t.Errorf("Defaults() = %+v, want %+v", defaults, want)
	}
}
