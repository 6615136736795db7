package parking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLiteStore_ListSlotsOrdered(t *testing.T) {
	store, _ := setupStore(t, "B2", "A1", "B1")

	slots, err := store.ListSlots(context.Background())
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	want := []string{"A1", "B1", "B2"}
	if len(slots) != len(want) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(want))
	}
	for i, s := range slots {
		if s.SlotNumber != want[i] {
			t.Errorf("slots[%d] = %s, want %s", i, s.SlotNumber, want[i])
		}
		if s.Status != SlotAvailable {
			t.Errorf("slot %s status = %s", s.SlotNumber, s.Status)
		}
		if !s.UpdatedAt.Equal(testEpoch) {
			t.Errorf("slot %s updated_at = %v", s.SlotNumber, s.UpdatedAt)
		}
	}
}

func TestSQLiteStore_EmptyLists(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	slots, err := store.ListSlots(ctx)
	if err != nil || slots == nil || len(slots) != 0 {
		t.Errorf("ListSlots() = %v, %v; want empty non-nil", slots, err)
	}
	logs, err := store.ListLogs(ctx)
	if err != nil || logs == nil || len(logs) != 0 {
		t.Errorf("ListLogs() = %v, %v; want empty non-nil", logs, err)
	}
}

func TestSQLiteStore_GetSlotNotFound(t *testing.T) {
	store, _ := setupStore(t, "A1")
	if _, err := store.GetSlot(context.Background(), "nope"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("GetSlot() error = %v, want ErrSlotNotFound", err)
	}
}

func TestSQLiteStore_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t, "A1")
	at := testEpoch.Add(time.Hour)

	entry, err := store.Reserve(ctx, "A1", "ABC-123", "123456", at)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if entry.ID == 0 || !entry.CreatedAt.Equal(at) {
		t.Errorf("Reserve() = %+v", entry)
	}

	got, err := store.FindSlotByCredentials(ctx, "ABC-123", "123456")
	if err != nil {
		t.Fatalf("FindSlotByCredentials() error = %v", err)
	}
	if got.SlotNumber != "A1" {
		t.Errorf("FindSlotByCredentials() slot = %s", got.SlotNumber)
	}

	if err := store.Release(ctx, "A1", "ABC-123", "000000", entry.ID, at); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Release() with wrong code error = %v, want ErrUnauthorized", err)
	}

	out := at.Add(2 * time.Hour)
	if err := store.Release(ctx, "A1", "ABC-123", "123456", entry.ID, out); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := store.FindSlotByCredentials(ctx, "ABC-123", "123456"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("FindSlotByCredentials() after release error = %v", err)
	}

	l, err := store.LatestLog(ctx, "ABC-123", "123456")
	if err != nil {
		t.Fatalf("LatestLog() error = %v", err)
	}
	if !l.TimeOut.Valid || !l.TimeOut.Time.Equal(out) {
		t.Errorf("time_out = %v, want %v", l.TimeOut, out)
	}
	assertConsistent(t, store)
}

func TestSQLiteStore_MarkCheckedInUnauthorized(t *testing.T) {
	store, _ := setupStore(t, "A1")
	_, err := store.MarkCheckedIn(context.Background(), "A1", "ABC-123", "123456", testEpoch)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("MarkCheckedIn() error = %v, want ErrUnauthorized", err)
	}
}

func TestSQLiteStore_LatestLogPicksNewest(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t, "A1")

	first, _ := store.Reserve(ctx, "A1", "ABC-123", "123456", testEpoch)
	if err := store.Release(ctx, "A1", "ABC-123", "123456", first.ID, testEpoch.Add(time.Minute)); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	second, err := store.Reserve(ctx, "A1", "ABC-123", "123456", testEpoch.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second Reserve() error = %v", err)
	}

	l, err := store.LatestLog(ctx, "ABC-123", "123456")
	if err != nil {
		t.Fatalf("LatestLog() error = %v", err)
	}
	if l.ID != second.ID {
		t.Errorf("LatestLog() id = %d, want %d", l.ID, second.ID)
	}
	if l.Status() != StatusNotCheckedIn {
		t.Errorf("Status() = %s", l.Status())
	}
}

func TestSQLiteStore_CheckConstraint(t *testing.T) {
	_, db := setupStore(t, "A1")
	_, err := db.ExecContext(context.Background(),
		`UPDATE slots SET status = 'occupied' WHERE slot_number = 'A1'`)
	if err == nil {
		t.Error("occupied slot without plate and code should be rejected")
	}
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	early := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	late := early.Add(time.Nanosecond)
	if !(formatTime(early) < formatTime(late)) {
		t.Errorf("%s should sort before %s", formatTime(early), formatTime(late))
	}

	local := early.In(time.FixedZone("X", 3600))
	parsed, err := parseTime(formatTime(local))
	if err != nil {
		t.Fatalf("parseTime() error = %v", err)
	}
	if !parsed.Equal(early) {
		t.Errorf("round trip = %v, want %v", parsed, early)
	}
}

func TestSQLiteStore_ListLogsOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t, "A1", "A2", "A3", "A4")

	plates := map[string]string{"A1": "P1", "A2": "P2", "A3": "P3", "A4": "P4"}
	for _, slot := range []string{"A1", "A2", "A3", "A4"} {
		if _, err := store.Reserve(ctx, slot, plates[slot], "123456", testEpoch); err != nil {
			t.Fatalf("Reserve(%s) error = %v", slot, err)
		}
	}

	t1 := testEpoch.Add(time.Hour)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)
	// Check-in order differs from insertion order so id order cannot pass.
	for _, c := range []struct {
		slot string
		at   time.Time
	}{{"A2", t1}, {"A3", t2}, {"A1", t3}} {
		if _, err := store.MarkCheckedIn(ctx, c.slot, plates[c.slot], "123456", c.at); err != nil {
			t.Fatalf("MarkCheckedIn(%s) error = %v", c.slot, err)
		}
	}

	logs, err := store.ListLogs(ctx)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	want := []struct {
		slot   string
		timeIn time.Time
	}{{"A1", t3}, {"A3", t2}, {"A2", t1}, {"A4", time.Time{}}}
	if len(logs) != len(want) {
		t.Fatalf("len(logs) = %d, want %d", len(logs), len(want))
	}
	for i, w := range want {
		got := logs[i]
		if got.SlotNumber != w.slot {
			t.Errorf("logs[%d] slot = %s, want %s", i, got.SlotNumber, w.slot)
		}
		if w.timeIn.IsZero() {
			if got.TimeIn.Valid {
				t.Errorf("logs[%d] time_in = %v, want null", i, got.TimeIn.Time)
			}
			continue
		}
		if !got.TimeIn.Valid || !got.TimeIn.Time.Equal(w.timeIn) {
			t.Errorf("logs[%d] time_in = %v, want %v", i, got.TimeIn, w.timeIn)
		}
	}
}
