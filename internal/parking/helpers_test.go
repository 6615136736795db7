package parking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/parkinglot-core/internal/gate"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/database"
	_ "github.com/nerrad567/parkinglot-core/migrations"
)

// openTestDB returns a migrated in-memory database.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// setupStore returns a store seeded with the given slots.
func setupStore(t *testing.T, slots ...string) (*SQLiteStore, *database.DB) {
	t.Helper()
	db := openTestDB(t)
	store := NewSQLiteStore(db.DB)
	if _, err := store.EnsureSlots(context.Background(), slots, testEpoch); err != nil {
		t.Fatalf("EnsureSlots() error = %v", err)
	}
	return store, db
}

var testEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// testClock returns a clock that advances one minute per call.
func testClock() func() time.Time {
	var mu sync.Mutex
	t := testEpoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

// fixedOTP returns codes from a fixed list, then repeats the last one.
func fixedOTP(codes ...string) OTPGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

// fakeController is a scriptable gate.Controller.
type fakeController struct {
	mu sync.Mutex

	notifyErr error

	gateVehicle bool
	gateErr     error

	checkinOK  bool
	checkinErr error

	slotOccupied bool
	slotErr      error

	checkoutOK  bool
	checkoutErr error

	calls []string
}

func newFakeController() *fakeController {
	return &fakeController{gateVehicle: true, checkinOK: true, checkoutOK: true}
}

func (f *fakeController) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeController) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeController) NotifyRegistered(_ context.Context, _ string) error {
	f.record(gate.OpNotifyRegistered)
	return f.notifyErr
}

func (f *fakeController) CheckGateOccupancy(_ context.Context) (bool, error) {
	f.record(gate.OpCheckGateOccupancy)
	return f.gateVehicle, f.gateErr
}

func (f *fakeController) OpenForCheckin(_ context.Context, _ string) (bool, error) {
	f.record(gate.OpOpenForCheckin)
	return f.checkinOK, f.checkinErr
}

func (f *fakeController) SlotOccupied(_ context.Context, _ string) (bool, error) {
	f.record(gate.OpSlotOccupied)
	return f.slotOccupied, f.slotErr
}

func (f *fakeController) OpenForCheckout(_ context.Context, _ string) (bool, error) {
	f.record(gate.OpOpenForCheckout)
	return f.checkoutOK, f.checkoutErr
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// setupEngine wires an engine with deterministic clock and codes.
func setupEngine(t *testing.T, slots ...string) (*Engine, *fakeController, *SQLiteStore, *database.DB) {
	t.Helper()
	store, db := setupStore(t, slots...)
	ctrl := newFakeController()
	e := NewEngine(store, ctrl)
	e.now = testClock()
	e.otp = fixedOTP("123456", "234567", "345678", "456789")
	return e, ctrl, store, db
}

// assertConsistent checks the occupancy invariant over every slot.
func assertConsistent(t *testing.T, store *SQLiteStore) {
	t.Helper()
	slots, err := store.ListSlots(context.Background())
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	for _, s := range slots {
		if !s.Consistent() {
			t.Errorf("slot %s inconsistent: status=%s plate=%v otp=%v",
				s.SlotNumber, s.Status, s.LicensePlate.Valid, s.OTP.Valid)
		}
	}
}
