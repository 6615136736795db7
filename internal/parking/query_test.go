package parking

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestQueryService_Status(t *testing.T) {
	ctx := context.Background()
	e, _, store, _ := setupEngine(t, "A1")
	q := NewQueryService(store)
	code, _ := e.Register(ctx, "A1", "ABC-123")

	tests := []struct {
		name    string
		plate   string
		otp     string
		want    ReservationStatus
		wantErr error
	}{
		{"registered", "ABC-123", code, StatusNotCheckedIn, nil},
		{"trimmed input", " ABC-123 ", " " + code + " ", StatusNotCheckedIn, nil},
		{"missing plate", "", code, "", ErrValidation},
		{"unknown pair", "ABC-123", "999999", "", ErrReservationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Status(ctx, tt.plate, tt.otp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Status() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Status() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryService_OTPNeverSerialised(t *testing.T) {
	ctx := context.Background()
	e, _, store, _ := setupEngine(t, "A1")
	q := NewQueryService(store)
	code, _ := e.Register(ctx, "A1", "ABC-123")

	slots, _ := q.ListSlots(ctx)
	logs, _ := q.ListLogs(ctx)

	for _, v := range []any{slots, logs} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if strings.Contains(string(data), code) {
			t.Errorf("one-time code leaked in %s", data)
		}
	}
}

func TestSlotJSON(t *testing.T) {
	ctx := context.Background()
	_, _, store, _ := setupEngine(t, "A1")

	slot, _ := store.GetSlot(ctx, "A1")
	data, err := json.Marshal(slot)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(data)
	for _, want := range []string{`"slot_number":"A1"`, `"status":"available"`, `"license_plate":null`} {
		if !strings.Contains(got, want) {
			t.Errorf("slot JSON %s missing %s", got, want)
		}
	}
}

func TestReservationLogJSON(t *testing.T) {
	ctx := context.Background()
	e, _, store, _ := setupEngine(t, "A1")
	code, _ := e.Register(ctx, "A1", "ABC-123")

	l, _ := store.LatestLog(ctx, "ABC-123", code)
	data, _ := json.Marshal(l)
	got := string(data)
	for _, want := range []string{`"time_in":null`, `"time_out":null`, `"slot_number":"A1"`} {
		if !strings.Contains(got, want) {
			t.Errorf("log JSON %s missing %s", got, want)
		}
	}
}

func TestRandomOTP(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := RandomOTP()
		if err != nil {
			t.Fatalf("RandomOTP() error = %v", err)
		}
		n, err := strconv.Atoi(code)
		if err != nil || len(code) != 6 || n < 100000 || n > 999999 {
			t.Fatalf("RandomOTP() = %q, want six digits in [100000, 999999]", code)
		}
	}
}
