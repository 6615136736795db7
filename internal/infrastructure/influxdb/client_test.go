package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/parkinglot-core/internal/infrastructure/config"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line-protocol bodies sent to /write.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
	down   bool
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		if down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/write"):
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

// waitFor polls until the recorded writes contain want.
func (f *fakeInflux) waitFor(t *testing.T, want string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.body(); strings.Contains(got, want) {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("write containing %q not received; got %q", want, f.body())
	return ""
}

func setup(t *testing.T) (*influxdb.Client, *fakeInflux) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := influxdb.Connect(testConfig(srv.URL), "lot-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, fake
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "parking",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnect(t *testing.T) {
	client, _ := setup(t)
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false
	if _, err := influxdb.Connect(cfg, "lot-test"); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	fake := &fakeInflux{down: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	if _, err := influxdb.Connect(testConfig(srv.URL), "lot-test"); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BatchSize = -1
	cfg.FlushInterval = 0
	client, err := influxdb.Connect(cfg, "lot-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()
}

func TestHealthCheck(t *testing.T) {
	client, fake := setup(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	fake.mu.Lock()
	fake.down = true
	fake.mu.Unlock()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() expected error when server unhealthy")
	}
}

func TestWriteReservationEvent(t *testing.T) {
	client, fake := setup(t)

	client.WriteReservationEvent("reservation.checked_out", "A1", "failed", 7, time.Now())
	client.Flush()

	got := fake.waitFor(t, "reservation_events")
	for _, want := range []string{"lot_id=lot-test", "slot_number=A1", "gate=failed", "log_id=7i"} {
		if !strings.Contains(got, want) {
			t.Errorf("line protocol %q missing %q", got, want)
		}
	}
}

func TestWriteReservationEvent_NoGateTag(t *testing.T) {
	client, fake := setup(t)

	client.WriteReservationEvent("reservation.registered", "B2", "", 1, time.Now())
	client.Flush()

	got := fake.waitFor(t, "slot_number=B2")
	if strings.Contains(got, "gate=") {
		t.Errorf("unexpected gate tag in %q", got)
	}
}

func TestWriteOccupancy(t *testing.T) {
	client, fake := setup(t)

	client.WriteOccupancy(1, 4, time.Now())
	client.Flush()

	got := fake.waitFor(t, "occupancy")
	for _, want := range []string{"occupied=1i", "total=4i", "ratio=0.25"} {
		if !strings.Contains(got, want) {
			t.Errorf("line protocol %q missing %q", got, want)
		}
	}
}

func TestClose(t *testing.T) {
	client, _ := setup(t)
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	// Writes after close are dropped, not panics.
	client.WriteOccupancy(0, 1, time.Now())
	client.Flush()
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil error = %v", err)
	}
}
