package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds each controller call when none is configured.
	DefaultTimeout = 3 * time.Second

	// maxResponseBytes caps how much of a device response is read.
	maxResponseBytes = 64 << 10
)

// HTTPController talks to the gate-and-sensor device over its JSON HTTP API:
//
//	POST {base}/led                          {"slot_number","status":"registered"}
//	GET  {base}/gate/occupancy            -> {"has_vehicle": bool}
//	POST {base}/gate/checkin                 {"slot_number"} -> {"success": bool}
//	GET  {base}/slots/{slot}/occupancy    -> {"occupied": bool}
//	POST {base}/gate/checkout                {"slot_number"} -> {"success": bool}
//
// Thread Safety: safe for concurrent use.
type HTTPController struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewHTTPController creates a controller client for the device at baseURL.
// A non-positive timeout selects DefaultTimeout.
func NewHTTPController(baseURL string, timeout time.Duration) (*HTTPController, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gate: invalid base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPController{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the device address.
func (c *HTTPController) BaseURL() string {
	return c.baseURL
}

type slotRequest struct {
	SlotNumber string `json:"slot_number"`
	Status     string `json:"status,omitempty"`
}

// Pointer fields distinguish "false" from "missing"; a missing field is
// a malformed response, never an implicit false.
type gateOccupancyResponse struct {
	HasVehicle *bool `json:"has_vehicle"`
}

type slotOccupancyResponse struct {
	Occupied *bool `json:"occupied"`
}

type ackResponse struct {
	Success *bool `json:"success"`
}

// NotifyRegistered implements Controller.
func (c *HTTPController) NotifyRegistered(ctx context.Context, slotNumber string) error {
	body := slotRequest{SlotNumber: slotNumber, Status: "registered"}
	if err := c.do(ctx, http.MethodPost, "/led", body, nil); err != nil {
		return &PeripheralError{Op: OpNotifyRegistered, Slot: slotNumber, Err: err}
	}
	return nil
}

// CheckGateOccupancy implements Controller.
func (c *HTTPController) CheckGateOccupancy(ctx context.Context) (bool, error) {
	var resp gateOccupancyResponse
	if err := c.do(ctx, http.MethodGet, "/gate/occupancy", nil, &resp); err != nil {
		return false, &PeripheralError{Op: OpCheckGateOccupancy, Err: err}
	}
	if resp.HasVehicle == nil {
		return false, &PeripheralError{Op: OpCheckGateOccupancy, Err: fmt.Errorf("%w: missing has_vehicle", ErrMalformedResponse)}
	}
	return *resp.HasVehicle, nil
}

// OpenForCheckin implements Controller.
func (c *HTTPController) OpenForCheckin(ctx context.Context, slotNumber string) (bool, error) {
	return c.ack(ctx, OpOpenForCheckin, "/gate/checkin", slotNumber)
}

// SlotOccupied implements Controller.
func (c *HTTPController) SlotOccupied(ctx context.Context, slotNumber string) (bool, error) {
	var resp slotOccupancyResponse
	path := "/slots/" + url.PathEscape(slotNumber) + "/occupancy"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, &PeripheralError{Op: OpSlotOccupied, Slot: slotNumber, Err: err}
	}
	if resp.Occupied == nil {
		return false, &PeripheralError{Op: OpSlotOccupied, Slot: slotNumber, Err: fmt.Errorf("%w: missing occupied", ErrMalformedResponse)}
	}
	return *resp.Occupied, nil
}

// OpenForCheckout implements Controller.
func (c *HTTPController) OpenForCheckout(ctx context.Context, slotNumber string) (bool, error) {
	return c.ack(ctx, OpOpenForCheckout, "/gate/checkout", slotNumber)
}

func (c *HTTPController) ack(ctx context.Context, op, path, slotNumber string) (bool, error) {
	var resp ackResponse
	if err := c.do(ctx, http.MethodPost, path, slotRequest{SlotNumber: slotNumber}, &resp); err != nil {
		return false, &PeripheralError{Op: op, Slot: slotNumber, Err: err}
	}
	if resp.Success == nil {
		return false, &PeripheralError{Op: op, Slot: slotNumber, Err: fmt.Errorf("%w: missing success", ErrMalformedResponse)}
	}
	return *resp.Success, nil
}

// do performs one bounded request. out may be nil when the body is ignored.
func (c *HTTPController) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, limited)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
