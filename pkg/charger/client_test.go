// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package charger

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/rs/zerolog"
)

// Captured charger responses
const (
	valuesCharging  = "55aa11001a70001000e60e1004d282060300071e160000200a74"
	valuesUnplugged = "55aa11001f700a0b0c00e600e700e82b5c00647d01000000000000001000ee"
	modelResponse   = "55aa110010044243502d41324e2d4c60"
	settingsMsg     = "55aa110015710000000000000000007f081e10004b"
	dlbResponse     = "55aa11000e7b0000006400c8012cfffff0"
	deniedResponse  = "55aa12000b001c"
	handshakeMsg    = "55aa0300100000bc614ec0a8010a0d0502"
)

const testPIN = "00001"

// ============================================================
// Fake Charger
// ============================================================

// fakeCharger answers requests on a loopback UDP socket
type fakeCharger struct {
	conn    net.PacketConn
	handler func(req string) (string, bool)

	mu       sync.Mutex
	requests []string
}

func startFakeCharger(t *testing.T, handler func(req string) (string, bool)) *fakeCharger {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeCharger{conn: conn, handler: handler}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 1024)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			req := string(buf[:n])
			f.mu.Lock()
			f.requests = append(f.requests, req)
			f.mu.Unlock()
			if resp, ok := f.handler(req); ok {
				_, _ = conn.WriteTo([]byte(resp), addr)
			}
		}
	}()
	return f
}

func (f *fakeCharger) port() int {
	return f.conn.LocalAddr().(*net.UDPAddr).Port
}

func (f *fakeCharger) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

// waitRequests polls until n requests arrived or a second has passed
func (f *fakeCharger) waitRequests(n int) []string {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if reqs := f.received(); len(reqs) >= n {
			return reqs
		}
		time.Sleep(5 * time.Millisecond)
	}
	return f.received()
}

func (f *fakeCharger) client(opts Options) *Client {
	if opts.PIN == "" {
		opts.PIN = testPIN
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	opts.Logger = zerolog.Nop()
	return New(NewUDPTransport("127.0.0.1", f.port()), opts)
}

func isValuesRequest(req string) bool {
	return req == beny.MustEncode(beny.KindRequestData, beny.NewRequestData(testPIN, beny.RequestValues).Params)
}

func isDLBRequest(req string) bool {
	return req == beny.MustEncode(beny.KindRequestDLB, beny.NewRequestDLB(testPIN).Params)
}

// answers builds a handler replying to known requests
func answers(values string, extra map[string]string) func(string) (string, bool) {
	return func(req string) (string, bool) {
		if isValuesRequest(req) {
			return values, true
		}
		if isDLBRequest(req) {
			return dlbResponse, true
		}
		resp, ok := extra[req]
		return resp, ok
	}
}

// ============================================================
// Status Tests
// ============================================================

func TestFetchStatus_SinglePhase(t *testing.T) {
	f := startFakeCharger(t, answers(valuesCharging, nil))
	c := f.client(Options{})
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	status, err := c.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.State != "charging" {
		t.Errorf("expected state charging, got %q", status.State)
	}
	if status.Power != 360.0 {
		t.Errorf("expected power 360.0, got %v", status.Power)
	}
	if status.Temperature != 30 {
		t.Errorf("expected temperature 30, got %d", status.Temperature)
	}
	if len(status.Currents) != 1 || status.Currents[0] != 16 {
		t.Errorf("expected currents [16], got %v", status.Currents)
	}
	if status.MaxCurrent != 32 {
		t.Errorf("expected max current 32, got %d", status.MaxCurrent)
	}
	if status.DLB != nil {
		t.Error("DLB values should only be fetched when enabled")
	}

	wantStart := time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	if status.TimerStart == nil || !status.TimerStart.Equal(wantStart) {
		t.Errorf("expected timer start %v, got %v", wantStart, status.TimerStart)
	}
	if status.TimerEnd == nil || !status.TimerEnd.Equal(wantEnd) {
		t.Errorf("expected timer end %v, got %v", wantEnd, status.TimerEnd)
	}
}

func TestFetchStatus_ThreePhaseWithDLB(t *testing.T) {
	f := startFakeCharger(t, answers(valuesUnplugged, nil))
	c := f.client(Options{DLB: true})

	status, err := c.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.Kind != beny.KindSendValues3P {
		t.Errorf("expected 3P values, got %s", status.Kind)
	}
	if len(status.Currents) != 3 || status.Currents[2] != 12 {
		t.Errorf("expected three currents, got %v", status.Currents)
	}
	if status.State != "unplugged" {
		t.Errorf("expected unplugged, got %q", status.State)
	}
	if status.TimerStart != nil || status.TimerEnd != nil {
		t.Errorf("unset timer should have no instants, got %v %v", status.TimerStart, status.TimerEnd)
	}
	if status.DLB == nil {
		t.Fatal("expected DLB values")
	}
	if status.DLB.Grid != -0.1 || status.DLB.Solar != 10.0 {
		t.Errorf("unexpected DLB values %+v", status.DLB)
	}
}

func TestFetchStatus_AccessDenied(t *testing.T) {
	f := startFakeCharger(t, answers(deniedResponse, nil))
	c := f.client(Options{})

	_, err := c.FetchStatus(context.Background())
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
	if snap := c.Statistics().Snapshot(); snap.AccessDenied != 1 {
		t.Errorf("expected access denial to be counted, got %d", snap.AccessDenied)
	}
}

func TestFetchStatus_ChecksumMismatch(t *testing.T) {
	corrupted := valuesCharging[:len(valuesCharging)-2] + "00"
	f := startFakeCharger(t, answers(corrupted, nil))
	c := f.client(Options{})

	_, err := c.FetchStatus(context.Background())
	if !errors.Is(err, beny.ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestFetchModel(t *testing.T) {
	modelReq := beny.MustEncode(beny.KindRequestData, beny.NewRequestData(testPIN, beny.RequestModel).Params)
	f := startFakeCharger(t, answers(valuesCharging, map[string]string{modelReq: modelResponse}))
	c := f.client(Options{})

	model, err := c.FetchModel(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "BCP-A2N-L" {
		t.Errorf("expected BCP-A2N-L, got %q", model)
	}
}

func TestFetchSchedule(t *testing.T) {
	settingsReq := beny.MustEncode(beny.KindRequestSettings, beny.NewRequestSettings(testPIN).Params)
	f := startFakeCharger(t, answers(valuesCharging, map[string]string{settingsReq: settingsMsg}))
	c := f.client(Options{})

	schedule, err := c.FetchSchedule(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !schedule.Enabled {
		t.Error("schedule should be enabled")
	}
	if len(schedule.Days()) != 7 {
		t.Errorf("expected 7 days, got %v", schedule.Days())
	}
	if schedule.Start != (beny.Clock{Hour: 8, Minute: 30}) || schedule.End != (beny.Clock{Hour: 16}) {
		t.Errorf("unexpected window %v-%v", schedule.Start, schedule.End)
	}
}

// ============================================================
// Retry Tests
// ============================================================

func TestRoundTrip_RetriesOnTimeout(t *testing.T) {
	f := startFakeCharger(t, func(string) (string, bool) { return "", false })
	c := f.client(Options{Timeout: 50 * time.Millisecond, Retries: 2})

	_, err := c.FetchValues(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if reqs := f.waitRequests(2); len(reqs) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(reqs))
	}
}

func TestRoundTrip_SecondAttemptSucceeds(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	f := startFakeCharger(t, func(req string) (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", false
		}
		return valuesCharging, true
	})
	c := f.client(Options{Timeout: 100 * time.Millisecond, Retries: 2})

	if _, err := c.FetchValues(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRoundTrip_ContextCancelled(t *testing.T) {
	f := startFakeCharger(t, func(string) (string, bool) { return "", false })
	c := f.client(Options{Timeout: time.Second, Retries: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.FetchValues(ctx); err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation should stop retries, took %v", elapsed)
	}
}

// ============================================================
// Command Tests
// ============================================================

func TestSetMaxCurrent_Range(t *testing.T) {
	f := startFakeCharger(t, answers(valuesCharging, nil))
	c := f.client(Options{})

	for _, amps := range []int{0, 5, 33, 100} {
		if err := c.SetMaxCurrent(context.Background(), amps); !errors.Is(err, ErrInvalidCurrent) {
			t.Errorf("%d A: expected ErrInvalidCurrent, got %v", amps, err)
		}
	}
	if reqs := f.received(); len(reqs) != 0 {
		t.Errorf("invalid currents should not be sent, got %v", reqs)
	}
}

func TestSetMaxCurrent_Sends(t *testing.T) {
	expected := "55aa10000d000000016d00109a"
	f := startFakeCharger(t, answers(valuesCharging, map[string]string{expected: valuesCharging}))
	c := f.client(Options{})

	if err := c.SetMaxCurrent(context.Background(), 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqs := f.waitRequests(1)
	if len(reqs) != 1 || reqs[0] != expected {
		t.Errorf("expected %s, got %v", expected, reqs)
	}
}

func TestSetConsumption_Range(t *testing.T) {
	f := startFakeCharger(t, answers(valuesCharging, nil))
	c := f.client(Options{})

	if err := c.SetMaxSessionConsumption(context.Background(), 256); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := c.SetMaxMonthlyConsumption(context.Background(), 0x10000); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestStartCharging_RefusedWhenUnplugged(t *testing.T) {
	f := startFakeCharger(t, answers(valuesUnplugged, nil))
	c := f.client(Options{})

	if err := c.StartCharging(context.Background()); !errors.Is(err, ErrUnplugged) {
		t.Fatalf("expected ErrUnplugged, got %v", err)
	}
	reqs := f.waitRequests(1)
	if len(reqs) != 1 || !isValuesRequest(reqs[0]) {
		t.Errorf("only the state check should be sent, got %v", reqs)
	}
}

func TestStartCharging_Sends(t *testing.T) {
	startReq := beny.MustEncode(beny.KindSendChargerCommand, beny.NewChargerCommand(testPIN, beny.CommandStart).Params)
	f := startFakeCharger(t, answers(valuesCharging, map[string]string{startReq: valuesCharging}))
	c := f.client(Options{})

	if err := c.StartCharging(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqs := f.waitRequests(2)
	if len(reqs) != 2 || reqs[1] != startReq {
		t.Errorf("expected state check then start command, got %v", reqs)
	}
}

func TestCommand_AccessDenied(t *testing.T) {
	scheduleReq := beny.MustEncode(beny.KindSetSchedule, beny.NewSetSchedule(testPIN, nil, beny.Clock{}, beny.Clock{}).Params)
	f := startFakeCharger(t, answers(valuesCharging, map[string]string{scheduleReq: deniedResponse}))
	c := f.client(Options{})

	if err := c.SetSchedule(context.Background(), nil, beny.Clock{}, beny.Clock{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

// ============================================================
// Timer Derivation Tests
// ============================================================

func TestDeriveTimer(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(day, hour, minute int) *time.Time {
		ts := time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
		return &ts
	}

	tests := []struct {
		name      string
		state     string
		start     beny.Clock
		end       beny.Clock
		wantStart *time.Time
		wantEnd   *time.Time
	}{
		{
			name:  "unset",
			state: "UNSET",
		},
		{
			name:      "start later today",
			state:     "START_TIME",
			start:     beny.Clock{Hour: 22},
			wantStart: at(10, 22, 0),
		},
		{
			name:      "start already passed",
			state:     "START_TIME",
			start:     beny.Clock{Hour: 6, Minute: 15},
			wantStart: at(11, 6, 15),
		},
		{
			name:      "overnight window",
			state:     "START_END_TIME",
			start:     beny.Clock{Hour: 22},
			end:       beny.Clock{Hour: 6},
			wantStart: at(10, 22, 0),
			wantEnd:   at(11, 6, 0),
		},
		{
			name:      "window later today",
			state:     "START_END_TIME",
			start:     beny.Clock{Hour: 13},
			end:       beny.Clock{Hour: 15},
			wantStart: at(10, 13, 0),
			wantEnd:   at(10, 15, 0),
		},
		{
			name:      "equal start and end",
			state:     "START_END_TIME",
			start:     beny.Clock{Hour: 14},
			end:       beny.Clock{Hour: 14},
			wantStart: at(10, 14, 0),
			wantEnd:   at(11, 14, 0),
		},
		{
			name:    "end only",
			state:   "END_TIME",
			end:     beny.Clock{Hour: 7},
			wantEnd: at(11, 7, 0),
		},
	}

	equal := func(a, b *time.Time) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Equal(*b)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := DeriveTimer(tt.state, tt.start, tt.end, now)
			if !equal(start, tt.wantStart) {
				t.Errorf("start: expected %v, got %v", tt.wantStart, start)
			}
			if !equal(end, tt.wantEnd) {
				t.Errorf("end: expected %v, got %v", tt.wantEnd, end)
			}
		})
	}
}
