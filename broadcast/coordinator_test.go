package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gusemmett/multiCamController/types"
)

// recordingSender captures every envelope it is asked to send.
type recordingSender struct {
	mu        sync.Mutex
	envelopes map[string]types.Envelope
	fail      map[string]error
	delay     time.Duration
	reply     func(device types.Device) types.CommandResult
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		envelopes: make(map[string]types.Envelope),
		fail:      make(map[string]error),
	}
}

func (s *recordingSender) Send(ctx context.Context, device types.Device, env types.Envelope) types.CommandResult {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.envelopes[device.Name] = env
	s.mu.Unlock()

	if err := s.fail[device.Name]; err != nil {
		return types.CommandResult{Device: device.Name, Err: err}
	}
	if s.reply != nil {
		return s.reply(device)
	}
	return types.CommandResult{Device: device.Name, Reply: &types.Reply{Status: "ok"}}
}

func fleet(names ...string) []types.Device {
	devices := make([]types.Device, len(names))
	for i, name := range names {
		devices[i] = types.Device{Name: name, Addr: "10.0.0.1", Port: 8080 + i}
	}
	return devices
}

func TestBroadcast_OneCommandPerDeviceSharedInstant(t *testing.T) {
	sender := newRecordingSender()
	c := New(sender, Config{}, nil)

	devices := fleet("alpha", "bravo", "charlie", "delta")
	results := c.Broadcast(context.Background(), types.CommandStartRecording, devices)

	if len(results) != len(devices) {
		t.Fatalf("results len = %d, want %d", len(results), len(devices))
	}
	if len(sender.envelopes) != len(devices) {
		t.Fatalf("sends = %d, want exactly one per device", len(sender.envelopes))
	}

	var ts float64
	first := true
	for name, env := range sender.envelopes {
		if env.Command != types.CommandStartRecording {
			t.Errorf("%s got command %q", name, env.Command)
		}
		if first {
			ts = env.Timestamp
			first = false
		} else if env.Timestamp != ts {
			t.Errorf("%s timestamp %v differs from shared %v", name, env.Timestamp, ts)
		}
	}
}

func TestBroadcast_SyncDelayIndependentOfDeviceCount(t *testing.T) {
	for _, n := range []int{1, 3, 9} {
		sender := newRecordingSender()
		c := New(sender, Config{SyncDelay: 3 * time.Second}, nil)
		dispatch := time.Unix(1700000000, 0)
		c.now = func() time.Time { return dispatch }

		names := make([]string, n)
		for i := range names {
			names[i] = string(rune('a' + i))
		}
		c.Broadcast(context.Background(), types.CommandStartRecording, fleet(names...))

		want := types.Epoch(dispatch.Add(3 * time.Second))
		for name, env := range sender.envelopes {
			if env.Timestamp != want {
				t.Errorf("n=%d device %s: timestamp = %v, want %v", n, name, env.Timestamp, want)
			}
		}
	}
}

func TestBroadcast_NonStartCommandsUseDispatchInstant(t *testing.T) {
	sender := newRecordingSender()
	c := New(sender, Config{SyncDelay: 3 * time.Second}, nil)
	dispatch := time.Unix(1700000000, 0)
	c.now = func() time.Time { return dispatch }

	c.Broadcast(context.Background(), types.CommandDeviceStatus, fleet("alpha"))

	env := sender.envelopes["alpha"]
	if env.Timestamp != types.Epoch(dispatch) {
		t.Errorf("timestamp = %v, want dispatch instant %v", env.Timestamp, types.Epoch(dispatch))
	}
}

func TestBroadcast_FailureIsolation(t *testing.T) {
	sender := newRecordingSender()
	sender.fail["bravo"] = errors.New("connection refused")
	c := New(sender, Config{}, nil)

	results := c.Broadcast(context.Background(), types.CommandStartRecording, fleet("alpha", "bravo", "charlie"))

	if len(results) != 3 {
		t.Fatalf("results len = %d, want 3 (failures must not be omitted)", len(results))
	}
	if results["alpha"].Err != nil || results["charlie"].Err != nil {
		t.Error("healthy devices affected by one failure")
	}
	if results["bravo"].Err == nil {
		t.Error("failed device reported as success")
	}
	failed := results.Failed()
	if len(failed) != 1 || failed[0] != "bravo" {
		t.Errorf("Failed() = %v, want [bravo]", failed)
	}
}

func TestBroadcast_DispatchIsConcurrent(t *testing.T) {
	sender := newRecordingSender()
	sender.delay = 100 * time.Millisecond
	c := New(sender, Config{}, nil)

	start := time.Now()
	c.Broadcast(context.Background(), types.CommandDeviceStatus, fleet("a", "b", "c", "d", "e"))
	elapsed := time.Since(start)

	// Sequential dispatch would take 500ms+; concurrent stays near one delay.
	if elapsed > 300*time.Millisecond {
		t.Errorf("broadcast of 5 delayed devices took %v, dispatch appears sequential", elapsed)
	}
}

func TestBroadcast_FileIDExtraction(t *testing.T) {
	sender := newRecordingSender()
	sender.reply = func(device types.Device) types.CommandResult {
		if device.Name == "bravo" {
			return types.CommandResult{Device: device.Name, Reply: &types.Reply{Status: "ok"}}
		}
		return types.CommandResult{
			Device: device.Name,
			Reply:  &types.Reply{Status: "ok", FileID: "rec-" + device.Name},
			FileID: "rec-" + device.Name,
		}
	}
	c := New(sender, Config{}, nil)

	results := c.Broadcast(context.Background(), types.CommandStopRecording, fleet("alpha", "bravo"))
	ids := results.FileIDs()

	if len(ids) != 1 {
		t.Fatalf("FileIDs len = %d, want 1", len(ids))
	}
	if ids["alpha"] != "rec-alpha" {
		t.Errorf("ids[alpha] = %q, want rec-alpha", ids["alpha"])
	}
}

func TestDownload_CarriesFileID(t *testing.T) {
	sender := newRecordingSender()
	c := New(sender, Config{}, nil)

	c.Download(context.Background(), types.Device{Name: "alpha", Addr: "10.0.0.1", Port: 8080}, "rec-7")

	env := sender.envelopes["alpha"]
	if env.Command != types.CommandGetFile {
		t.Errorf("command = %q, want GET_FILE", env.Command)
	}
	if env.FileID != "rec-7" {
		t.Errorf("fileId = %q, want rec-7", env.FileID)
	}
}
