// Package broadcast fans a command out to every registered device
// concurrently and joins all per-device outcomes into one result set.
//
// One goroutine per target device, joined with a full barrier before
// returning. A slow or unreachable device delays only the join, never the
// other devices' dispatch, and no goroutine outlives the call.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/types"
)

// DefaultSyncDelay is how far in the future the shared start instant is
// scheduled when none is supplied. Long enough for every dispatch to land
// before the instant arrives on typical LANs.
const DefaultSyncDelay = 3 * time.Second

// DefaultOriginator identifies this controller in request envelopes.
const DefaultOriginator = "controller"

// Sender dispatches one command to one device. Implemented by
// channel.Client; tests substitute mocks.
type Sender interface {
	Send(ctx context.Context, device types.Device, env types.Envelope) types.CommandResult
}

// Config configures the coordinator.
type Config struct {
	// SyncDelay offsets the shared start instant from dispatch time.
	SyncDelay time.Duration
	// Originator is the deviceId stamped into request envelopes.
	Originator string
}

// Coordinator broadcasts commands across the device fleet.
type Coordinator struct {
	sender Sender
	cfg    Config
	logger *log.Logger

	// now is replaceable for deterministic tests.
	now func() time.Time
}

// New creates a coordinator over the given sender.
func New(sender Sender, cfg Config, logger *log.Logger) *Coordinator {
	if cfg.SyncDelay == 0 {
		cfg.SyncDelay = DefaultSyncDelay
	}
	if cfg.Originator == "" {
		cfg.Originator = DefaultOriginator
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{sender: sender, cfg: cfg, logger: logger, now: time.Now}
}

// Broadcast dispatches kind to every device concurrently and blocks until
// all per-device sends complete. Devices that error are present in the
// result with a failure outcome, never omitted.
//
// For START_RECORDING the shared instant now+SyncDelay is computed once,
// before dispatch, and embedded identically in every envelope copy. The
// synchronization is open loop: no clock-offset correction, each device
// executes the instant in its own time base.
func (c *Coordinator) Broadcast(ctx context.Context, kind types.CommandKind, devices []types.Device) types.BroadcastResult {
	instant := c.now()
	if kind == types.CommandStartRecording {
		instant = instant.Add(c.cfg.SyncDelay)
	}
	return c.BroadcastAt(ctx, kind, instant, devices)
}

// BroadcastAt is Broadcast with an explicit shared instant.
func (c *Coordinator) BroadcastAt(ctx context.Context, kind types.CommandKind, instant time.Time, devices []types.Device) types.BroadcastResult {
	env := types.NewEnvelope(kind, instant, c.cfg.Originator)

	c.logger.Info("broadcasting command", map[string]any{
		"command":   string(kind),
		"devices":   len(devices),
		"timestamp": env.Timestamp,
	})

	results := make(types.BroadcastResult, len(devices))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, device := range devices {
		wg.Add(1)
		go func(device types.Device) {
			defer wg.Done()
			res := c.sender.Send(ctx, device, env)

			mu.Lock()
			results[device.Name] = res
			mu.Unlock()

			if !res.OK() {
				c.logger.WithDevice(device.Name).Warn("command failed", map[string]any{
					"command": string(kind),
					"error":   res.Err.Error(),
				})
			}
		}(device)
	}
	wg.Wait()

	return results
}

// Download retrieves one recorded file from one device.
func (c *Coordinator) Download(ctx context.Context, device types.Device, fileID string) types.CommandResult {
	env := types.NewEnvelope(types.CommandGetFile, c.now(), c.cfg.Originator)
	env.FileID = fileID
	return c.sender.Send(ctx, device, env)
}
