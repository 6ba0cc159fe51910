// Package session sequences one recording session: start, stop, retrieval,
// and hand-off to the upload collaborator. It owns the single
// Idle/Recording flag gating start and stop.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/metrics"
	"github.com/Gusemmett/multiCamController/registry"
	"github.com/Gusemmett/multiCamController/storage"
	"github.com/Gusemmett/multiCamController/types"
)

// StateError reports a command issued in the wrong session state.
// It is rejected synchronously, before any network activity.
type StateError struct {
	// Op is the rejected operation ("start" or "stop").
	Op string
	// State is the session state at the time ("idle" or "recording").
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.State)
}

// IsStateError reports whether err is a wrong-state rejection.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// Broadcaster is the slice of the broadcast coordinator the session uses.
type Broadcaster interface {
	Broadcast(ctx context.Context, kind types.CommandKind, devices []types.Device) types.BroadcastResult
	Download(ctx context.Context, device types.Device, fileID string) types.CommandResult
}

// Uploader is the upload collaborator contract: batch upload, then
// deletion of successfully uploaded local copies, both batch-partial.
type Uploader interface {
	UploadBatch(ctx context.Context, paths []string) storage.BatchResult
	DeleteLocal(paths []string) storage.CleanupResult
}

// Orchestrator owns the recording session state machine.
// States: Idle, Recording. All public methods are safe for concurrent use;
// the state flag is the single source of truth gating start and stop.
type Orchestrator struct {
	id       string
	registry *registry.Registry
	coord    Broadcaster
	uploader Uploader
	logger   *log.Logger
	stats    *metrics.Collector

	mu          sync.Mutex
	recording   bool
	lastFileIDs map[string]string
}

// New creates an orchestrator over the given collaborators.
func New(reg *registry.Registry, coord Broadcaster, uploader Uploader, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Orchestrator{
		id:          uuid.New().String(),
		registry:    reg,
		coord:       coord,
		uploader:    uploader,
		logger:      logger,
		lastFileIDs: make(map[string]string),
	}
}

// ID returns the session identity.
func (o *Orchestrator) ID() string { return o.id }

// WithMetrics attaches a collector. The orchestrator works without one;
// every recording path tolerates a nil collector.
func (o *Orchestrator) WithMetrics(c *metrics.Collector) *Orchestrator {
	o.stats = c
	return o
}

// Metrics returns a snapshot of the session counters.
func (o *Orchestrator) Metrics() metrics.Snapshot {
	return o.stats.Snapshot()
}

// Recording reports whether a recording is in progress.
func (o *Orchestrator) Recording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.recording
}

// LastFileIDs returns a copy of the tokens from the most recent stop.
func (o *Orchestrator) LastFileIDs() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.lastFileIDs))
	for k, v := range o.lastFileIDs {
		out[k] = v
	}
	return out
}

// Start broadcasts START_RECORDING to every registered device and moves
// the session to Recording. Once dispatched the start is fire-and-forget:
// individual device failures do not block the transition, a device that
// missed the start simply produces no file later. Start while Recording
// is a StateError; a start that reaches no device at all leaves the
// session Idle.
func (o *Orchestrator) Start(ctx context.Context) (types.BroadcastResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.recording {
		return nil, &StateError{Op: "start", State: "recording"}
	}

	devices := o.registry.Snapshot()
	if len(devices) == 0 {
		return nil, errors.New("no devices registered; run discovery first")
	}

	results := o.coord.Broadcast(ctx, types.CommandStartRecording, devices)
	o.stats.AddCommands(int64(len(devices)), int64(len(results.Failed())))
	if len(results.Failed()) == len(devices) {
		return results, errors.New("start reached no device")
	}

	o.recording = true
	o.lastFileIDs = make(map[string]string)
	o.logger.Info("recording started", map[string]any{
		"devices": len(devices),
		"failed":  len(results.Failed()),
	})
	return results, nil
}

// Stop broadcasts STOP_RECORDING, unconditionally returns the session to
// Idle (even when zero tokens come back), then retrieves every returned
// file and hands the downloads to the upload collaborator. The outcome is
// tiered per StopStatus. Stop while Idle is a StateError and produces no
// network traffic.
func (o *Orchestrator) Stop(ctx context.Context) (*types.StopOutcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.recording {
		return nil, &StateError{Op: "stop", State: "idle"}
	}

	devices := o.registry.Snapshot()
	results := o.coord.Broadcast(ctx, types.CommandStopRecording, devices)
	o.stats.AddCommands(int64(len(devices)), int64(len(results.Failed())))

	fileIDs := results.FileIDs()
	o.recording = false
	o.lastFileIDs = fileIDs

	outcome := &types.StopOutcome{FileIDs: fileIDs}

	if len(fileIDs) == 0 {
		outcome.Status = types.StopFullSuccess
		outcome.Message = "recording stopped; no devices returned a file"
		return outcome, nil
	}

	outcome.Downloaded = o.downloadAll(ctx, fileIDs)
	if len(outcome.Downloaded) == 0 {
		outcome.Status = types.StopDownloadFailure
		outcome.Message = fmt.Sprintf("no files retrieved despite %d recording token(s)", len(fileIDs))
		return outcome, nil
	}

	if o.uploader == nil {
		outcome.Status = types.StopFullSuccess
		outcome.Message = fmt.Sprintf("%d file(s) retained locally (no upload target configured)",
			len(outcome.Downloaded))
		return outcome, nil
	}

	upload := o.uploader.UploadBatch(ctx, outcome.Downloaded)
	outcome.Uploaded = upload.Uploaded
	outcome.FailedUploads = upload.Failed
	outcome.SessionFolder = upload.SessionFolder

	if !upload.Success() {
		// Retain every local copy; nothing is deleted after a failed batch.
		o.stats.AbsorbUpload(int64(len(upload.Uploaded)), int64(len(upload.Failed)), 0, 0)
		outcome.Status = types.StopUploadFailure
		outcome.Message = fmt.Sprintf("%d of %d upload(s) failed; local files retained",
			len(upload.Failed), len(outcome.Downloaded))
		return outcome, nil
	}

	cleanup := o.uploader.DeleteLocal(upload.Uploaded)
	outcome.FailedCleanup = cleanup.Failed
	o.stats.AbsorbUpload(int64(len(upload.Uploaded)), int64(len(upload.Failed)),
		int64(len(cleanup.Deleted)), int64(len(cleanup.Failed)))

	if !cleanup.Success() {
		outcome.Status = types.StopPartialSuccess
		outcome.Message = fmt.Sprintf("%d file(s) uploaded; %d local deletion(s) failed",
			len(upload.Uploaded), len(cleanup.Failed))
		return outcome, nil
	}

	outcome.Status = types.StopFullSuccess
	outcome.Message = fmt.Sprintf("%d file(s) uploaded and locally removed", len(upload.Uploaded))
	return outcome, nil
}

// DownloadAll retrieves the file behind every token and returns the local
// paths that were successfully written. Devices that have vanished from
// the registry or whose transfer fails are skipped, never fatal.
func (o *Orchestrator) DownloadAll(ctx context.Context, fileIDs map[string]string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.downloadAll(ctx, fileIDs)
}

// downloadAll requires o.mu held.
func (o *Orchestrator) downloadAll(ctx context.Context, fileIDs map[string]string) []string {
	var paths []string
	for name, fileID := range fileIDs {
		device, ok := o.registry.Get(name)
		if !ok {
			o.logger.Warn("device vanished before retrieval", map[string]any{"device": name})
			continue
		}
		res := o.coord.Download(ctx, device, fileID)
		if !res.OK() {
			o.stats.IncDownloadFailed()
			o.logger.WithDevice(name).Warn("download failed", map[string]any{
				"fileId": fileID,
				"error":  res.Err.Error(),
			})
			continue
		}
		var size int64
		if info, err := os.Stat(res.Path); err == nil {
			size = info.Size()
		}
		o.stats.IncFileDownloaded(size)
		paths = append(paths, res.Path)
	}
	return paths
}
