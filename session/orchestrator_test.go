package session

import (
	"context"
	"errors"
	"testing"

	"github.com/Gusemmett/multiCamController/registry"
	"github.com/Gusemmett/multiCamController/storage"
	"github.com/Gusemmett/multiCamController/types"
)

// fakeCoordinator scripts broadcast and download behavior and counts
// every invocation so tests can assert zero network traffic.
type fakeCoordinator struct {
	broadcasts   int
	downloads    int
	stopIDs      map[string]string
	failStarts   map[string]bool
	failDownload bool
}

func (f *fakeCoordinator) Broadcast(ctx context.Context, kind types.CommandKind, devices []types.Device) types.BroadcastResult {
	f.broadcasts++
	results := make(types.BroadcastResult, len(devices))
	for _, d := range devices {
		switch {
		case kind == types.CommandStartRecording && f.failStarts[d.Name]:
			results[d.Name] = types.CommandResult{Device: d.Name, Err: errors.New("unreachable")}
		case kind == types.CommandStopRecording:
			results[d.Name] = types.CommandResult{Device: d.Name, FileID: f.stopIDs[d.Name]}
		default:
			results[d.Name] = types.CommandResult{Device: d.Name, Reply: &types.Reply{Status: "ok"}}
		}
	}
	return results
}

func (f *fakeCoordinator) Download(ctx context.Context, device types.Device, fileID string) types.CommandResult {
	f.downloads++
	if f.failDownload {
		return types.CommandResult{Device: device.Name, Err: errors.New("short stream")}
	}
	return types.CommandResult{Device: device.Name, Path: "/tmp/" + device.Name + "_" + fileID + ".mov"}
}

// fakeUploader scripts batch upload and cleanup outcomes.
type fakeUploader struct {
	uploadCalls  int
	cleanupCalls int
	failUploads  []string
	failCleanup  []string
}

func (f *fakeUploader) UploadBatch(ctx context.Context, paths []string) storage.BatchResult {
	f.uploadCalls++
	res := storage.BatchResult{SessionFolder: "2026-08-25/14-30-05"}
	for _, p := range paths {
		if contains(f.failUploads, p) {
			res.Failed = append(res.Failed, p)
		} else {
			res.Uploaded = append(res.Uploaded, p)
		}
	}
	return res
}

func (f *fakeUploader) DeleteLocal(paths []string) storage.CleanupResult {
	f.cleanupCalls++
	var res storage.CleanupResult
	for _, p := range paths {
		if contains(f.failCleanup, p) {
			res.Failed = append(res.Failed, p)
		} else {
			res.Deleted = append(res.Deleted, p)
		}
	}
	return res
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newTestOrchestrator(coord *fakeCoordinator, up *fakeUploader, devices ...string) *Orchestrator {
	reg := registry.New()
	for i, name := range devices {
		reg.Upsert(name, "10.0.0.1", 8080+i, nil)
	}
	return New(reg, coord, up, nil)
}

func TestStopWhileIdleIsStateError(t *testing.T) {
	coord := &fakeCoordinator{}
	o := newTestOrchestrator(coord, &fakeUploader{}, "alpha")

	_, err := o.Stop(context.Background())
	if !IsStateError(err) {
		t.Fatalf("err = %v, want StateError", err)
	}
	if coord.broadcasts != 0 || coord.downloads != 0 {
		t.Error("wrong-state stop produced network traffic")
	}
}

func TestStartWhileRecordingIsStateError(t *testing.T) {
	coord := &fakeCoordinator{}
	o := newTestOrchestrator(coord, &fakeUploader{}, "alpha")

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := o.Start(context.Background())
	if !IsStateError(err) {
		t.Fatalf("err = %v, want StateError", err)
	}
	if coord.broadcasts != 1 {
		t.Errorf("broadcasts = %d, want 1 (rejection before dispatch)", coord.broadcasts)
	}
}

func TestStartWithNoDevices(t *testing.T) {
	o := newTestOrchestrator(&fakeCoordinator{}, &fakeUploader{})

	_, err := o.Start(context.Background())
	if err == nil {
		t.Fatal("start with empty registry succeeded")
	}
	if o.Recording() {
		t.Error("session Recording after failed start")
	}
}

func TestStartTransitionsDespitePartialFailure(t *testing.T) {
	coord := &fakeCoordinator{failStarts: map[string]bool{"bravo": true}}
	o := newTestOrchestrator(coord, &fakeUploader{}, "alpha", "bravo", "charlie")

	results, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !o.Recording() {
		t.Error("session not Recording after dispatched start")
	}
	if len(results.Failed()) != 1 {
		t.Errorf("failed = %v, want just bravo", results.Failed())
	}
}

func TestStartAllDevicesFailStaysIdle(t *testing.T) {
	coord := &fakeCoordinator{failStarts: map[string]bool{"alpha": true, "bravo": true}}
	o := newTestOrchestrator(coord, &fakeUploader{}, "alpha", "bravo")

	_, err := o.Start(context.Background())
	if err == nil {
		t.Fatal("start succeeded with every device unreachable")
	}
	if o.Recording() {
		t.Error("session Recording although start reached no device")
	}
}

func startRecording(t *testing.T, o *Orchestrator) {
	t.Helper()
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestStopFullSuccess(t *testing.T) {
	coord := &fakeCoordinator{stopIDs: map[string]string{"alpha": "rec-a", "bravo": "rec-b"}}
	up := &fakeUploader{}
	o := newTestOrchestrator(coord, up, "alpha", "bravo")
	startRecording(t, o)

	outcome, err := o.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if outcome.Status != types.StopFullSuccess {
		t.Errorf("status = %q, want full_success", outcome.Status)
	}
	if len(outcome.Uploaded) != 2 {
		t.Errorf("uploaded = %d, want 2", len(outcome.Uploaded))
	}
	if o.Recording() {
		t.Error("session still Recording after stop")
	}
	if coord.downloads != 2 {
		t.Errorf("downloads = %d, want 2", coord.downloads)
	}
	ids := o.LastFileIDs()
	if ids["alpha"] != "rec-a" || ids["bravo"] != "rec-b" {
		t.Errorf("LastFileIDs = %v", ids)
	}
}

func TestStopPartialCleanup(t *testing.T) {
	coord := &fakeCoordinator{stopIDs: map[string]string{"alpha": "rec-a", "bravo": "rec-b"}}
	up := &fakeUploader{failCleanup: []string{"/tmp/alpha_rec-a.mov"}}
	o := newTestOrchestrator(coord, up, "alpha", "bravo")
	startRecording(t, o)

	outcome, err := o.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if outcome.Status != types.StopPartialSuccess {
		t.Errorf("status = %q, want partial_success", outcome.Status)
	}
	if len(outcome.FailedCleanup) != 1 {
		t.Errorf("FailedCleanup = %v", outcome.FailedCleanup)
	}
}

func TestStopUploadFailureRetainsLocalFiles(t *testing.T) {
	coord := &fakeCoordinator{stopIDs: map[string]string{"alpha": "rec-a"}}
	up := &fakeUploader{failUploads: []string{"/tmp/alpha_rec-a.mov"}}
	o := newTestOrchestrator(coord, up, "alpha")
	startRecording(t, o)

	outcome, err := o.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if outcome.Status != types.StopUploadFailure {
		t.Errorf("status = %q, want upload_failure", outcome.Status)
	}
	if up.cleanupCalls != 0 {
		t.Error("cleanup ran after a failed upload batch")
	}
	if len(outcome.FailedUploads) != 1 || outcome.FailedUploads[0] != "/tmp/alpha_rec-a.mov" {
		t.Errorf("FailedUploads = %v", outcome.FailedUploads)
	}
}

func TestStopDownloadFailure(t *testing.T) {
	coord := &fakeCoordinator{
		stopIDs:      map[string]string{"alpha": "rec-a"},
		failDownload: true,
	}
	up := &fakeUploader{}
	o := newTestOrchestrator(coord, up, "alpha")
	startRecording(t, o)

	outcome, err := o.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if outcome.Status != types.StopDownloadFailure {
		t.Errorf("status = %q, want download_failure", outcome.Status)
	}
	if up.uploadCalls != 0 {
		t.Error("upload ran with nothing downloaded")
	}
	if o.Recording() {
		t.Error("session still Recording; stop must transition unconditionally")
	}
}

func TestStopWithZeroTokens(t *testing.T) {
	coord := &fakeCoordinator{}
	o := newTestOrchestrator(coord, &fakeUploader{}, "alpha")
	startRecording(t, o)

	outcome, err := o.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if outcome.Status != types.StopFullSuccess {
		t.Errorf("status = %q, want full_success", outcome.Status)
	}
	if o.Recording() {
		t.Error("session still Recording after zero-token stop")
	}
	if coord.downloads != 0 {
		t.Error("retrieval attempted with no tokens")
	}
}

func TestDownloadAllSkipsVanishedDevices(t *testing.T) {
	coord := &fakeCoordinator{}
	o := newTestOrchestrator(coord, &fakeUploader{}, "alpha")

	paths := o.DownloadAll(context.Background(), map[string]string{
		"alpha": "rec-a",
		"ghost": "rec-g",
	})
	if len(paths) != 1 {
		t.Errorf("paths = %v, want one (ghost skipped)", paths)
	}
	if coord.downloads != 1 {
		t.Errorf("downloads = %d, want 1", coord.downloads)
	}
}
