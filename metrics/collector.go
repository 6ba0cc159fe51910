// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single controller session.
// It is a leaf package with no internal dependencies. All increment
// methods are nil-receiver safe, so components can carry an optional
// collector without guarding every call site.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the session counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Command dispatch
	CommandsSent   int64
	CommandsFailed int64

	// Retrieval
	FilesDownloaded int64
	DownloadsFailed int64
	BytesDownloaded int64

	// Upload collaborator
	FilesUploaded   int64
	UploadsFailed   int64
	FilesDeleted    int64
	CleanupsFailed  int64

	// Discovery
	DevicesDiscovered int64

	// Dimensions (informational, set at construction)
	SessionID string
}

// Collector accumulates metrics during one session.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	commandsSent   int64
	commandsFailed int64

	filesDownloaded int64
	downloadsFailed int64
	bytesDownloaded int64

	filesUploaded  int64
	uploadsFailed  int64
	filesDeleted   int64
	cleanupsFailed int64

	devicesDiscovered int64

	sessionID string
}

// NewCollector creates a Collector bound to a session identity.
func NewCollector(sessionID string) *Collector {
	return &Collector{sessionID: sessionID}
}

// AddCommands records a broadcast: total dispatched and how many failed.
func (c *Collector) AddCommands(sent, failed int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.commandsSent += sent
	c.commandsFailed += failed
	c.mu.Unlock()
}

// IncFileDownloaded records one retrieved file of the given size.
func (c *Collector) IncFileDownloaded(bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesDownloaded++
	c.bytesDownloaded += bytes
	c.mu.Unlock()
}

// IncDownloadFailed records one failed retrieval.
func (c *Collector) IncDownloadFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.downloadsFailed++
	c.mu.Unlock()
}

// AbsorbUpload records the result of one upload batch and its cleanup.
func (c *Collector) AbsorbUpload(uploaded, uploadFailed, deleted, cleanupFailed int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesUploaded += uploaded
	c.uploadsFailed += uploadFailed
	c.filesDeleted += deleted
	c.cleanupsFailed += cleanupFailed
	c.mu.Unlock()
}

// SetDevicesDiscovered records the size of the most recent discovery window.
func (c *Collector) SetDevicesDiscovered(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.devicesDiscovered = n
	c.mu.Unlock()
}

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		CommandsSent:      c.commandsSent,
		CommandsFailed:    c.commandsFailed,
		FilesDownloaded:   c.filesDownloaded,
		DownloadsFailed:   c.downloadsFailed,
		BytesDownloaded:   c.bytesDownloaded,
		FilesUploaded:     c.filesUploaded,
		UploadsFailed:     c.uploadsFailed,
		FilesDeleted:      c.filesDeleted,
		CleanupsFailed:    c.cleanupsFailed,
		DevicesDiscovered: c.devicesDiscovered,
		SessionID:         c.sessionID,
	}
}
