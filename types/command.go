// Package types defines the core domain types shared across the controller:
// devices, command envelopes, per-device results, and session outcomes.
package types

import (
	"encoding/json"
	"time"
)

// CommandKind enumerates the commands understood by multiCam devices.
type CommandKind string

// Command kinds as they appear on the wire.
const (
	CommandStartRecording CommandKind = "START_RECORDING"
	CommandStopRecording  CommandKind = "STOP_RECORDING"
	CommandDeviceStatus   CommandKind = "DEVICE_STATUS"
	CommandListFiles      CommandKind = "LIST_FILES"
	CommandGetFile        CommandKind = "GET_FILE"
)

// Valid reports whether k is a known command kind.
func (k CommandKind) Valid() bool {
	switch k {
	case CommandStartRecording, CommandStopRecording, CommandDeviceStatus,
		CommandListFiles, CommandGetFile:
		return true
	}
	return false
}

// Envelope is the request unit sent to a device. One envelope is shared
// logically across a broadcast (same Timestamp) but serialized independently
// per connection. Immutable once constructed.
type Envelope struct {
	// Command is the command kind discriminator.
	Command CommandKind `json:"command"`
	// Timestamp is seconds since epoch, fractional. For START_RECORDING it
	// is the shared future start instant; otherwise the dispatch instant.
	Timestamp float64 `json:"timestamp"`
	// DeviceID identifies the originator, not the target.
	DeviceID string `json:"deviceId"`
	// FileID is set only for GET_FILE.
	FileID string `json:"fileId,omitempty"`
}

// NewEnvelope builds an envelope stamped with the given instant.
func NewEnvelope(kind CommandKind, at time.Time, originator string) Envelope {
	return Envelope{
		Command:   kind,
		Timestamp: Epoch(at),
		DeviceID:  originator,
	}
}

// Epoch converts a time to fractional seconds since the Unix epoch,
// the timestamp representation devices expect.
func Epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Reply is a decoded structured reply from a device. Known fields are typed;
// the full payload is retained in Fields for command-specific shapes.
type Reply struct {
	// Status is the device-reported status, empty when the device omits it.
	Status string
	// FileID is the recording token returned by STOP_RECORDING.
	FileID string
	// Files is the listing returned by LIST_FILES.
	Files []FileEntry
	// Fields holds the complete decoded payload.
	Fields map[string]any
}

// IsError reports whether the device flagged the reply as an error.
// A reply with a fileId but status "error" is still an error; the token
// alone is not a success discriminator.
func (r *Reply) IsError() bool {
	return r.Status == "error"
}

// ReplyFromMap builds a typed Reply from a decoded JSON object.
func ReplyFromMap(fields map[string]any) *Reply {
	r := &Reply{Fields: fields}
	if s, ok := fields["status"].(string); ok {
		r.Status = s
	}
	if id, ok := fields["fileId"].(string); ok {
		r.FileID = id
	}
	if raw, ok := fields["files"]; ok {
		// Round-trip through JSON rather than walking the nested maps.
		if data, err := json.Marshal(raw); err == nil {
			var files []FileEntry
			if err := json.Unmarshal(data, &files); err == nil {
				r.Files = files
			}
		}
	}
	return r
}

// FileEntry describes one recorded file as reported by LIST_FILES.
type FileEntry struct {
	FileID       string  `json:"fileId"`
	FileName     string  `json:"fileName"`
	FileSize     int64   `json:"fileSize"`
	CreationDate float64 `json:"creationDate"`
}

// Created returns the file creation time.
func (e FileEntry) Created() time.Time {
	sec := int64(e.CreationDate)
	nsec := int64((e.CreationDate - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
