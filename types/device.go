package types

import (
	"net"
	"strconv"
)

// Device is one discovered or manually registered camera endpoint.
// Owned by the registry; read-only everywhere else.
type Device struct {
	// Name is the identity, unique within a session.
	Name string
	// Addr is the IPv4/IPv6 address or hostname.
	Addr string
	// Port is the TCP command port.
	Port int
	// Meta carries free-form discovery metadata (TXT records etc).
	Meta map[string]string
}

// HostPort returns the dialable "addr:port" form.
func (d Device) HostPort() string {
	return net.JoinHostPort(d.Addr, strconv.Itoa(d.Port))
}

// CommandResult is the per-device outcome of one command dispatch.
// Exactly one of Reply/FileID/Path is meaningful on success, depending on
// the command kind; Err is set on failure.
type CommandResult struct {
	// Device is the target identity.
	Device string
	// Reply is the structured reply, nil for transfer commands.
	Reply *Reply
	// FileID is the recording token surfaced from a STOP_RECORDING reply.
	FileID string
	// Path is the local file written by GET_FILE.
	Path string
	// Err is the failure cause, nil on success.
	Err error
}

// OK reports whether the command succeeded for this device.
func (r CommandResult) OK() bool {
	return r.Err == nil
}

// BroadcastResult maps device identity to that device's outcome.
// Every dispatched device is present, failed or not. No ordering guarantee.
type BroadcastResult map[string]CommandResult

// Failed returns the identities whose command failed, in no particular order.
func (b BroadcastResult) Failed() []string {
	var out []string
	for name, res := range b {
		if !res.OK() {
			out = append(out, name)
		}
	}
	return out
}

// FileIDs extracts the device→token map from a STOP_RECORDING broadcast,
// skipping devices that failed or returned no token.
func (b BroadcastResult) FileIDs() map[string]string {
	out := make(map[string]string)
	for name, res := range b {
		if res.OK() && res.FileID != "" {
			out[name] = res.FileID
		}
	}
	return out
}
