package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/transfer"
	"github.com/Gusemmett/multiCamController/types"
)

// Default timeout policy. List replies can be large but should start
// arriving quickly; transfers are bounded per-read, not per-connection.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReplyTimeout = 30 * time.Second
	DefaultListTimeout  = 10 * time.Second
)

// Config configures the command channel.
type Config struct {
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// ReplyTimeout bounds the structured reply read, and each individual
	// read during a file transfer.
	ReplyTimeout time.Duration
	// ListTimeout bounds LIST_FILES replies.
	ListTimeout time.Duration
	// DownloadDir is where retrieved files are written.
	DownloadDir string
}

// withDefaults fills zero fields with the default policy.
func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReplyTimeout == 0 {
		c.ReplyTimeout = DefaultReplyTimeout
	}
	if c.ListTimeout == 0 {
		c.ListTimeout = DefaultListTimeout
	}
	return c
}

// Client sends commands to devices, one fresh connection per command.
// No pooling: commands are independent and a GET_FILE connection may be
// long-lived, so sockets are owned by exactly one Send call.
type Client struct {
	cfg    Config
	logger *log.Logger
}

// New creates a command channel client.
func New(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{cfg: cfg.withDefaults(), logger: logger}
}

// Send dispatches one command to one device and correlates the reply.
// All network and protocol failures are captured in the returned result;
// Send never panics and never returns a partial success.
func (c *Client) Send(ctx context.Context, device types.Device, env types.Envelope) types.CommandResult {
	result := types.CommandResult{Device: device.Name}
	endpoint := device.HostPort()

	if env.Command == types.CommandGetFile && env.FileID == "" {
		result.Err = fmt.Errorf("GET_FILE requires a file identifier")
		return result
	}

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		result.Err = newCommandError("dial", endpoint, err)
		return result
	}
	defer conn.Close()

	payload, err := json.Marshal(env)
	if err != nil {
		result.Err = fmt.Errorf("encode envelope: %w", err)
		return result
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.ReplyTimeout)); err != nil {
		result.Err = newCommandError("write", endpoint, err)
		return result
	}
	if _, err := conn.Write(payload); err != nil {
		result.Err = newCommandError("write", endpoint, err)
		return result
	}

	c.logger.WithDevice(device.Name).Debug("command sent", map[string]any{
		"command":   string(env.Command),
		"endpoint":  endpoint,
		"timestamp": env.Timestamp,
	})

	if env.Command == types.CommandGetFile {
		return c.receiveFile(conn, device, result)
	}
	return c.receiveReply(conn, env, result)
}

// receiveReply reads one complete JSON reply from the connection.
// The streaming decoder tolerates fragmented delivery: it keeps reading
// until exactly one JSON value has arrived or the deadline fires.
func (c *Client) receiveReply(conn net.Conn, env types.Envelope, result types.CommandResult) types.CommandResult {
	endpoint := conn.RemoteAddr().String()

	timeout := c.cfg.ReplyTimeout
	if env.Command == types.CommandListFiles {
		timeout = c.cfg.ListTimeout
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		result.Err = newCommandError("read", endpoint, err)
		return result
	}

	var fields map[string]any
	if err := json.NewDecoder(conn).Decode(&fields); err != nil {
		result.Err = newCommandError("read", endpoint, err)
		return result
	}
	reply := types.ReplyFromMap(fields)

	if env.Command == types.CommandStopRecording {
		// A recording token only counts when the device did not flag an
		// error; the token alone is not a success discriminator.
		if reply.IsError() {
			result.Err = fmt.Errorf("device reported error stopping recording: %v", fields["message"])
			return result
		}
		result.FileID = reply.FileID
	}

	result.Reply = reply
	return result
}

// receiveFile delegates to the transfer framing. The read deadline is
// renewed before every chunk so a stalled peer fails while a slow, live
// transfer of any length succeeds.
func (c *Client) receiveFile(conn net.Conn, device types.Device, result types.CommandResult) types.CommandResult {
	r := &idleTimeoutReader{conn: conn, idle: c.cfg.ReplyTimeout}
	path, err := transfer.Receive(r, c.cfg.DownloadDir, device.Addr)
	if err != nil {
		result.Err = newCommandError("transfer", conn.RemoteAddr().String(), err)
		return result
	}
	result.Path = path
	return result
}

// idleTimeoutReader bumps the connection read deadline before each read.
type idleTimeoutReader struct {
	conn net.Conn
	idle time.Duration
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.idle)); err != nil {
		return 0, err
	}
	return r.conn.Read(p)
}
