// Package channel implements the per-command device connection:
// one fresh TCP connection per command, a JSON request envelope, and
// either a structured JSON reply or the transfer framing for GET_FILE.
package channel

import (
	"errors"
	"fmt"
	"net"

	"github.com/Gusemmett/multiCamController/transfer"
)

// Sentinel errors for command failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrConnection indicates an unreachable or refused device.
	ErrConnection = errors.New("connection failed")

	// ErrTimeout indicates no complete reply arrived within the bound.
	ErrTimeout = errors.New("reply timed out")

	// ErrProtocol indicates a malformed or undecodable reply.
	ErrProtocol = errors.New("protocol error")
)

// CommandError wraps an underlying failure with classification and the
// device endpoint involved. It preserves the original error in the chain
// for inspection via errors.As.
type CommandError struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the operation that failed (e.g. "dial", "write", "read").
	Op string
	// Endpoint is the device addr:port involved.
	Endpoint string
	// Err is the underlying error.
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Endpoint, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *CommandError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// newCommandError classifies and wraps err for the given operation.
func newCommandError(op, endpoint string, err error) *CommandError {
	return &CommandError{
		Kind:     classify(err),
		Op:       op,
		Endpoint: endpoint,
		Err:      err,
	}
}

// classify determines the sentinel kind for an error.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if transfer.IsProtocolError(err) {
		return ErrProtocol
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection
	}
	return ErrProtocol
}
