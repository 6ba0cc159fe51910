// Package transfer implements the media retrieval framing.
//
// Wire format, in order:
//  1. 4-byte big-endian length of the metadata block
//  2. exactly that many bytes of UTF-8 JSON decoding to {fileName, fileSize}
//  3. exactly fileSize raw bytes of file content
//
// The content is streamed to disk in chunks rather than buffered whole;
// recordings routinely run to gigabytes.
package transfer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the metadata length prefix in bytes.
	LengthPrefixSize = 4
	// MaxHeaderSize bounds the metadata block (1 MiB). A larger declared
	// length means a corrupt or hostile stream, not a real header.
	MaxHeaderSize = 1 * 1024 * 1024
	// ChunkSize is the copy buffer size for streaming file content.
	ChunkSize = 8 * 1024
)

// Descriptor is the metadata block preceding the file bytes. It governs
// exactly how many content bytes follow on the connection.
type Descriptor struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// Receive reads one framed file from r and writes it under destDir.
// deviceAddr is folded into the local name so files from different devices
// sharing a remote name cannot collide.
//
// Returns the local path on success. On failure any partially written file
// is left on disk; the caller may remove it but a success is never reported
// for an incomplete transfer.
func Receive(r io.Reader, destDir, deviceAddr string) (string, error) {
	desc, err := ReadDescriptor(r)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	localPath := filepath.Join(destDir, LocalName(deviceAddr, desc.FileName))
	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	n, err := io.CopyBuffer(f, io.LimitReader(r, desc.FileSize), buf)
	if err != nil {
		return "", &ProtocolError{
			Kind: ErrorPartial,
			Msg:  fmt.Sprintf("stream failed after %d of %d bytes", n, desc.FileSize),
			Err:  err,
		}
	}
	if n < desc.FileSize {
		// Peer closed before the declared size arrived.
		return "", &ProtocolError{
			Kind: ErrorPartial,
			Msg:  fmt.Sprintf("short stream: got %d of %d bytes", n, desc.FileSize),
		}
	}

	return localPath, nil
}

// ReadDescriptor reads and decodes the length-prefixed metadata block.
func ReadDescriptor(r io.Reader) (*Descriptor, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, &ProtocolError{
			Kind: ErrorPartial,
			Msg:  "failed to read metadata length prefix",
			Err:  err,
		}
	}

	headerSize := binary.BigEndian.Uint32(lengthBuf[:])
	if headerSize > MaxHeaderSize {
		return nil, &ProtocolError{
			Kind: ErrorTooLarge,
			Msg:  fmt.Sprintf("metadata size %d exceeds maximum %d", headerSize, MaxHeaderSize),
		}
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, &ProtocolError{
			Kind: ErrorPartial,
			Msg:  "failed to read metadata block",
			Err:  err,
		}
	}

	var desc Descriptor
	if err := json.Unmarshal(header, &desc); err != nil {
		return nil, &ProtocolError{
			Kind: ErrorDecode,
			Msg:  "failed to decode metadata block",
			Err:  err,
		}
	}
	if desc.FileName == "" {
		return nil, &ProtocolError{Kind: ErrorDecode, Msg: "metadata block missing fileName"}
	}
	if desc.FileSize < 0 {
		return nil, &ProtocolError{Kind: ErrorDecode, Msg: fmt.Sprintf("negative fileSize %d", desc.FileSize)}
	}

	return &desc, nil
}

// LocalName derives the deterministic local file name from the source
// device address and the declared remote name. The remote name is reduced
// to its base so a device cannot write outside destDir.
func LocalName(deviceAddr, fileName string) string {
	addr := strings.NewReplacer(".", "_", ":", "_").Replace(deviceAddr)
	return addr + "_" + filepath.Base(fileName)
}
