package antivirus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// clamd rejects INSTREAM chunks above StreamMaxLength; 1 MiB chunks stay well below the default
const chunkSize = 1 << 20

// ClamAVScanner connects to the clamd daemon for malware scanning
type ClamAVScanner struct {
	address string        // TCP address (host:port) or Unix socket path
	timeout time.Duration // Connection and scan timeout
}

var _ Scanner = (*ClamAVScanner)(nil)

// NewClamAVScanner creates a ClamAV scanner
// address: TCP "localhost:3310" or Unix socket "/var/run/clamav/clamd.sock"
func NewClamAVScanner(address string, timeout time.Duration) *ClamAVScanner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClamAVScanner{
		address: address,
		timeout: timeout,
	}
}

func (c *ClamAVScanner) Name() string {
	return "clamav"
}

func (c *ClamAVScanner) network() string {
	if strings.HasPrefix(c.address, "/") {
		return "unix"
	}
	return "tcp"
}

// Scan streams the attachment to clamd with the zINSTREAM command
func (c *ClamAVScanner) Scan(ctx context.Context, filename string, data []byte) ScanResult {
	result := ScanResult{ScannerName: c.Name()}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, c.network(), c.address)
	if err != nil {
		result.Error = fmt.Errorf("failed to connect to clamd: %w", err)
		return result
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		result.Error = fmt.Errorf("failed to send command: %w", err)
		return result
	}

	// Each chunk is prefixed with its length as a big-endian uint32
	size := make([]byte, 4)
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		binary.BigEndian.PutUint32(size, uint32(end-offset))
		if _, err := conn.Write(size); err != nil {
			result.Error = fmt.Errorf("failed to send chunk size: %w", err)
			return result
		}
		if _, err := conn.Write(data[offset:end]); err != nil {
			result.Error = fmt.Errorf("failed to send chunk: %w", err)
			return result
		}
	}

	// Zero-length chunk terminates the stream
	if _, err := conn.Write([]byte{0, 0, 0, 0}); err != nil {
		result.Error = fmt.Errorf("failed to send end marker: %w", err)
		return result
	}

	reply, err := io.ReadAll(io.LimitReader(conn, 1024))
	if err != nil {
		result.Error = fmt.Errorf("failed to read response: %w", err)
		return result
	}

	return parseReply(result, string(reply))
}

// parseReply interprets "stream: OK", "stream: <threat> FOUND" and "... ERROR"
func parseReply(result ScanResult, reply string) ScanResult {
	reply = strings.TrimSpace(strings.TrimRight(reply, "\x00"))

	switch {
	case strings.HasSuffix(reply, "FOUND"):
		result.Infected = true
		if _, threat, ok := strings.Cut(reply, ":"); ok {
			result.ThreatName = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(threat), "FOUND"))
		}
	case strings.HasSuffix(reply, "OK"):
		// clean
	default:
		result.Error = fmt.Errorf("scan error: %s", reply)
	}
	return result
}
