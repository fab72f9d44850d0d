package antivirus

import (
	"context"
	"time"
)

// ScanResult contains the result of a malware scan
type ScanResult struct {
	Infected    bool   // True if malware was detected
	ThreatName  string // Name of detected threat (empty if clean)
	ScannerName string // Name of scanner that produced this result
	Error       error  // Scanner failure; the file was not verified
}

// Scanner is the interface for pluggable antivirus implementations
type Scanner interface {
	// Scan checks attachment content for malware.
	// A non-nil Error means the scan did not complete; callers must not treat the file as clean.
	Scan(ctx context.Context, filename string, data []byte) ScanResult

	// Name returns the scanner implementation name (for logging)
	Name() string
}

// NoOpScanner always reports clean. Used when no clamd address is configured.
type NoOpScanner struct{}

var _ Scanner = (*NoOpScanner)(nil)

func NewNoOpScanner() *NoOpScanner {
	return &NoOpScanner{}
}

func (n *NoOpScanner) Scan(ctx context.Context, filename string, data []byte) ScanResult {
	return ScanResult{ScannerName: n.Name()}
}

func (n *NoOpScanner) Name() string {
	return "noop"
}

// FromAddress returns a ClamAV scanner for addr, or a no-op scanner when addr is empty
func FromAddress(addr string, timeout time.Duration) Scanner {
	if addr == "" {
		return NewNoOpScanner()
	}
	return NewClamAVScanner(addr, timeout)
}
