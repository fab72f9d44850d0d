package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/security"
)

// Spool writes uploads to short-lived files so request memory stays bounded.
// Every saved file must be passed to Remove once the send attempt resolves.
type Spool struct {
	dir string
}

func NewSpool(dir string) *Spool {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Spool{dir: dir}
}

// Dir returns the directory spooled files are written to
func (s *Spool) Dir() string {
	return s.dir
}

// Save copies src into a new spool file. The original filename is kept only as metadata.
func (s *Spool) Save(filename string, src io.Reader) (*domain.Attachment, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("spool: create dir: %w", err)
	}

	f, err := os.CreateTemp(s.dir, "upload-*.part")
	if err != nil {
		return nil, fmt.Errorf("spool: create file: %w", err)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("spool: write: %w", err)
	}

	return &domain.Attachment{
		Filename: security.SafeFilename(filename),
		Path:     f.Name(),
		Size:     n,
	}, nil
}

// Remove deletes a spooled file. Removing an already-deleted file is not an error.
func (s *Spool) Remove(att *domain.Attachment) error {
	if att == nil || att.Path == "" {
		return nil
	}
	if err := os.Remove(att.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("spool: remove: %w", err)
	}
	return nil
}
