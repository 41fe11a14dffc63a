// Package archive packs a working document file into a password protected
// archive and unpacks it again.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	// ErrWrongPassword is returned when an archive cannot be opened with the
	// given password.
	ErrWrongPassword = errors.New("wrong password")
	ErrUnknownTool   = errors.New("unknown archive tool")
)

// Archiver is the contract between the storage controller and an archive
// tool. Both calls are synchronous and any error is a hard failure.
type Archiver interface {
	// Extract unpacks every file of archive into destDir.
	Extract(ctx context.Context, archive, destDir, password string) error
	// Archive packs the single file src into archive, replacing it.
	Archive(ctx context.Context, src, archive, password string) error
}

// Tool names accepted by New.
const (
	ToolBuiltin  = "builtin"
	ToolSevenZip = "7za"
)

// New returns the archiver named by tool. binary is the 7za executable and
// is only used by ToolSevenZip.
func New(tool, binary string, logger *logrus.Entry) (Archiver, error) {
	switch tool {
	case "", ToolBuiltin:
		return NewSealed(), nil
	case ToolSevenZip:
		return NewSevenZip(binary, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
}

// Magic numbers of the supported archive formats.
var (
	SealedMagic   = []byte("TNSEAL01")
	SevenZipMagic = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
)

// IsArchive reports whether the file at path starts with a known archive
// signature.
func IsArchive(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, len(SealedMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head = head[:n]
	return bytes.HasPrefix(head, SealedMagic) || bytes.HasPrefix(head, SevenZipMagic), nil
}
